package smartconnect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(routes["api.login"], func(w http.ResponseWriter, r *http.Request) {
		var p map[string]string
		_ = json.NewDecoder(r.Body).Decode(&p)
		if r.Header.Get("X-PrivateKey") != "key" {
			t.Errorf("X-PrivateKey = %q", r.Header.Get("X-PrivateKey"))
		}
		if p["totp"] != "123456" {
			w.Write([]byte(`{"status":false,"message":"Invalid totp","errorcode":"AB1050","data":null}`))
			return
		}
		w.Write([]byte(`{"status":true,"message":"SUCCESS","data":{"jwtToken":"jwt","refreshToken":"r","feedToken":"f"}}`))
	})
	mux.HandleFunc(routes["api.candle.data"], func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer jwt" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"message":"Invalid Token","error_type":"TokenException","data":null}`))
			return
		}
		w.Write([]byte(`{"status":true,"message":"SUCCESS","data":[
			["2024-03-01T09:15:00+05:30",100.5,102,99.5,101,12000],
			["2024-03-01T09:20:00+05:30",101,103.25,100.75,103,8000]]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginAndCandleData(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{APIKey: "key", RootURL: srv.URL, ClientLocalIP: "10.0.0.1", ClientMAC: "aa:bb"})

	if _, err := c.CandleData(context.Background(), CandleParams{}); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}

	if err := c.Login(context.Background(), "C1", "1234", "123456"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !c.LoggedIn() {
		t.Fatal("expected session")
	}

	rows, err := c.CandleData(context.Background(), CandleParams{
		Exchange: "NSE", SymbolToken: "3045", Interval: "FIVE_MINUTE",
		From: time.Now().Add(-time.Hour), To: time.Now(),
	})
	if err != nil {
		t.Fatalf("CandleData: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[1].Close != 103 || rows[0].Volume != 12000 {
		t.Errorf("unexpected rows %+v", rows)
	}
	if rows[0].Time.UTC().Hour() != 3 || rows[0].Time.UTC().Minute() != 45 {
		t.Errorf("timestamp not parsed with offset: %v", rows[0].Time)
	}
}

func TestLogin_Rejected(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{APIKey: "key", RootURL: srv.URL})

	err := c.Login(context.Background(), "C1", "1234", "000000")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "AB1050" {
		t.Fatalf("expected APIError AB1050, got %v", err)
	}
	if c.LoggedIn() {
		t.Error("failed login must not store a token")
	}
}

func TestCandleData_TokenExpired(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{APIKey: "key", RootURL: srv.URL})
	c.accessToken = "stale"

	_, err := c.CandleData(context.Background(), CandleParams{Exchange: "NSE", SymbolToken: "1"})
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}
