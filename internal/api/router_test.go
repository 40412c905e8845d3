package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"signaldesk/internal/analysis"
	"signaldesk/internal/indicator"
	"signaldesk/internal/marketdata"
	"signaldesk/internal/signald"
)

type fakeService struct {
	latest     map[string]signald.Snapshot
	refreshed  []string
	analyzeErr error
	signals    []analysis.Signal
}

func (f *fakeService) Symbols() []string { return []string{"BTCUSDT", "ETHUSDT"} }
func (f *fakeService) Interval() string  { return "5m" }
func (f *fakeService) MarketStatus() string {
	return "NSE closed, opens Mon 09:15 (41h0m)"
}

func (f *fakeService) Latest(symbol string) (signald.Snapshot, bool) {
	s, ok := f.latest[symbol]
	return s, ok
}

func (f *fakeService) Refresh(_ context.Context, symbol string) (signald.Snapshot, error) {
	if symbol != "BTCUSDT" && symbol != "ETHUSDT" {
		return signald.Snapshot{}, fmt.Errorf("%w: %s", marketdata.ErrUnknownSymbol, symbol)
	}
	f.refreshed = append(f.refreshed, symbol)
	return signald.Snapshot{Symbol: symbol, Interval: "5m", Indicators: indicator.Compute(nil)}, nil
}

func (f *fakeService) Analyze(_ context.Context, symbol string) (analysis.Signal, error) {
	if f.analyzeErr != nil {
		return analysis.Signal{}, f.analyzeErr
	}
	return analysis.Signal{Symbol: symbol, Type: analysis.SignalSell, Confidence: 61, CreatedAt: time.Unix(0, 0).UTC()}, nil
}

func (f *fakeService) RecentSignals(_ context.Context, symbol string, limit int) ([]analysis.Signal, error) {
	return f.signals, nil
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestRouter_Health(t *testing.T) {
	rec := do(t, NewRouter(&fakeService{}, Options{}), http.MethodGet, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestRouter_Symbols(t *testing.T) {
	rec := do(t, NewRouter(&fakeService{}, Options{}), http.MethodGet, "/api/v1/symbols")

	var body struct {
		Symbols  []string `json:"symbols"`
		Interval string   `json:"interval"`
		Market   string   `json:"market"`
	}
	decode(t, rec, &body)
	if len(body.Symbols) != 2 || body.Interval != "5m" || body.Market == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestRouter_IndicatorsCachedThenComputed(t *testing.T) {
	svc := &fakeService{latest: map[string]signald.Snapshot{
		"BTCUSDT": {Symbol: "BTCUSDT", LastClose: 42},
	}}
	r := NewRouter(svc, Options{})

	rec := do(t, r, http.MethodGet, "/api/v1/indicators/btcusdt")
	var snap signald.Snapshot
	decode(t, rec, &snap)
	if snap.LastClose != 42 || len(svc.refreshed) != 0 {
		t.Errorf("expected cached snapshot, got %+v (refreshed %v)", snap, svc.refreshed)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/indicators/ETHUSDT")
	if rec.Code != http.StatusOK || len(svc.refreshed) != 1 {
		t.Errorf("code=%d refreshed=%v", rec.Code, svc.refreshed)
	}
}

func TestRouter_IndicatorsShortHistoryShape(t *testing.T) {
	rec := do(t, NewRouter(&fakeService{}, Options{}), http.MethodPost, "/api/v1/indicators/BTCUSDT/refresh")

	var body map[string]json.RawMessage
	decode(t, rec, &body)
	var ind map[string]json.RawMessage
	if err := json.Unmarshal(body["indicators"], &ind); err != nil {
		t.Fatal(err)
	}
	if string(ind["latestRsi"]) != "null" || string(ind["latestMacd"]) != "null" {
		t.Errorf("latest values should be null without history: %s / %s", ind["latestRsi"], ind["latestMacd"])
	}
}

func TestRouter_UnknownSymbol(t *testing.T) {
	rec := do(t, NewRouter(&fakeService{}, Options{}), http.MethodPost, "/api/v1/indicators/NOPE/refresh")
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestRouter_AnalyzeErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{analysis.ErrRateLimited, http.StatusTooManyRequests},
		{analysis.ErrInvalidCredential, http.StatusBadGateway},
		{analysis.ErrTransient, http.StatusBadGateway},
		{signald.ErrAnalysisDisabled, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(analysis.Class(tt.err), func(t *testing.T) {
			rec := do(t, NewRouter(&fakeService{analyzeErr: tt.err}, Options{}), http.MethodPost, "/api/v1/signals/BTCUSDT")
			if rec.Code != tt.code {
				t.Errorf("code = %d, want %d", rec.Code, tt.code)
			}
			var body errorBody
			decode(t, rec, &body)
			if body.Error == "" {
				t.Error("missing error text")
			}
		})
	}
}

func TestRouter_RateLimitSetsRetryAfter(t *testing.T) {
	err := fmt.Errorf("analyze: %w", &analysis.StatusError{
		Class: analysis.ErrRateLimited, Status: http.StatusTooManyRequests, RetryAfter: 1500 * time.Millisecond,
	})
	rec := do(t, NewRouter(&fakeService{analyzeErr: err}, Options{}), http.MethodPost, "/api/v1/signals/BTCUSDT")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("code = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
}

func TestRouter_AnalyzeOK(t *testing.T) {
	rec := do(t, NewRouter(&fakeService{}, Options{}), http.MethodPost, "/api/v1/signals/ETHUSDT")
	var sig map[string]any
	decode(t, rec, &sig)
	if sig["signal"] != "SELL" || sig["symbol"] != "ETHUSDT" {
		t.Errorf("signal = %v", sig)
	}
}

func TestRouter_SignalsEmptyList(t *testing.T) {
	rec := do(t, NewRouter(&fakeService{}, Options{}), http.MethodGet, "/api/v1/signals/BTCUSDT?limit=5")
	if got := rec.Body.String(); got != "{\"signals\":[]}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestRouter_Styles(t *testing.T) {
	rec := do(t, NewRouter(&fakeService{}, Options{}), http.MethodGet, "/api/v1/styles")

	var table StyleTable
	decode(t, rec, &table)
	if len(table.Patterns) != 4 || len(table.Signals) != 3 || len(table.Crossovers) != 2 {
		t.Errorf("table = %+v", table)
	}
	if table.Volume.Normal != 2 || table.Volume.Anomalous != 4 {
		t.Errorf("volume radius = %+v", table.Volume)
	}
}

func TestRouter_CORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/symbols", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	NewRouter(&fakeService{}, Options{}).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q", got)
	}
}

func TestVolumeRadius(t *testing.T) {
	if VolumeRadius(false) != 2 || VolumeRadius(true) != 4 {
		t.Error("unexpected radii")
	}
}
