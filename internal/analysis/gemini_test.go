package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func geminiServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("api key header = %q", r.Header.Get("x-goog-api-key"))
		}
		raw, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &gotPath
}

func TestGenerate_OK(t *testing.T) {
	srv, path := geminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"{\"signal\":"},{"text":"\"BUY\"}"}]}}]}`)

	c := &GeminiClient{BaseURL: srv.URL, APIKey: "test-key", Model: "gemini-test"}
	text, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != `{"signal":"BUY"}` {
		t.Errorf("text = %q", text)
	}
	if *path != "/models/gemini-test:generateContent" {
		t.Errorf("path = %q", *path)
	}
}

func TestGenerate_ErrorClasses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"denied"}}`, ErrInvalidCredential},
		{"forbidden", http.StatusForbidden, `{}`, ErrInvalidCredential},
		{"bad key", http.StatusBadRequest, `{"error":{"message":"API key not valid. Please pass a valid API key."}}`, ErrInvalidCredential},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"quota"}}`, ErrRateLimited},
		{"server error", http.StatusServiceUnavailable, `oops`, ErrTransient},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, ErrEmptyResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := geminiServer(t, tc.status, tc.body)
			c := &GeminiClient{BaseURL: srv.URL, APIKey: "test-key"}
			_, err := c.Generate(context.Background(), "x")
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestGenerate_NetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := &GeminiClient{BaseURL: url, APIKey: "test-key"}
	if _, err := c.Generate(context.Background(), "x"); !errors.Is(err, ErrTransient) {
		t.Errorf("expected ErrTransient, got %v", err)
	}
}

func TestGenerate_MissingKey(t *testing.T) {
	c := &GeminiClient{}
	if _, err := c.Generate(context.Background(), "x"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestGenerateContentURL(t *testing.T) {
	c := &GeminiClient{Model: "m"}
	if got := c.generateContentURL(); got != defaultGeminiBaseURL+"/models/m:generateContent" {
		t.Errorf("default url = %s", got)
	}
	c.BaseURL = "https://proxy.example/v1beta/models/"
	if got := c.generateContentURL(); got != "https://proxy.example/v1beta/models/m:generateContent" {
		t.Errorf("models url = %s", got)
	}
}

func TestUserMessage(t *testing.T) {
	if !strings.Contains(UserMessage(&StatusError{Class: ErrRateLimited}), "rate limiting") {
		t.Error("rate limit message")
	}
	if !strings.Contains(UserMessage(ErrInvalidCredential), "GEMINI_API_KEY") {
		t.Error("credential message")
	}
	if UserMessage(nil) != "" {
		t.Error("nil error should map to empty text")
	}
	if Class(errors.New("x")) != "other" || Class(ErrTransient) != "transient" {
		t.Error("unexpected class labels")
	}
}

func TestGenerate_RateLimitCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "17")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
	}))
	defer srv.Close()

	c := &GeminiClient{BaseURL: srv.URL, APIKey: "test-key"}
	_, err := c.Generate(context.Background(), "x")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	d, ok := RetryAfter(err)
	if !ok || d != 17*time.Second {
		t.Errorf("RetryAfter = %v, %v; want 17s", d, ok)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"soon", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, ok := RetryAfter(ErrRateLimited); ok {
		t.Error("bare sentinel should carry no retry hint")
	}
}
