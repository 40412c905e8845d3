// Package smartconnect is a small client for the Angel One SmartAPI REST
// endpoints needed to pull historical candles: password+TOTP login and the
// getCandleData route.
//
// Usage example:
//
//	sc := smartconnect.New(smartconnect.Config{APIKey: "your_api_key"})
//	if err := sc.Login(ctx, "CLIENTID", "PIN", totpCode); err != nil { ... }
//	rows, err := sc.CandleData(ctx, smartconnect.CandleParams{
//	    Exchange: "NSE", SymbolToken: "3045", Interval: "FIVE_MINUTE",
//	    From: time.Now().Add(-24 * time.Hour), To: time.Now(),
//	})
package smartconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultRoot    = "https://apiconnect.angelone.in"
	defaultTimeout = 7 * time.Second

	// DateLayout is the timestamp format used by getCandleData parameters.
	DateLayout = "2006-01-02 15:04"
)

var routes = map[string]string{
	"api.login":       "/rest/auth/angelbroking/user/v1/loginByPassword",
	"api.candle.data": "/rest/secure/angelbroking/historical/v1/getCandleData",
}

var (
	// ErrTokenExpired is returned when the API reports a TokenException.
	ErrTokenExpired = errors.New("smartconnect: session token expired")
	// ErrNotLoggedIn is returned by authenticated calls before Login.
	ErrNotLoggedIn = errors.New("smartconnect: not logged in")
)

// APIError is an error payload returned by SmartAPI.
type APIError struct {
	Status    int
	ErrorType string
	Code      string
	Message   string
}

func (e *APIError) Error() string {
	kind := e.ErrorType
	if kind == "" {
		kind = e.Code
	}
	return fmt.Sprintf("smartconnect: status=%d %s: %s", e.Status, kind, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.ErrorType == "TokenException" || e.Code == "AG8001" {
		return ErrTokenExpired
	}
	return nil
}

// Config configures a Client.
type Config struct {
	APIKey         string
	RootURL        string        // default: https://apiconnect.angelone.in
	Timeout        time.Duration // default: 7s
	ClientLocalIP  string        // default: first non-loopback IPv4
	ClientPublicIP string        // default: ClientLocalIP
	ClientMAC      string        // default: first interface hardware address
	HTTPClient     *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	apiKey     string
	rootURL    string
	httpClient *http.Client

	clientLocalIP  string
	clientPublicIP string
	clientMAC      string

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	feedToken    string
}

// New creates a Client. No network calls are made.
func New(cfg Config) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ClientLocalIP == "" {
		cfg.ClientLocalIP = localIP()
	}
	if cfg.ClientPublicIP == "" {
		cfg.ClientPublicIP = cfg.ClientLocalIP
	}
	if cfg.ClientMAC == "" {
		cfg.ClientMAC = macAddress()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		apiKey:         cfg.APIKey,
		rootURL:        strings.TrimRight(cfg.RootURL, "/"),
		httpClient:     hc,
		clientLocalIP:  cfg.ClientLocalIP,
		clientPublicIP: cfg.ClientPublicIP,
		clientMAC:      cfg.ClientMAC,
	}
}

// LoggedIn reports whether a session token is held.
func (c *Client) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken != ""
}

// Logout drops the held tokens locally.
func (c *Client) Logout() {
	c.mu.Lock()
	c.accessToken, c.refreshToken, c.feedToken = "", "", ""
	c.mu.Unlock()
}

// Login exchanges client code, PIN and a TOTP code for session tokens.
func (c *Client) Login(ctx context.Context, clientCode, password, totp string) error {
	var out struct {
		Data struct {
			JWTToken     string `json:"jwtToken"`
			RefreshToken string `json:"refreshToken"`
			FeedToken    string `json:"feedToken"`
		} `json:"data"`
	}
	params := map[string]any{"clientcode": clientCode, "password": password, "totp": totp}
	if err := c.post(ctx, "api.login", params, false, &out); err != nil {
		return fmt.Errorf("smartconnect: login: %w", err)
	}
	if out.Data.JWTToken == "" {
		return errors.New("smartconnect: login: response carried no token")
	}

	c.mu.Lock()
	c.accessToken = out.Data.JWTToken
	c.refreshToken = out.Data.RefreshToken
	c.feedToken = out.Data.FeedToken
	c.mu.Unlock()
	return nil
}

// CandleParams selects a historical candle window.
type CandleParams struct {
	Exchange    string
	SymbolToken string
	Interval    string // ONE_MINUTE, FIVE_MINUTE, ..., ONE_DAY
	From, To    time.Time
}

// CandleRow is one historical candle as returned by SmartAPI.
type CandleRow struct {
	Time                           time.Time
	Open, High, Low, Close, Volume float64
}

// CandleData fetches historical candles, oldest first.
func (c *Client) CandleData(ctx context.Context, p CandleParams) ([]CandleRow, error) {
	var out struct {
		Data [][]json.RawMessage `json:"data"`
	}
	params := map[string]any{
		"exchange":    p.Exchange,
		"symboltoken": p.SymbolToken,
		"interval":    p.Interval,
		"fromdate":    p.From.Format(DateLayout),
		"todate":      p.To.Format(DateLayout),
	}
	if err := c.post(ctx, "api.candle.data", params, true, &out); err != nil {
		return nil, fmt.Errorf("smartconnect: candle data %s:%s: %w", p.Exchange, p.SymbolToken, err)
	}

	rows := make([]CandleRow, 0, len(out.Data))
	for i, raw := range out.Data {
		row, err := parseCandleRow(raw)
		if err != nil {
			return nil, fmt.Errorf("smartconnect: candle row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCandleRow(raw []json.RawMessage) (CandleRow, error) {
	if len(raw) < 6 {
		return CandleRow{}, fmt.Errorf("expected 6 fields, got %d", len(raw))
	}
	var ts string
	if err := json.Unmarshal(raw[0], &ts); err != nil {
		return CandleRow{}, fmt.Errorf("timestamp: %w", err)
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return CandleRow{}, fmt.Errorf("timestamp %q: %w", ts, err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		if err := json.Unmarshal(raw[i+1], &vals[i]); err != nil {
			return CandleRow{}, fmt.Errorf("field %d: %w", i+1, err)
		}
	}
	return CandleRow{Time: t, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}, nil
}

// ---- Helpers ----

func (c *Client) requestHeaders(auth bool) (http.Header, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-ClientLocalIP", c.clientLocalIP)
	h.Set("X-ClientPublicIP", c.clientPublicIP)
	h.Set("X-MACAddress", c.clientMAC)
	h.Set("X-PrivateKey", c.apiKey)
	h.Set("X-UserType", "USER")
	h.Set("X-SourceID", "WEB")
	if auth {
		c.mu.RLock()
		token := c.accessToken
		c.mu.RUnlock()
		if token == "" {
			return nil, ErrNotLoggedIn
		}
		h.Set("Authorization", "Bearer "+token)
	}
	return h, nil
}

func (c *Client) post(ctx context.Context, route string, params map[string]any, auth bool, out any) error {
	uri, ok := routes[route]
	if !ok {
		return fmt.Errorf("unknown route: %s", route)
	}
	hdr, err := c.requestHeaders(auth)
	if err != nil {
		return err
	}
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rootURL+uri, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header = hdr

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// Error style: {"error_type": "TokenException", "message": "..."} or
	// {"status": false, "errorcode": "AB1010", "message": "..."}
	var env struct {
		Status    *bool  `json:"status"`
		Message   string `json:"message"`
		ErrorCode string `json:"errorcode"`
		ErrorType string `json:"error_type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("couldn't parse JSON response (status %d): %w", resp.StatusCode, err)
	}
	if env.ErrorType != "" || (env.Status != nil && !*env.Status) || resp.StatusCode/100 != 2 {
		return &APIError{Status: resp.StatusCode, ErrorType: env.ErrorType, Code: env.ErrorCode, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, address := range addrs {
		if ipNet, ok := address.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			return ipNet.IP.String()
		}
	}
	return "127.0.0.1"
}

func macAddress() string {
	ifs, _ := net.Interfaces()
	for _, ifc := range ifs {
		if len(ifc.HardwareAddr) > 0 {
			return ifc.HardwareAddr.String()
		}
	}
	return "00:11:22:33:44:55"
}
