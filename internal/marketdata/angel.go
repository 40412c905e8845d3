package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"signaldesk/internal/model"
	"signaldesk/internal/scheduler"
	"signaldesk/pkg/smartconnect"
)

// angelIntervals maps bar intervals to SmartAPI interval names.
var angelIntervals = map[string]string{
	"1m":  "ONE_MINUTE",
	"3m":  "THREE_MINUTE",
	"5m":  "FIVE_MINUTE",
	"15m": "FIFTEEN_MINUTE",
	"30m": "THIRTY_MINUTE",
	"1h":  "ONE_HOUR",
	"1d":  "ONE_DAY",
}

// AngelCredentials are the SmartAPI login inputs. TOTPSecret is the base32
// seed shown when TOTP was enabled on the account.
type AngelCredentials struct {
	ClientCode string
	Password   string
	TOTPSecret string
}

// CandleClient is the subset of smartconnect.Client used by AngelSource.
type CandleClient interface {
	Login(ctx context.Context, clientCode, password, totp string) error
	LoggedIn() bool
	CandleData(ctx context.Context, p smartconnect.CandleParams) ([]smartconnect.CandleRow, error)
}

// AngelSource fetches historical candles from Angel One. Symbols are
// "EXCHANGE:TOKEN" (e.g. "NSE:3045"). Every API call is queued on lane so
// the historical endpoint's rate limit is respected.
type AngelSource struct {
	client   CandleClient
	creds    AngelCredentials
	lane     *scheduler.Scheduler
	interval string
	span     time.Duration
	limit    int
	now      func() time.Time
	log      *slog.Logger

	loginMu sync.Mutex
}

// NewAngelSource creates a source. The lookback window covers limit bars
// four times over so closed-market hours do not starve the window.
func NewAngelSource(client CandleClient, creds AngelCredentials, lane *scheduler.Scheduler, interval string, limit int) (*AngelSource, error) {
	if _, ok := angelIntervals[interval]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterval, interval)
	}
	d, _ := IntervalDuration(interval)
	if limit <= 0 {
		limit = 200
	}
	return &AngelSource{
		client:   client,
		creds:    creds,
		lane:     lane,
		interval: interval,
		span:     d * time.Duration(limit) * 4,
		limit:    limit,
		now:      time.Now,
		log:      slog.Default().With(slog.String("component", "angel")),
	}, nil
}

// Fetch returns the most recent bars for an "EXCHANGE:TOKEN" symbol.
func (s *AngelSource) Fetch(ctx context.Context, symbol string) ([]model.Bar, error) {
	exchange, token, ok := strings.Cut(symbol, ":")
	if !ok || exchange == "" || token == "" {
		return nil, fmt.Errorf("%w: %q (want EXCHANGE:TOKEN)", ErrUnknownSymbol, symbol)
	}

	if err := s.ensureSession(ctx); err != nil {
		return nil, err
	}

	to := s.now()
	params := smartconnect.CandleParams{
		Exchange:    strings.ToUpper(exchange),
		SymbolToken: token,
		Interval:    angelIntervals[s.interval],
		From:        to.Add(-s.span),
		To:          to,
	}

	rows, err := s.candles(ctx, params)
	if errors.Is(err, smartconnect.ErrTokenExpired) {
		s.log.Warn("session expired, logging in again", "symbol", symbol)
		if err := s.login(ctx); err != nil {
			return nil, err
		}
		rows, err = s.candles(ctx, params)
	}
	if err != nil {
		return nil, fmt.Errorf("marketdata: angel %s: %w", symbol, err)
	}

	bars := make([]model.Bar, len(rows))
	for i, r := range rows {
		bars[i] = model.Bar{
			Time:   r.Time.UnixMilli(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return finish(symbol, bars, s.limit)
}

func (s *AngelSource) candles(ctx context.Context, p smartconnect.CandleParams) ([]smartconnect.CandleRow, error) {
	return scheduler.Run(ctx, s.lane, func() ([]smartconnect.CandleRow, error) {
		return s.client.CandleData(context.WithoutCancel(ctx), p)
	})
}

func (s *AngelSource) ensureSession(ctx context.Context) error {
	if s.client.LoggedIn() {
		return nil
	}
	return s.login(ctx)
}

func (s *AngelSource) login(ctx context.Context) error {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	code, err := totp.GenerateCode(s.creds.TOTPSecret, s.now())
	if err != nil {
		return fmt.Errorf("marketdata: angel totp: %w", err)
	}
	_, err = scheduler.Run(ctx, s.lane, func() (struct{}, error) {
		return struct{}{}, s.client.Login(context.WithoutCancel(ctx), s.creds.ClientCode, s.creds.Password, code)
	})
	if err != nil {
		return fmt.Errorf("marketdata: angel login: %w", err)
	}
	s.log.Info("angel session established", "client", s.creds.ClientCode)
	return nil
}
