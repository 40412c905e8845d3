// Package marketdata provides bar sources for the indicator service:
// Binance spot klines, Angel One historical candles and a Redis-backed
// read-through cache in front of either.
package marketdata

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"signaldesk/internal/model"
)

var (
	ErrUnknownSymbol   = errors.New("marketdata: unknown symbol")
	ErrNoBars          = errors.New("marketdata: no bars returned")
	ErrUnknownInterval = errors.New("marketdata: unsupported interval")
)

// intervals lists the supported bar intervals.
var intervals = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// IntervalDuration returns the bar length of an interval such as "5m".
func IntervalDuration(interval string) (time.Duration, error) {
	d, ok := intervals[strings.ToLower(strings.TrimSpace(interval))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownInterval, interval)
	}
	return d, nil
}

// finish validates and trims a fetched window to the last limit bars.
func finish(symbol string, bars []model.Bar, limit int) ([]model.Bar, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoBars, symbol)
	}
	if err := model.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("marketdata: %s: %w", symbol, err)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}
