package marketdata

import (
	"context"
	"log/slog"
	"time"

	"signaldesk/internal/model"
)

// CachedSource is a read-through cache in front of another BarSource.
// Cache failures are logged and never fail a fetch.
type CachedSource struct {
	source   model.BarSource
	cache    model.BarCache
	interval string
	ttl      time.Duration
	log      *slog.Logger
}

// NewCachedSource wraps source. Entries are keyed by symbol and interval and
// expire after ttl.
func NewCachedSource(source model.BarSource, cache model.BarCache, interval string, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source:   source,
		cache:    cache,
		interval: interval,
		ttl:      ttl,
		log:      slog.Default().With(slog.String("component", "barcache")),
	}
}

// CacheKey returns the cache key for a symbol and interval.
func CacheKey(symbol, interval string) string {
	return symbol + "@" + interval
}

// Fetch serves from the cache when possible, otherwise from the wrapped
// source, storing the result.
func (c *CachedSource) Fetch(ctx context.Context, symbol string) ([]model.Bar, error) {
	key := CacheKey(symbol, c.interval)

	bars, ok, err := c.cache.GetBars(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed", "key", key, "error", err)
	} else if ok {
		return bars, nil
	}

	bars, err = c.source.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := c.cache.PutBars(ctx, key, bars, c.ttl); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
	return bars, nil
}
