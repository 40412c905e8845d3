package model

import (
	"context"
	"time"
)

// ── Port Interfaces ──
// These interfaces decouple the service from concrete sources and stores
// (Binance, Angel One, Redis, SQLite).

// BarSource supplies an ordered window of bars for a symbol on demand.
type BarSource interface {
	// Fetch returns bars ordered by non-decreasing Time.
	Fetch(ctx context.Context, symbol string) ([]Bar, error)
}

// BarCache stores recently fetched bar windows.
type BarCache interface {
	// GetBars returns the cached window, or ok=false on a miss.
	GetBars(ctx context.Context, key string) (bars []Bar, ok bool, err error)

	// PutBars stores a window with the given time-to-live.
	PutBars(ctx context.Context, key string, bars []Bar, ttl time.Duration) error
}

// BarArchive persists fetched bars for later inspection.
type BarArchive interface {
	// SaveBars upserts bars for a symbol and interval.
	SaveBars(ctx context.Context, symbol, interval string, bars []Bar) error

	// ReadBars returns archived bars with Time >= since, oldest first.
	ReadBars(ctx context.Context, symbol, interval string, since int64) ([]Bar, error)
}

// ResultPublisher pushes a JSON-encoded indicator snapshot for a symbol to
// downstream consumers.
type ResultPublisher interface {
	PublishResult(ctx context.Context, symbol string, payload []byte) error
}
