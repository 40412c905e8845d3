// Package redis stores recent bar windows and publishes indicator results
// through Redis. Writes go through a circuit breaker so an unavailable
// Redis fails fast instead of stalling refreshes.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"

	"signaldesk/internal/model"
)

const (
	defaultLatestTTL = 30 * time.Minute
	barsKeyPrefix    = "bars:"
	latestKeyPrefix  = "ind:latest:"

	// ResultChannelPrefix prefixes per-symbol result channels.
	ResultChannelPrefix = "pub:ind:"
	// ResultChannelPattern matches every result channel.
	ResultChannelPattern = ResultChannelPrefix + "*"
)

// Config configures the Redis store.
type Config struct {
	Addr      string // e.g. "localhost:6379"
	Password  string
	DB        int
	LatestTTL time.Duration
}

// Store implements model.BarCache and model.ResultPublisher.
type Store struct {
	client    *goredis.Client
	cb        *CircuitBreaker
	latestTTL time.Duration
	log       *slog.Logger
}

// New connects to Redis and pings it.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	ttl := cfg.LatestTTL
	if ttl <= 0 {
		ttl = defaultLatestTTL
	}
	log := slog.Default().With(slog.String("component", "redis"))
	log.Info("connected", "addr", cfg.Addr)

	return &Store{
		client:    client,
		cb:        NewCircuitBreaker(5, 10*time.Second),
		latestTTL: ttl,
		log:       log,
	}, nil
}

// Client returns the underlying client for health checks and pub/sub.
func (s *Store) Client() *goredis.Client { return s.client }

// Breaker exposes the write circuit breaker.
func (s *Store) Breaker() *CircuitBreaker { return s.cb }

// GetBars reads a cached bar window.
func (s *Store) GetBars(ctx context.Context, key string) ([]model.Bar, bool, error) {
	var raw []byte
	err := s.cb.Execute(func() error {
		var err error
		raw, err = s.client.Get(ctx, barsKeyPrefix+key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis get bars %s: %w", key, err)
	}
	if raw == nil {
		return nil, false, nil
	}
	bars, err := DecodeBars(raw)
	if err != nil {
		return nil, false, fmt.Errorf("redis decode bars %s: %w", key, err)
	}
	return bars, true, nil
}

// PutBars caches a bar window for ttl.
func (s *Store) PutBars(ctx context.Context, key string, bars []model.Bar, ttl time.Duration) error {
	raw, err := EncodeBars(bars)
	if err != nil {
		return fmt.Errorf("redis encode bars %s: %w", key, err)
	}
	return s.cb.Execute(func() error {
		return s.client.Set(ctx, barsKeyPrefix+key, raw, ttl).Err()
	})
}

// PublishResult stores the latest result for symbol and publishes it on the
// symbol's channel in one pipeline.
func (s *Store) PublishResult(ctx context.Context, symbol string, payload []byte) error {
	return s.cb.Execute(func() error {
		pipe := s.client.Pipeline()
		pipe.Set(ctx, LatestKey(symbol), payload, s.latestTTL)
		pipe.Publish(ctx, ResultChannel(symbol), payload)
		_, err := pipe.Exec(ctx)
		return err
	})
}

// LatestResult returns the last published result for symbol, or nil.
func (s *Store) LatestResult(ctx context.Context, symbol string) ([]byte, error) {
	raw, err := s.client.Get(ctx, LatestKey(symbol)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	return raw, err
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// LatestKey is the key holding the last result for symbol.
func LatestKey(symbol string) string { return latestKeyPrefix + symbol }

// ResultChannel is the pub/sub channel for symbol's results.
func ResultChannel(symbol string) string { return ResultChannelPrefix + symbol }

// SymbolFromChannel extracts the symbol from a result channel name.
func SymbolFromChannel(channel string) (string, bool) {
	if len(channel) <= len(ResultChannelPrefix) || channel[:len(ResultChannelPrefix)] != ResultChannelPrefix {
		return "", false
	}
	return channel[len(ResultChannelPrefix):], true
}

// EncodeBars serializes bars with msgpack.
func EncodeBars(bars []model.Bar) ([]byte, error) {
	return msgpack.Marshal(bars)
}

// DecodeBars is the inverse of EncodeBars.
func DecodeBars(raw []byte) ([]model.Bar, error) {
	var bars []model.Bar
	if err := msgpack.Unmarshal(raw, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}
