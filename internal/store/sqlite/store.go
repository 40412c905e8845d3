// Package sqlite archives fetched bars and generated signals in a local
// SQLite database (WAL mode, single writer).
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"signaldesk/internal/analysis"
	"signaldesk/internal/model"
)

// Store implements model.BarArchive and the signal log.
type Store struct {
	db  *sqlx.DB
	log *slog.Logger
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log := slog.Default().With(slog.String("component", "sqlite"))
	log.Info("opened database", "path", path)
	return &Store{db: db, log: log}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol   TEXT    NOT NULL,
	interval TEXT    NOT NULL,
	ts       INTEGER NOT NULL,
	open     REAL    NOT NULL,
	high     REAL    NOT NULL,
	low      REAL    NOT NULL,
	close    REAL    NOT NULL,
	volume   REAL    NOT NULL,
	PRIMARY KEY (symbol, interval, ts)
);

CREATE TABLE IF NOT EXISTS signals (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol      TEXT    NOT NULL,
	signal      TEXT    NOT NULL,
	confidence  REAL    NOT NULL,
	entry       REAL,
	stop_loss   REAL,
	take_profit REAL,
	reasoning   TEXT,
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals (symbol, created_at);
`

// DB returns the underlying handle for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// SaveBars upserts bars in one transaction.
func (s *Store) SaveBars(ctx context.Context, symbol, interval string, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, interval, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("sqlite insert bar %s@%d: %w", symbol, b.Time, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	s.log.Debug("bars archived", "symbol", symbol, "count", len(bars), "took", time.Since(start))
	return nil
}

// ReadBars returns archived bars with ts >= since, oldest first.
func (s *Store) ReadBars(ctx context.Context, symbol, interval string, since int64) ([]model.Bar, error) {
	var bars []model.Bar
	err := s.db.SelectContext(ctx, &bars, `
		SELECT ts, open, high, low, close, volume FROM bars
		WHERE symbol = ? AND interval = ? AND ts >= ?
		ORDER BY ts ASC`, symbol, interval, since)
	if err != nil {
		return nil, fmt.Errorf("sqlite read bars %s: %w", symbol, err)
	}
	return bars, nil
}

type signalRow struct {
	Symbol     string  `db:"symbol"`
	Signal     string  `db:"signal"`
	Confidence float64 `db:"confidence"`
	Entry      float64 `db:"entry"`
	StopLoss   float64 `db:"stop_loss"`
	TakeProfit float64 `db:"take_profit"`
	Reasoning  string  `db:"reasoning"`
	CreatedAt  int64   `db:"created_at"`
}

// SaveSignal appends a generated signal to the log.
func (s *Store) SaveSignal(ctx context.Context, sig analysis.Signal) error {
	row := signalRow{
		Symbol:     sig.Symbol,
		Signal:     string(sig.Type),
		Confidence: sig.Confidence,
		Entry:      sig.Entry,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Reasoning:  sig.Reasoning,
		CreatedAt:  sig.CreatedAt.UnixMilli(),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO signals (symbol, signal, confidence, entry, stop_loss, take_profit, reasoning, created_at)
		VALUES (:symbol, :signal, :confidence, :entry, :stop_loss, :take_profit, :reasoning, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("sqlite save signal %s: %w", sig.Symbol, err)
	}
	return nil
}

// RecentSignals returns up to limit signals for symbol, newest first.
func (s *Store) RecentSignals(ctx context.Context, symbol string, limit int) ([]analysis.Signal, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []signalRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT symbol, signal, confidence, entry, stop_loss, take_profit, reasoning, created_at
		FROM signals WHERE symbol = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite recent signals %s: %w", symbol, err)
	}

	out := make([]analysis.Signal, len(rows))
	for i, r := range rows {
		out[i] = analysis.Signal{
			Symbol:     r.Symbol,
			Type:       analysis.SignalType(r.Signal),
			Confidence: r.Confidence,
			Entry:      r.Entry,
			StopLoss:   r.StopLoss,
			TakeProfit: r.TakeProfit,
			Reasoning:  r.Reasoning,
			CreatedAt:  time.UnixMilli(r.CreatedAt).UTC(),
		}
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
