package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"signaldesk/internal/analysis"
	"signaldesk/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBars_SaveAndRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bars := []model.Bar{
		{Time: 1000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Time: 2000, Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 20},
		{Time: 3000, Open: 2, High: 3, Low: 1.5, Close: 2.5, Volume: 30},
	}
	if err := s.SaveBars(ctx, "BTCUSDT", "5m", bars); err != nil {
		t.Fatal(err)
	}

	// Overlapping window replaces rather than duplicates.
	updated := []model.Bar{{Time: 3000, Open: 2, High: 3.5, Low: 1.5, Close: 3.2, Volume: 35}}
	if err := s.SaveBars(ctx, "BTCUSDT", "5m", updated); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadBars(ctx, "BTCUSDT", "5m", 2000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d bars, want 2", len(got))
	}
	if got[0] != bars[1] || got[1] != updated[0] {
		t.Errorf("unexpected bars %+v", got)
	}

	other, _ := s.ReadBars(ctx, "BTCUSDT", "1h", 0)
	if len(other) != 0 {
		t.Errorf("interval should isolate rows, got %d", len(other))
	}
}

func TestSignals_SaveAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, typ := range []analysis.SignalType{analysis.SignalBuy, analysis.SignalHold, analysis.SignalSell} {
		err := s.SaveSignal(ctx, analysis.Signal{
			Symbol: "ETHUSDT", Type: typ, Confidence: float64(50 + i),
			Entry: 100, StopLoss: 95, TakeProfit: 110, Reasoning: "r",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.RecentSignals(ctx, "ETHUSDT", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d signals", len(got))
	}
	if got[0].Type != analysis.SignalSell || got[1].Type != analysis.SignalHold {
		t.Errorf("expected newest first, got %s, %s", got[0].Type, got[1].Type)
	}
	if !got[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("created_at = %v", got[0].CreatedAt)
	}

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
