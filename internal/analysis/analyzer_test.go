package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"signaldesk/internal/indicator"
	"signaldesk/internal/scheduler"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []time.Time
	prompts []string
	reply   string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, time.Now())
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func TestAnalyze_ParsesSignal(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n{\"signal\":\"buy\",\"confidence\":130,\"entry\":101.5,\"stopLoss\":99,\"takeProfit\":106,\"reasoning\":\" MACD crossed up \"}\n```"}
	lane := scheduler.New(scheduler.Config{Name: "analysis-test", Interval: 5 * time.Millisecond})
	a := NewAnalyzer(gen, lane, nil, nil)

	rsi := 61.234
	sig, err := a.Analyze(context.Background(), Request{
		Symbol: "BTCUSDT", Interval: "5m", LastClose: 101.5,
		Result: indicator.Result{Bars: 50, LatestRSI: &rsi},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sig.Type != SignalBuy || sig.Confidence != 100 || sig.Symbol != "BTCUSDT" || sig.Reasoning != "MACD crossed up" {
		t.Errorf("unexpected signal %+v", sig)
	}
	if sig.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if !strings.Contains(gen.prompts[0], "RSI(14): 61.23") {
		t.Errorf("prompt missing RSI: %s", gen.prompts[0])
	}
	if !strings.Contains(gen.prompts[0], "MACD(12,26,9): N/A") {
		t.Errorf("prompt should mark MACD as N/A: %s", gen.prompts[0])
	}
}

func TestAnalyze_ForwardsServiceError(t *testing.T) {
	gen := &fakeGenerator{err: &StatusError{Class: ErrRateLimited, Status: 429, Message: "quota"}}
	lane := scheduler.New(scheduler.Config{Interval: time.Millisecond})

	var seen []error
	a := NewAnalyzer(gen, lane, nil, func(err error) { seen = append(seen, err) })

	_, err := a.Analyze(context.Background(), Request{Symbol: "ETHUSDT"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(seen) != 1 {
		t.Errorf("onErr called %d times", len(seen))
	}
}

func TestAnalyze_ConcurrentCallersArePaced(t *testing.T) {
	interval := 30 * time.Millisecond
	gen := &fakeGenerator{reply: `{"signal":"HOLD","confidence":50}`}
	lane := scheduler.New(scheduler.Config{Interval: interval})
	a := NewAnalyzer(gen, lane, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Analyze(context.Background(), Request{Symbol: "X"}); err != nil {
				t.Errorf("Analyze: %v", err)
			}
		}()
	}
	wg.Wait()

	gen.mu.Lock()
	defer gen.mu.Unlock()
	if len(gen.calls) != 3 {
		t.Fatalf("calls = %d", len(gen.calls))
	}
	for i := 1; i < len(gen.calls); i++ {
		if gap := gen.calls[i].Sub(gen.calls[i-1]); gap < interval {
			t.Errorf("call %d only %v after previous", i, gap)
		}
	}
}

func TestParseSignal(t *testing.T) {
	sig, err := ParseSignal(`Here you go: {"signal":"SELL","confidence":72,"entry":10,"stopLoss":11,"takeProfit":8,"reasoning":"bearish engulfing"} thanks`)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Type != SignalSell || sig.Confidence != 72 || sig.StopLoss != 11 {
		t.Errorf("unexpected %+v", sig)
	}

	sig, err = ParseSignal(`{"signal":"STRONG BUY","confidence":-5}`)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Type != SignalHold || sig.Confidence != 0 {
		t.Errorf("unknown signal should become HOLD with clamped confidence, got %+v", sig)
	}

	if _, err := ParseSignal("no json here"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestBuildPrompt_Marks(t *testing.T) {
	macd := indicator.MACDValue{Line: 1.2345, Signal: 0.5, Histogram: 0.7345}
	res := indicator.Result{
		Bars:       40,
		LatestMACD: &macd,
		History: indicator.History{
			VolumeAnomalies: append(make([]bool, 39), true),
			Patterns:        []indicator.PatternMark{{Index: 38, Kind: indicator.PatternHammer}},
			Crossovers:      []indicator.CrossoverMark{{Index: 39, Kind: indicator.CrossoverBullish}},
		},
	}
	p := BuildPrompt(Request{Symbol: "SOLUSDT", Interval: "1h", LastClose: 150, Result: res})
	for _, want := range []string{
		"SOLUSDT on the 1h timeframe",
		"RSI(14): N/A",
		"line 1.23, signal 0.50, histogram 0.73",
		"volume spike",
		"hammer at bar 38 (1 bars ago)",
		"bullish at bar 39 (0 bars ago)",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestBuildPrompt_UsesConfiguredPeriods(t *testing.T) {
	rsi := 48.5
	macd := indicator.MACDValue{Line: 0.1, Signal: 0.2, Histogram: -0.1}
	set := indicator.Settings{RSIPeriod: 7, MACDFast: 5, MACDSlow: 35, MACDSignal: 5, VolumePeriod: 10, VolumeMultiple: 2}
	res := indicator.Result{
		Bars:       60,
		LatestRSI:  &rsi,
		LatestMACD: &macd,
		History:    indicator.History{VolumeAnomalies: append(make([]bool, 59), true)},
	}
	p := BuildPrompt(Request{Symbol: "BTCUSDT", Interval: "15m", Result: res, Settings: set})
	for _, want := range []string{"RSI(7): 48.50", "MACD(5,35,5): line 0.10", "2.00x its 10-bar average"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
	if strings.Contains(p, "RSI(14)") || strings.Contains(p, "MACD(12,26,9)") {
		t.Errorf("prompt still shows default periods:\n%s", p)
	}
}
