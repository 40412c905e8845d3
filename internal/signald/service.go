// Package signald runs the signal service: it refreshes bar windows for a
// fixed symbol list on a cron schedule, computes indicators, publishes the
// results and asks the analysis service for trade signals on demand.
package signald

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"signaldesk/internal/analysis"
	"signaldesk/internal/indicator"
	"signaldesk/internal/logger"
	"signaldesk/internal/marketdata"
	"signaldesk/internal/metrics"
	"signaldesk/internal/model"
	"signaldesk/internal/notification"
)

var (
	ErrAnalysisDisabled = errors.New("signald: analysis service is not configured")
)

// recentSignalCap bounds the in-memory signal history kept when no
// SignalStore is configured.
const recentSignalCap = 20

// SignalAnalyzer produces a trade signal from an indicator snapshot.
type SignalAnalyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (analysis.Signal, error)
}

// SignalStore persists generated signals.
type SignalStore interface {
	SaveSignal(ctx context.Context, sig analysis.Signal) error
	RecentSignals(ctx context.Context, symbol string, limit int) ([]analysis.Signal, error)
}

// MarketSession pauses refreshes outside trading hours.
type MarketSession interface {
	IsOpen(t time.Time) bool
	Status(t time.Time) string
}

// Options configures what the service tracks.
type Options struct {
	Symbols     []string
	Interval    string
	Settings    indicator.Settings
	RefreshSpec string        // cron spec, e.g. "@every 1m"
	Session     MarketSession // nil means always open
}

// Deps are the collaborators. Only Source is required.
type Deps struct {
	Source    model.BarSource
	Archive   model.BarArchive
	Publisher model.ResultPublisher
	Analyzer  SignalAnalyzer
	Signals   SignalStore
	Notifier  notification.Notifier
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
}

// Service is the top-level orchestrator.
type Service struct {
	opts    Options
	deps    Deps
	tracked map[string]bool
	log     *slog.Logger
	now     func() time.Time

	mu         sync.RWMutex
	latest     map[string]Snapshot
	recent     map[string][]analysis.Signal
	lastAlerts map[string]int64 // symbol -> time of last alerted crossover
}

// New validates options and returns a Service.
func New(opts Options, deps Deps) (*Service, error) {
	if deps.Source == nil {
		return nil, errors.New("signald: a bar source is required")
	}
	if len(opts.Symbols) == 0 {
		return nil, errors.New("signald: no symbols configured")
	}
	if opts.RefreshSpec == "" {
		opts.RefreshSpec = "@every 1m"
	}
	opts.Settings = opts.Settings.Normalize()

	tracked := make(map[string]bool, len(opts.Symbols))
	for _, s := range opts.Symbols {
		tracked[s] = true
	}
	if deps.Health != nil {
		deps.Health.SetSymbols(len(opts.Symbols))
	}

	return &Service{
		opts:       opts,
		deps:       deps,
		tracked:    tracked,
		log:        logger.Component("signald"),
		now:        time.Now,
		latest:     make(map[string]Snapshot),
		recent:     make(map[string][]analysis.Signal),
		lastAlerts: make(map[string]int64),
	}, nil
}

// Symbols returns the tracked symbols in configuration order.
func (s *Service) Symbols() []string {
	out := make([]string, len(s.opts.Symbols))
	copy(out, s.opts.Symbols)
	return out
}

// Interval returns the bar interval.
func (s *Service) Interval() string { return s.opts.Interval }

// Latest returns the last computed snapshot for symbol.
func (s *Service) Latest(symbol string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.latest[symbol]
	return snap, ok
}

func (s *Service) check(symbol string) error {
	if !s.tracked[symbol] {
		return fmt.Errorf("%w: %s", marketdata.ErrUnknownSymbol, symbol)
	}
	return nil
}

// Refresh fetches bars for symbol, recomputes indicators and publishes the
// snapshot. Archive and publish failures are logged, not returned.
func (s *Service) Refresh(ctx context.Context, symbol string) (snap Snapshot, err error) {
	if err := s.check(symbol); err != nil {
		return Snapshot{}, err
	}
	ctx = logger.WithTraceID(ctx, logger.NewTraceID(symbol))
	log := s.log.With(logger.LogWithTrace(ctx)...)
	start := time.Now()
	defer func() {
		if s.deps.Metrics != nil {
			s.deps.Metrics.ObserveRefresh(time.Since(start), err)
		}
	}()

	bars, err := s.deps.Source.Fetch(ctx, symbol)
	if err != nil {
		log.Warn("fetch failed", "symbol", symbol, "error", err)
		return Snapshot{}, fmt.Errorf("signald: refresh %s: %w", symbol, err)
	}

	if s.deps.Archive != nil {
		if err := s.deps.Archive.SaveBars(ctx, symbol, s.opts.Interval, bars); err != nil {
			log.Warn("archive failed", "symbol", symbol, "error", err)
		}
	}

	computeStart := time.Now()
	result := indicator.ComputeWith(bars, s.opts.Settings)
	if s.deps.Metrics != nil {
		s.deps.Metrics.IndicatorCompute.Observe(time.Since(computeStart).Seconds())
	}

	snap = Snapshot{
		Symbol:     symbol,
		Interval:   s.opts.Interval,
		UpdatedAt:  s.now().UTC(),
		Bars:       bars,
		Indicators: result,
	}
	if len(bars) > 0 {
		snap.LastClose = bars[len(bars)-1].Close
	}

	s.mu.Lock()
	s.latest[symbol] = snap
	s.mu.Unlock()

	s.publish(ctx, log, snap)
	s.alertCrossover(ctx, log, snap)

	if s.deps.Health != nil {
		s.deps.Health.SetLastRefresh(snap.UpdatedAt)
	}
	log.Debug("refreshed",
		"symbol", symbol, "bars", len(bars), "took", time.Since(start))
	return snap, nil
}

func (s *Service) publish(ctx context.Context, log *slog.Logger, snap Snapshot) {
	if s.deps.Publisher == nil {
		return
	}
	payload, err := snap.JSON()
	if err != nil {
		log.Error("encode snapshot", "symbol", snap.Symbol, "error", err)
		return
	}
	if err := s.deps.Publisher.PublishResult(ctx, snap.Symbol, payload); err != nil {
		log.Warn("publish failed", "symbol", snap.Symbol, "error", err)
	}
}

// alertCrossover notifies once per crossover bar.
func (s *Service) alertCrossover(ctx context.Context, log *slog.Logger, snap Snapshot) {
	if s.deps.Notifier == nil {
		return
	}
	mark, ok := snap.Indicators.LatestCrossover()
	if !ok {
		return
	}
	s.mu.Lock()
	seen := s.lastAlerts[snap.Symbol] == mark.Time
	s.lastAlerts[snap.Symbol] = mark.Time
	s.mu.Unlock()
	if seen {
		return
	}
	if err := s.deps.Notifier.Send(ctx, notification.CrossoverAlert(snap.Symbol, mark)); err != nil {
		log.Warn("crossover alert failed", "symbol", snap.Symbol, "error", err)
	}
}

// MarketStatus describes the configured session, or "" without one.
func (s *Service) MarketStatus() string {
	if s.opts.Session == nil {
		return ""
	}
	return s.opts.Session.Status(s.now())
}

// RefreshAll refreshes every tracked symbol, one after another. While the
// market session is closed, symbols that already have a snapshot are
// skipped. It returns the joined per-symbol errors.
func (s *Service) RefreshAll(ctx context.Context) error {
	closed := s.opts.Session != nil && !s.opts.Session.IsOpen(s.now())

	var errs []error
	for _, symbol := range s.opts.Symbols {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, ok := s.Latest(symbol); ok && closed {
			continue
		}
		if _, err := s.Refresh(ctx, symbol); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Analyze asks the analysis service for a signal on symbol's latest
// snapshot, refreshing first if nothing has been computed yet.
func (s *Service) Analyze(ctx context.Context, symbol string) (analysis.Signal, error) {
	if err := s.check(symbol); err != nil {
		return analysis.Signal{}, err
	}
	if s.deps.Analyzer == nil {
		return analysis.Signal{}, ErrAnalysisDisabled
	}

	snap, ok := s.Latest(symbol)
	if !ok {
		var err error
		if snap, err = s.Refresh(ctx, symbol); err != nil {
			return analysis.Signal{}, err
		}
	}

	sig, err := s.deps.Analyzer.Analyze(ctx, analysis.Request{
		Symbol:    symbol,
		Interval:  snap.Interval,
		LastClose: snap.LastClose,
		Result:    snap.Indicators,
		Settings:  s.opts.Settings,
	})
	if err != nil {
		return analysis.Signal{}, err
	}

	s.mu.Lock()
	hist := append([]analysis.Signal{sig}, s.recent[symbol]...)
	if len(hist) > recentSignalCap {
		hist = hist[:recentSignalCap]
	}
	s.recent[symbol] = hist
	s.mu.Unlock()

	if s.deps.Signals != nil {
		if err := s.deps.Signals.SaveSignal(ctx, sig); err != nil {
			s.log.Warn("save signal failed", "symbol", symbol, "error", err)
		}
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.Send(ctx, notification.SignalAlert(sig)); err != nil {
			s.log.Warn("signal alert failed", "symbol", symbol, "error", err)
		}
	}
	return sig, nil
}

// RecentSignals returns up to limit signals for symbol, newest first.
func (s *Service) RecentSignals(ctx context.Context, symbol string, limit int) ([]analysis.Signal, error) {
	if err := s.check(symbol); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > recentSignalCap {
		limit = recentSignalCap
	}
	if s.deps.Signals != nil {
		return s.deps.Signals.RecentSignals(ctx, symbol, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	hist := s.recent[symbol]
	if len(hist) > limit {
		hist = hist[:limit]
	}
	out := make([]analysis.Signal, len(hist))
	copy(out, hist)
	return out, nil
}

// Run refreshes all symbols once, then on the cron schedule, alongside any
// extra runners (HTTP servers, pub/sub relays). It blocks until ctx is
// cancelled or a runner fails.
func (s *Service) Run(ctx context.Context, runners ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := c.AddFunc(s.opts.RefreshSpec, func() {
		if err := s.RefreshAll(gctx); err != nil {
			s.log.Warn("scheduled refresh had failures", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("signald: refresh spec %q: %w", s.opts.RefreshSpec, err)
	}

	g.Go(func() error {
		if err := s.RefreshAll(gctx); err != nil {
			s.log.Warn("initial refresh had failures", "error", err)
		}
		c.Start()
		s.log.Info("refresh schedule started", "spec", s.opts.RefreshSpec, "symbols", len(s.opts.Symbols))
		<-gctx.Done()
		<-c.Stop().Done()
		return nil
	})
	for _, run := range runners {
		run := run
		g.Go(func() error { return run(gctx) })
	}

	err := g.Wait()
	s.log.Info("stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
