// Package analysis turns indicator snapshots into trading signals by asking
// an external analysis service. Every call to the service goes through a
// scheduler lane so the configured request cadence is never exceeded.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"signaldesk/internal/scheduler"
)

// Generator is the external analysis service.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Analyzer builds prompts, paces service calls and parses the answers.
type Analyzer struct {
	gen   Generator
	lane  *scheduler.Scheduler
	log   *slog.Logger
	now   func() time.Time
	onErr func(error)
}

// NewAnalyzer wires a Generator to a scheduler lane. onErr, if non-nil, is
// called for every failed analysis (used for metrics).
func NewAnalyzer(gen Generator, lane *scheduler.Scheduler, log *slog.Logger, onErr func(error)) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{
		gen:   gen,
		lane:  lane,
		log:   log.With(slog.String("component", "analysis")),
		now:   time.Now,
		onErr: onErr,
	}
}

// Analyze requests a signal for req. The service call is queued on the
// analyzer's lane; ctx bounds only the caller's wait, not the queued call.
// Service errors are returned unchanged.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Signal, error) {
	prompt := BuildPrompt(req)

	text, err := scheduler.Run(ctx, a.lane, func() (string, error) {
		// The queued call outlives the caller's ctx.
		return a.gen.Generate(context.WithoutCancel(ctx), prompt)
	})
	if err != nil {
		a.fail(req.Symbol, err)
		return Signal{}, err
	}

	sig, err := ParseSignal(text)
	if err != nil {
		a.fail(req.Symbol, err)
		return Signal{}, err
	}
	sig.Symbol = req.Symbol
	sig.CreatedAt = a.now().UTC()

	a.log.Info("signal generated", "symbol", req.Symbol, "signal", sig.Type, "confidence", sig.Confidence)
	return sig, nil
}

func (a *Analyzer) fail(symbol string, err error) {
	a.log.Warn("analysis failed", "symbol", symbol, "class", Class(err), "error", err)
	if a.onErr != nil {
		a.onErr(err)
	}
}
