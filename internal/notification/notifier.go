// Package notification delivers alerts about MACD crossovers and generated
// trade signals to external channels (log, webhook, Telegram).
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"signaldesk/internal/analysis"
	"signaldesk/internal/indicator"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// AlertKind tells receivers what produced the alert.
type AlertKind string

const (
	KindCrossover AlertKind = "crossover"
	KindSignal    AlertKind = "signal"
	KindSystem    AlertKind = "system"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Kind    AlertKind  `json:"kind"`
	Symbol  string     `json:"symbol,omitempty"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// CrossoverAlert describes a MACD crossover on the final bar.
func CrossoverAlert(symbol string, m indicator.CrossoverMark) Alert {
	dir := string(m.Kind)
	return Alert{
		Level:   AlertInfo,
		Kind:    KindCrossover,
		Symbol:  symbol,
		Title:   fmt.Sprintf("%s %s MACD crossover", symbol, dir),
		Message: fmt.Sprintf("MACD crossed its signal line (%s) at %s", dir, time.UnixMilli(m.Time).UTC().Format(time.RFC3339)),
	}
}

// SignalAlert describes a generated trade signal.
func SignalAlert(sig analysis.Signal) Alert {
	level := AlertInfo
	if sig.Type != analysis.SignalHold && sig.Confidence >= 75 {
		level = AlertWarning
	}
	return Alert{
		Level:  level,
		Kind:   KindSignal,
		Symbol: sig.Symbol,
		Title:  fmt.Sprintf("%s %s (%.0f%%)", sig.Symbol, sig.Type, sig.Confidence),
		Message: fmt.Sprintf("entry %.2f, stop %.2f, target %.2f. %s",
			sig.Entry, sig.StopLoss, sig.TakeProfit, sig.Reasoning),
	}
}

// LogNotifier logs alerts (useful for development).
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: slog.Default().With(slog.String("component", "notify"))}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	n.log.InfoContext(ctx, alert.Title,
		"level", alert.Level,
		"kind", alert.Kind,
		"symbol", alert.Symbol,
		"message", alert.Message,
	)
	return nil
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
