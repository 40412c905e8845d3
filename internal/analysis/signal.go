package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SignalType is the recommended action.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// Signal is a parsed trading recommendation.
type Signal struct {
	Symbol     string     `json:"symbol" db:"symbol"`
	Type       SignalType `json:"signal" db:"signal"`
	Confidence float64    `json:"confidence" db:"confidence"`
	Entry      float64    `json:"entry" db:"entry"`
	StopLoss   float64    `json:"stopLoss" db:"stop_loss"`
	TakeProfit float64    `json:"takeProfit" db:"take_profit"`
	Reasoning  string     `json:"reasoning" db:"reasoning"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// ParseSignal decodes the service's JSON answer. Markdown code fences and
// surrounding prose are tolerated. Unknown signal names become HOLD and
// confidence is clamped to [0, 100].
func ParseSignal(text string) (Signal, error) {
	raw := extractJSONObject(text)
	if raw == "" {
		return Signal{}, fmt.Errorf("%w: no JSON object in response", ErrEmptyResponse)
	}

	var wire struct {
		Signal     string  `json:"signal"`
		Confidence float64 `json:"confidence"`
		Entry      float64 `json:"entry"`
		StopLoss   float64 `json:"stopLoss"`
		TakeProfit float64 `json:"takeProfit"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Signal{}, fmt.Errorf("analysis: decode signal: %w", err)
	}

	s := Signal{
		Type:       normalizeSignalType(wire.Signal),
		Confidence: wire.Confidence,
		Entry:      wire.Entry,
		StopLoss:   wire.StopLoss,
		TakeProfit: wire.TakeProfit,
		Reasoning:  strings.TrimSpace(wire.Reasoning),
	}
	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 100 {
		s.Confidence = 100
	}
	return s, nil
}

func normalizeSignalType(v string) SignalType {
	switch SignalType(strings.ToUpper(strings.TrimSpace(v))) {
	case SignalBuy:
		return SignalBuy
	case SignalSell:
		return SignalSell
	}
	return SignalHold
}

func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
