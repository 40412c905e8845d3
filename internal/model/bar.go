package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Bar is one OHLCV candle for a symbol. Time is the bucket open time in unix
// milliseconds. Bars are treated as immutable once a source has produced them.
type Bar struct {
	Time   int64   `json:"time" msgpack:"t" db:"ts"`
	Open   float64 `json:"open" msgpack:"o" db:"open"`
	High   float64 `json:"high" msgpack:"h" db:"high"`
	Low    float64 `json:"low" msgpack:"l" db:"low"`
	Close  float64 `json:"close" msgpack:"c" db:"close"`
	Volume float64 `json:"volume" msgpack:"v" db:"volume"`
}

// Timestamp returns the bar open time in UTC.
func (b Bar) Timestamp() time.Time {
	return time.UnixMilli(b.Time).UTC()
}

// Body is the absolute open/close distance.
func (b Bar) Body() float64 {
	if b.Close > b.Open {
		return b.Close - b.Open
	}
	return b.Open - b.Close
}

// Range is high minus low.
func (b Bar) Range() float64 { return b.High - b.Low }

// Bullish reports a bar that closed above its open.
func (b Bar) Bullish() bool { return b.Close > b.Open }

// Bearish reports a bar that closed below its open.
func (b Bar) Bearish() bool { return b.Close < b.Open }

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}

var (
	ErrUnorderedBars  = errors.New("model: bars are not ordered by time")
	ErrNegativeVolume = errors.New("model: bar volume is negative")
)

// ValidateBars checks the ordering and volume invariants a source must
// uphold before bars reach the indicator kernels.
func ValidateBars(bars []Bar) error {
	for i, b := range bars {
		if b.Volume < 0 {
			return fmt.Errorf("%w: index %d", ErrNegativeVolume, i)
		}
		if i > 0 && b.Time < bars[i-1].Time {
			return fmt.Errorf("%w: index %d (%d < %d)", ErrUnorderedBars, i, b.Time, bars[i-1].Time)
		}
	}
	return nil
}

// Closes extracts the close prices.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the traded volumes.
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
