// Package indicator derives technical indicators from bar windows.
//
// The kernels (SMA, EMA, SMMA, RSI) are O(1) streaming accumulators. The
// series functions drive them over a slice and return values aligned by bar
// index, with NaN marking positions that lack enough lookback. Compute ties
// everything together into the Result consumed by the API and the analysis
// prompt. Nothing in this package keeps state between calls.
package indicator

// Accumulator is the interface for the streaming kernels.
type Accumulator interface {
	// Name returns the kernel name with its period (e.g. "EMA_12").
	Name() string

	// Add feeds the next value.
	Add(v float64)

	// Value returns the current value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough values have been accumulated.
	Ready() bool
}

var (
	_ Accumulator = (*SMA)(nil)
	_ Accumulator = (*EMA)(nil)
	_ Accumulator = (*SMMA)(nil)
	_ Accumulator = (*RSI)(nil)
)
