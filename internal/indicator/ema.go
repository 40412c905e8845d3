package indicator

import "strconv"

// EMA calculates Exponential Moving Average seeded with the SMA of the first
// period values. O(1) per update, no window storage needed.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

// NewEMA creates a new EMA with the given period.
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 1
	}
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return "EMA_" + strconv.Itoa(e.period) }

func (e *EMA) Add(v float64) {
	e.count++

	if e.count <= e.period {
		// Accumulate for initial SMA seed
		e.sum += v
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}

	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (v * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }

// EMAValues returns the exponential moving average of values. The result has
// len(values)-period+1 entries with no padding: entry j corresponds to
// values[period-1+j]. It is empty when len(values) < period.
func EMAValues(values []float64, period int) []float64 {
	if period < 1 || len(values) < period {
		return []float64{}
	}
	out := make([]float64, 0, len(values)-period+1)
	ema := NewEMA(period)
	for _, v := range values {
		ema.Add(v)
		if ema.Ready() {
			out = append(out, ema.Value())
		}
	}
	return out
}

// EMASeries is EMAValues left-padded so index i corresponds to values[i].
func EMASeries(values []float64, period int) Series {
	out := Undefined(len(values))
	for j, v := range EMAValues(values, period) {
		out[period-1+j] = v
	}
	return out
}
