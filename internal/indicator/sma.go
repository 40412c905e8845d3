package indicator

import "strconv"

// SMA calculates Simple Moving Average over a rolling window.
// Uses a preallocated circular buffer and a running sum.
type SMA struct {
	period  int
	buf     []float64 // circular buffer
	idx     int       // current write position
	count   int       // total values received
	sum     float64
	current float64
}

// NewSMA creates a new SMA with the given period.
func NewSMA(period int) *SMA {
	if period < 1 {
		period = 1
	}
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Name() string { return "SMA_" + strconv.Itoa(s.period) }

func (s *SMA) Add(v float64) {
	if s.count >= s.period {
		// Subtract the value leaving the window
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = v
	s.sum += v
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.count >= s.period }

// SMASeries returns the trailing mean of values, undefined for i < period-1.
func SMASeries(values []float64, period int) Series {
	out := Undefined(len(values))
	if period < 1 {
		return out
	}
	sma := NewSMA(period)
	for i, v := range values {
		sma.Add(v)
		if sma.Ready() {
			out[i] = sma.Value()
		}
	}
	return out
}
