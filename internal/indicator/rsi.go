package indicator

import "strconv"

// RSI calculates the Relative Strength Index with Wilder's smoothing.
// Gains and losses are averaged by two SMMAs seeded from the first period
// price changes; losses are kept as positive magnitudes.
type RSI struct {
	period    int
	count     int
	prevClose float64
	avgGain   *SMMA
	avgLoss   *SMMA
}

// NewRSI creates a new RSI with the given period (typically 14).
func NewRSI(period int) *RSI {
	if period < 1 {
		period = 1
	}
	return &RSI{
		period:  period,
		avgGain: NewSMMA(period),
		avgLoss: NewSMMA(period),
	}
}

func (r *RSI) Name() string { return "RSI_" + strconv.Itoa(r.period) }

func (r *RSI) Add(price float64) {
	r.count++

	if r.count == 1 {
		// First price, no delta yet
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.avgGain.Add(gain)
	r.avgLoss.Add(loss)
}

// Value returns the current RSI. A zero average loss yields 100.
func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	al := r.avgLoss.Value()
	if al == 0 {
		return 100.0
	}
	rs := r.avgGain.Value() / al
	return 100.0 - (100.0 / (1.0 + rs))
}

// Ready needs period price changes, i.e. period+1 prices.
func (r *RSI) Ready() bool { return r.count > r.period }

// RSISeries returns RSI for every close. The first period entries are
// undefined; the whole series is undefined when len(closes) <= period.
func RSISeries(closes []float64, period int) Series {
	out := Undefined(len(closes))
	if period < 1 {
		return out
	}
	rsi := NewRSI(period)
	for i, c := range closes {
		rsi.Add(c)
		if rsi.Ready() {
			out[i] = rsi.Value()
		}
	}
	return out
}

// LatestRSI reads the last entry of RSISeries.
func LatestRSI(closes []float64, period int) (float64, bool) {
	if period < 1 || len(closes) <= period {
		return 0, false
	}
	return RSISeries(closes, period).Last()
}
