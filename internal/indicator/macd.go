package indicator

// MACDValue is one MACD reading.
type MACDValue struct {
	Line      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Rounded returns the reading rounded to two decimals for display.
func (m MACDValue) Rounded() MACDValue {
	return MACDValue{Line: Round2(m.Line), Signal: Round2(m.Signal), Histogram: Round2(m.Histogram)}
}

// MACDSeries holds MACD line, signal and histogram aligned by bar index.
type MACDSeries struct {
	Line      Series `json:"macd"`
	Signal    Series `json:"signal"`
	Histogram Series `json:"histogram"`
}

// MACD computes the full MACD history. The fast EMA is trimmed at its head
// by slow-fast entries so both EMAs start at bar slow-1; the signal line is
// the EMA of the full-precision MACD line. Invalid periods (fast >= slow or
// any period < 1) yield all-undefined series.
func MACD(closes []float64, fast, slow, signal int) MACDSeries {
	n := len(closes)
	out := MACDSeries{Line: Undefined(n), Signal: Undefined(n), Histogram: Undefined(n)}
	if fast < 1 || slow <= fast || signal < 1 {
		return out
	}

	emaFast := EMAValues(closes, fast)
	emaSlow := EMAValues(closes, slow)
	if len(emaSlow) == 0 {
		return out
	}
	emaFast = emaFast[slow-fast:]

	line := make([]float64, len(emaSlow))
	for j := range emaSlow {
		line[j] = emaFast[j] - emaSlow[j]
		out.Line[slow-1+j] = line[j]
	}

	sig := EMAValues(line, signal)
	offset := slow - 1 + signal - 1
	for j, v := range sig {
		i := offset + j
		out.Signal[i] = v
		out.Histogram[i] = out.Line[i] - v
	}
	return out
}

// LatestMACD returns the last MACD reading at full precision. It is not
// available when len(closes) < slow+signal.
func LatestMACD(closes []float64, fast, slow, signal int) (MACDValue, bool) {
	if fast < 1 || slow <= fast || signal < 1 || len(closes) < slow+signal {
		return MACDValue{}, false
	}
	s := MACD(closes, fast, slow, signal)
	line, ok1 := s.Line.Last()
	sig, ok2 := s.Signal.Last()
	if !ok1 || !ok2 {
		return MACDValue{}, false
	}
	return MACDValue{Line: line, Signal: sig, Histogram: line - sig}, true
}
