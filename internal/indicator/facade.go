package indicator

import "signaldesk/internal/model"

// Settings holds the indicator periods and thresholds used by Compute.
type Settings struct {
	RSIPeriod      int     `json:"rsi_period" toml:"rsi_period"`
	MACDFast       int     `json:"macd_fast" toml:"macd_fast"`
	MACDSlow       int     `json:"macd_slow" toml:"macd_slow"`
	MACDSignal     int     `json:"macd_signal" toml:"macd_signal"`
	VolumePeriod   int     `json:"volume_period" toml:"volume_period"`
	VolumeMultiple float64 `json:"volume_multiple" toml:"volume_multiple"`
	MinHistoryBars int     `json:"min_history_bars" toml:"min_history_bars"`
}

// DefaultSettings returns RSI(14), MACD(12,26,9), a 20-bar volume SMA with a
// 1.75x anomaly threshold and a 35-bar history gate.
func DefaultSettings() Settings {
	return Settings{
		RSIPeriod:      14,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		VolumePeriod:   20,
		VolumeMultiple: 1.75,
		MinHistoryBars: 35,
	}
}

// Normalize fills zero or negative fields with defaults.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = d.RSIPeriod
	}
	if s.MACDFast <= 0 {
		s.MACDFast = d.MACDFast
	}
	if s.MACDSlow <= 0 {
		s.MACDSlow = d.MACDSlow
	}
	if s.MACDSignal <= 0 {
		s.MACDSignal = d.MACDSignal
	}
	if s.VolumePeriod <= 0 {
		s.VolumePeriod = d.VolumePeriod
	}
	if s.VolumeMultiple <= 0 {
		s.VolumeMultiple = d.VolumeMultiple
	}
	if s.MinHistoryBars <= 0 {
		s.MinHistoryBars = d.MinHistoryBars
	}
	return s
}

// History is the per-bar dataset used for charting. Every series has one
// entry per input bar.
type History struct {
	RSI             Series          `json:"rsi"`
	MACD            Series          `json:"macd"`
	Signal          Series          `json:"signal"`
	Histogram       Series          `json:"histogram"`
	VolumeSMA       Series          `json:"volumeSma"`
	VolumeAnomalies []bool          `json:"volumeAnomalies"`
	Patterns        []PatternMark   `json:"patterns"`
	Crossovers      []CrossoverMark `json:"crossovers"`
}

// Result is the output of Compute. Latest values are rounded to two decimals
// and nil when the indicator is not available.
type Result struct {
	Bars       int        `json:"bars"`
	LatestRSI  *float64   `json:"latestRsi"`
	LatestMACD *MACDValue `json:"latestMacd"`
	History    History    `json:"fullHistory"`
}

// Compute runs ComputeWith using DefaultSettings.
func Compute(bars []model.Bar) Result {
	return ComputeWith(bars, DefaultSettings())
}

// ComputeWith derives the latest readings and the full history for bars.
// Below MinHistoryBars the history is returned undefined and empty; the
// latest readings still use their own per-indicator gates. The function is
// pure: the same input always yields the same Result.
func ComputeWith(bars []model.Bar, s Settings) Result {
	s = s.Normalize()
	closes := model.Closes(bars)

	res := Result{Bars: len(bars)}
	if v, ok := LatestRSI(closes, s.RSIPeriod); ok {
		r := Round2(v)
		res.LatestRSI = &r
	}
	if m, ok := LatestMACD(closes, s.MACDFast, s.MACDSlow, s.MACDSignal); ok {
		r := m.Rounded()
		res.LatestMACD = &r
	}

	if len(bars) < s.MinHistoryBars {
		res.History = emptyHistory(len(bars))
		return res
	}

	volumes := model.Volumes(bars)
	times := make([]int64, len(bars))
	for i, b := range bars {
		times[i] = b.Time
	}

	macd := MACD(closes, s.MACDFast, s.MACDSlow, s.MACDSignal)
	volSMA := SMASeries(volumes, s.VolumePeriod)

	res.History = History{
		RSI:             RSISeries(closes, s.RSIPeriod),
		MACD:            macd.Line,
		Signal:          macd.Signal,
		Histogram:       macd.Histogram,
		VolumeSMA:       volSMA,
		VolumeAnomalies: VolumeAnomalies(volumes, volSMA, s.VolumeMultiple),
		Patterns:        nonNil(DetectPatterns(bars)),
		Crossovers:      nonNilCross(DetectCrossovers(macd.Line, macd.Signal, times)),
	}
	return res
}

// LatestCrossover returns the crossover at the final bar, if any.
func (r Result) LatestCrossover() (CrossoverMark, bool) {
	c := r.History.Crossovers
	if len(c) == 0 || c[len(c)-1].Index != r.Bars-1 {
		return CrossoverMark{}, false
	}
	return c[len(c)-1], true
}

func emptyHistory(n int) History {
	return History{
		RSI:             Undefined(n),
		MACD:            Undefined(n),
		Signal:          Undefined(n),
		Histogram:       Undefined(n),
		VolumeSMA:       Undefined(n),
		VolumeAnomalies: make([]bool, n),
		Patterns:        []PatternMark{},
		Crossovers:      []CrossoverMark{},
	}
}

func nonNil(m []PatternMark) []PatternMark {
	if m == nil {
		return []PatternMark{}
	}
	return m
}

func nonNilCross(m []CrossoverMark) []CrossoverMark {
	if m == nil {
		return []CrossoverMark{}
	}
	return m
}
