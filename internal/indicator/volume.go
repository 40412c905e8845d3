package indicator

// CrossoverKind is the direction of a MACD/signal cross.
type CrossoverKind string

const (
	CrossoverBullish CrossoverKind = "bullish"
	CrossoverBearish CrossoverKind = "bearish"
)

// CrossoverMark flags a MACD line crossing its signal line at bar Index.
type CrossoverMark struct {
	Index int           `json:"index"`
	Time  int64         `json:"time"`
	Kind  CrossoverKind `json:"kind"`
}

// VolumeAnomalies flags bars whose volume exceeds multiple times the trailing
// volume SMA at the same index. Bars where sma is undefined are never flagged.
func VolumeAnomalies(volumes []float64, sma Series, multiple float64) []bool {
	flags := make([]bool, len(volumes))
	for i, v := range volumes {
		avg, ok := sma.At(i)
		if !ok {
			continue
		}
		flags[i] = v > multiple*avg
	}
	return flags
}

// DetectCrossovers compares the MACD line with its signal line bar by bar.
// Both series must be defined at i-1 and i for a mark at i. times may be nil.
func DetectCrossovers(line, signal Series, times []int64) []CrossoverMark {
	n := len(line)
	if len(signal) < n {
		n = len(signal)
	}
	var marks []CrossoverMark
	for i := 1; i < n; i++ {
		pl, ok1 := line.At(i - 1)
		ps, ok2 := signal.At(i - 1)
		cl, ok3 := line.At(i)
		cs, ok4 := signal.At(i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}

		var kind CrossoverKind
		switch {
		case pl <= ps && cl > cs:
			kind = CrossoverBullish
		case pl >= ps && cl < cs:
			kind = CrossoverBearish
		default:
			continue
		}

		mark := CrossoverMark{Index: i, Kind: kind}
		if i < len(times) {
			mark.Time = times[i]
		}
		marks = append(marks, mark)
	}
	return marks
}
