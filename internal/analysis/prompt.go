package analysis

import (
	"fmt"
	"strings"

	"signaldesk/internal/indicator"
)

// recentMarks caps how many pattern and crossover marks go into a prompt.
const recentMarks = 5

// Request is everything needed to ask for a trading signal.
type Request struct {
	Symbol    string
	Interval  string
	LastClose float64
	Result    indicator.Result

	// Settings are the periods Result was computed with. Zero fields take
	// the defaults.
	Settings indicator.Settings
}

// BuildPrompt renders the indicator snapshot as prompt text. Values are
// shown with two decimals; unavailable readings print as N/A.
func BuildPrompt(req Request) string {
	var b strings.Builder
	set := req.Settings.Normalize()
	rsiLabel := fmt.Sprintf("RSI(%d)", set.RSIPeriod)
	macdLabel := fmt.Sprintf("MACD(%d,%d,%d)", set.MACDFast, set.MACDSlow, set.MACDSignal)

	fmt.Fprintf(&b, "You are a trading assistant. Analyze %s on the %s timeframe.\n\n", req.Symbol, req.Interval)
	fmt.Fprintf(&b, "Last close: %.2f\n", req.LastClose)

	if req.Result.LatestRSI != nil {
		fmt.Fprintf(&b, "%s: %.2f\n", rsiLabel, *req.Result.LatestRSI)
	} else {
		fmt.Fprintf(&b, "%s: N/A\n", rsiLabel)
	}

	if m := req.Result.LatestMACD; m != nil {
		fmt.Fprintf(&b, "%s: line %.2f, signal %.2f, histogram %.2f\n", macdLabel, m.Line, m.Signal, m.Histogram)
	} else {
		fmt.Fprintf(&b, "%s: N/A\n", macdLabel)
	}

	h := req.Result.History
	if n := len(h.VolumeAnomalies); n > 0 && h.VolumeAnomalies[n-1] {
		fmt.Fprintf(&b, "Volume: latest bar is a volume spike (above %.2fx its %d-bar average)\n",
			set.VolumeMultiple, set.VolumePeriod)
	}

	if marks := tailPatterns(h.Patterns, recentMarks); len(marks) > 0 {
		b.WriteString("Recent candlestick patterns:\n")
		for _, m := range marks {
			fmt.Fprintf(&b, "- %s at bar %d (%d bars ago)\n", m.Kind, m.Index, req.Result.Bars-1-m.Index)
		}
	}
	if cross := tailCrossovers(h.Crossovers, recentMarks); len(cross) > 0 {
		b.WriteString("Recent MACD crossovers:\n")
		for _, c := range cross {
			fmt.Fprintf(&b, "- %s at bar %d (%d bars ago)\n", c.Kind, c.Index, req.Result.Bars-1-c.Index)
		}
	}

	b.WriteString(`
Respond with a single JSON object and nothing else:
{"signal": "BUY" | "SELL" | "HOLD", "confidence": 0-100, "entry": number, "stopLoss": number, "takeProfit": number, "reasoning": string}
`)
	return b.String()
}

func tailPatterns(m []indicator.PatternMark, n int) []indicator.PatternMark {
	if len(m) > n {
		return m[len(m)-n:]
	}
	return m
}

func tailCrossovers(m []indicator.CrossoverMark, n int) []indicator.CrossoverMark {
	if len(m) > n {
		return m[len(m)-n:]
	}
	return m
}
