package api

import (
	"signaldesk/internal/analysis"
	"signaldesk/internal/indicator"
)

// Style is how a frontend should draw one enumerated variant.
type Style struct {
	Color    string `json:"color"`
	Label    string `json:"label"`
	Shape    string `json:"shape,omitempty"`
	Position string `json:"position,omitempty"` // "above" or "below" the bar
}

// PatternStyles maps each candlestick pattern to its marker.
var PatternStyles = map[indicator.PatternKind]Style{
	indicator.PatternDoji:             {Color: "#9E9E9E", Label: "Doji", Shape: "circle", Position: "above"},
	indicator.PatternBullishEngulfing: {Color: "#26A69A", Label: "Bull Engulfing", Shape: "arrowUp", Position: "below"},
	indicator.PatternBearishEngulfing: {Color: "#EF5350", Label: "Bear Engulfing", Shape: "arrowDown", Position: "above"},
	indicator.PatternHammer:           {Color: "#42A5F5", Label: "Hammer", Shape: "arrowUp", Position: "below"},
}

// SignalStyles maps each trade signal type to a badge.
var SignalStyles = map[analysis.SignalType]Style{
	analysis.SignalBuy:  {Color: "#26A69A", Label: "Buy"},
	analysis.SignalSell: {Color: "#EF5350", Label: "Sell"},
	analysis.SignalHold: {Color: "#FFB300", Label: "Hold"},
}

// CrossoverStyles maps MACD crossover direction to its marker.
var CrossoverStyles = map[indicator.CrossoverKind]Style{
	indicator.CrossoverBullish: {Color: "#26A69A", Label: "MACD Cross Up", Shape: "arrowUp", Position: "below"},
	indicator.CrossoverBearish: {Color: "#EF5350", Label: "MACD Cross Down", Shape: "arrowDown", Position: "above"},
}

// Volume marker radii.
const (
	VolumeRadiusNormal    = 2
	VolumeRadiusAnomalous = 4
)

// VolumeRadius returns the marker radius for a volume bar.
func VolumeRadius(anomalous bool) int {
	if anomalous {
		return VolumeRadiusAnomalous
	}
	return VolumeRadiusNormal
}

// StyleTable is the body of GET /api/v1/styles.
type StyleTable struct {
	Patterns   map[indicator.PatternKind]Style   `json:"patterns"`
	Signals    map[analysis.SignalType]Style     `json:"signals"`
	Crossovers map[indicator.CrossoverKind]Style `json:"crossovers"`
	Volume     struct {
		Normal    int `json:"normal"`
		Anomalous int `json:"anomalous"`
	} `json:"volumeRadius"`
}

func styleTable() StyleTable {
	t := StyleTable{Patterns: PatternStyles, Signals: SignalStyles, Crossovers: CrossoverStyles}
	t.Volume.Normal = VolumeRadiusNormal
	t.Volume.Anomalous = VolumeRadiusAnomalous
	return t
}
