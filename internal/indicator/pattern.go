package indicator

import (
	"math"

	"signaldesk/internal/model"
)

// PatternKind names a candlestick formation.
type PatternKind string

const (
	PatternDoji             PatternKind = "doji"
	PatternBullishEngulfing PatternKind = "bullish_engulfing"
	PatternBearishEngulfing PatternKind = "bearish_engulfing"
	PatternHammer           PatternKind = "hammer"
)

// Anchor is where a marker is drawn relative to its bar.
type Anchor string

const (
	AnchorTop    Anchor = "top"
	AnchorBottom Anchor = "bottom"
)

// PatternMark flags a formation completed at bar Index (always >= 2).
type PatternMark struct {
	Index  int         `json:"index"`
	Time   int64       `json:"time"`
	Kind   PatternKind `json:"kind"`
	Anchor Anchor      `json:"anchor"`
}

const (
	dojiBodyRatio      = 0.08
	hammerLowerShadow  = 2.0
	hammerUpperShadow  = 0.5
	patternMinLookback = 2
)

// DetectPatterns scans bars for doji, engulfing and hammer formations. Each
// rule is evaluated independently, so one bar may carry several marks.
// Marks are ordered by index.
func DetectPatterns(bars []model.Bar) []PatternMark {
	var marks []PatternMark
	for i := patternMinLookback; i < len(bars); i++ {
		cur, prev := bars[i], bars[i-1]
		emit := func(kind PatternKind, anchor Anchor) {
			marks = append(marks, PatternMark{Index: i, Time: cur.Time, Kind: kind, Anchor: anchor})
		}

		if isDoji(cur) {
			emit(PatternDoji, AnchorTop)
		}
		if isBullishEngulfing(prev, cur) {
			emit(PatternBullishEngulfing, AnchorBottom)
		}
		if isBearishEngulfing(prev, cur) {
			emit(PatternBearishEngulfing, AnchorTop)
		}
		if isHammer(bars[i-2], prev, cur) {
			emit(PatternHammer, AnchorBottom)
		}
	}
	return marks
}

// A zero-range bar is never a doji.
func isDoji(b model.Bar) bool {
	rng := b.Range()
	if rng <= 0 {
		return false
	}
	return b.Body()/rng < dojiBodyRatio
}

// The open-side comparison is inclusive: a bar opening exactly at the prior
// close still engulfs it.
func isBullishEngulfing(prev, cur model.Bar) bool {
	return prev.Bearish() && cur.Bullish() &&
		cur.Open <= prev.Close && cur.Close > prev.Open
}

func isBearishEngulfing(prev, cur model.Bar) bool {
	return prev.Bullish() && cur.Bearish() &&
		cur.Open >= prev.Close && cur.Close < prev.Open
}

// Trend confirmation only looks at the two preceding closes.
func isHammer(prev2, prev, cur model.Bar) bool {
	if prev.Close >= prev2.Close {
		return false
	}
	body := cur.Body()
	if body == 0 {
		return false
	}
	lower := math.Min(cur.Open, cur.Close) - cur.Low
	upper := cur.High - math.Max(cur.Open, cur.Close)
	return lower > hammerLowerShadow*body && upper < hammerUpperShadow*body
}
