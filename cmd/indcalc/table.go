package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"signaldesk/internal/indicator"
	"signaldesk/internal/model"
)

func printSummary(w io.Writer, symbol, interval string, res indicator.Result) {
	rsi, macd := "N/A", "N/A"
	if res.LatestRSI != nil {
		rsi = fmt.Sprintf("%.2f", *res.LatestRSI)
	}
	if m := res.LatestMACD; m != nil {
		macd = fmt.Sprintf("%.2f / %.2f / %.2f", m.Line, m.Signal, m.Histogram)
	}
	fmt.Fprintf(w, "%s %s  bars=%d  RSI=%s  MACD(line/signal/hist)=%s\n", symbol, interval, res.Bars, rsi, macd)
}

// tableRow is one printed bar.
type tableRow struct {
	Time      time.Time
	Close     float64
	Volume    float64
	RSI       string
	MACD      string
	Signal    string
	Histogram string
	Anomaly   bool
	Marks     string
}

// buildRows flattens the last n bars (all when n <= 0) with their readings.
func buildRows(bars []model.Bar, res indicator.Result, n int) []tableRow {
	marks := make(map[int][]string)
	for _, p := range res.History.Patterns {
		marks[p.Index] = append(marks[p.Index], string(p.Kind))
	}
	for _, c := range res.History.Crossovers {
		marks[c.Index] = append(marks[c.Index], "macd_"+string(c.Kind))
	}

	start := 0
	if n > 0 && len(bars) > n {
		start = len(bars) - n
	}
	out := make([]tableRow, 0, len(bars)-start)
	for i := start; i < len(bars); i++ {
		h := res.History
		out = append(out, tableRow{
			Time:      bars[i].Timestamp(),
			Close:     bars[i].Close,
			Volume:    bars[i].Volume,
			RSI:       cell(h.RSI, i),
			MACD:      cell(h.MACD, i),
			Signal:    cell(h.Signal, i),
			Histogram: cell(h.Histogram, i),
			Anomaly:   i < len(h.VolumeAnomalies) && h.VolumeAnomalies[i],
			Marks:     strings.Join(marks[i], ","),
		})
	}
	return out
}

func cell(s indicator.Series, i int) string {
	if v, ok := s.At(i); ok {
		return fmt.Sprintf("%.2f", v)
	}
	return "-"
}

func renderTable(w io.Writer, bars []model.Bar, res indicator.Result, n int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Time (UTC)", "Close", "Volume", "RSI", "MACD", "Signal", "Hist", "Vol!", "Marks"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	for _, r := range buildRows(bars, res, n) {
		anomaly := ""
		if r.Anomaly {
			anomaly = "*"
		}
		t.AppendRow(table.Row{
			r.Time.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.2f", r.Close),
			fmt.Sprintf("%.0f", r.Volume),
			r.RSI, r.MACD, r.Signal, r.Histogram,
			anomaly, r.Marks,
		})
	}
	t.Render()
}
