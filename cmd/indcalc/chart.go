package main

import (
	"fmt"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"signaldesk/internal/indicator"
	"signaldesk/internal/model"
)

// gap is how echarts is told a point is missing.
const gap = "-"

func lineData(s indicator.Series) []opts.LineData {
	out := make([]opts.LineData, len(s))
	for i, v := range s {
		if math.IsNaN(v) {
			out[i] = opts.LineData{Value: gap}
			continue
		}
		out[i] = opts.LineData{Value: indicator.Round2(v)}
	}
	return out
}

// writeChart renders price, RSI and MACD panels into one HTML page.
func writeChart(path, symbol, interval string, bars []model.Bar, res indicator.Result) error {
	x := make([]string, len(bars))
	candles := make([]opts.KlineData, len(bars))
	volumes := make([]opts.BarData, len(bars))
	for i, b := range bars {
		x[i] = b.Timestamp().Format("01-02 15:04")
		// echarts order: open, close, low, high
		candles[i] = opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}}
		volumes[i] = opts.BarData{Value: b.Volume}
		if i < len(res.History.VolumeAnomalies) && res.History.VolumeAnomalies[i] {
			volumes[i].ItemStyle = &opts.ItemStyle{Color: "#FFB300"}
		}
	}

	title := fmt.Sprintf("%s %s", symbol, interval)
	zoom := charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 50, End: 100})

	price := charts.NewKLine()
	price.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		zoom,
	)
	price.SetXAxis(x).AddSeries("price", candles)

	vol := charts.NewBar()
	vol.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "160px"}),
		charts.WithTitleOpts(opts.Title{Title: "Volume"}),
		zoom,
	)
	vol.SetXAxis(x).AddSeries("volume", volumes)

	rsi := charts.NewLine()
	rsi.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "200px"}),
		charts.WithTitleOpts(opts.Title{Title: "RSI"}),
		zoom,
	)
	rsi.SetXAxis(x).AddSeries("rsi", lineData(res.History.RSI))

	macd := charts.NewLine()
	macd.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "240px"}),
		charts.WithTitleOpts(opts.Title{Title: "MACD"}),
		zoom,
	)
	macd.SetXAxis(x).
		AddSeries("macd", lineData(res.History.MACD)).
		AddSeries("signal", lineData(res.History.Signal))

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(price, vol, rsi, macd)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
