// cmd/indcalc computes indicators for one symbol offline and prints the
// recent bars as a table, optionally rendering an HTML chart.
//
// Usage:
//
//	go run ./cmd/indcalc --symbol=BTCUSDT --interval=5m --rows=20
//	go run ./cmd/indcalc --db=data/signald.db --symbol=NSE:3045 --html=chart.html
//	go run ./cmd/indcalc --bars=bars.json --settings=indicators.toml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pelletier/go-toml/v2"

	"signaldesk/internal/indicator"
	"signaldesk/internal/logger"
	"signaldesk/internal/marketdata"
	"signaldesk/internal/model"
	sqlitestore "signaldesk/internal/store/sqlite"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "Symbol to compute")
	interval := flag.String("interval", "5m", "Bar interval")
	limit := flag.Int("limit", 200, "Bars to fetch from Binance")
	barsPath := flag.String("bars", "", "Read bars from a JSON file instead of fetching")
	dbPath := flag.String("db", "", "Read bars from the signald SQLite archive")
	since := flag.Duration("since", 48*time.Hour, "Archive lookback when --db is set")
	settingsPath := flag.String("settings", "", "TOML file overriding indicator settings")
	rows := flag.Int("rows", 20, "Rows to print (0 = all)")
	htmlPath := flag.String("html", "", "Write an HTML chart to this path")
	level := flag.String("log", "warn", "Log level")
	flag.Parse()

	log := logger.Init("indcalc", logger.ParseLevel(*level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := loadSettings(*settingsPath)
	if err != nil {
		fatal(log, "settings", err)
	}

	sym := strings.ToUpper(*symbol)
	var bars []model.Bar
	switch {
	case *barsPath != "":
		bars, err = readBarsFile(*barsPath)
	case *dbPath != "":
		bars, err = readArchive(ctx, *dbPath, sym, *interval, time.Now().Add(-*since))
	default:
		bars, err = fetchBinance(ctx, sym, *interval, *limit)
	}
	if err != nil {
		fatal(log, "load bars", err)
	}
	if err := model.ValidateBars(bars); err != nil {
		fatal(log, "validate bars", err)
	}

	res := indicator.ComputeWith(bars, settings)

	printSummary(os.Stdout, sym, *interval, res)
	renderTable(os.Stdout, bars, res, *rows)

	if *htmlPath != "" {
		if err := writeChart(*htmlPath, sym, *interval, bars, res); err != nil {
			fatal(log, "chart", err)
		}
		fmt.Printf("chart written to %s\n", *htmlPath)
	}
}

func fatal(log *slog.Logger, what string, err error) {
	log.Error(what+" failed", "error", err)
	fmt.Fprintf(os.Stderr, "indcalc: %s: %v\n", what, err)
	os.Exit(1)
}

// loadSettings overlays a TOML file on the default settings.
func loadSettings(path string) (indicator.Settings, error) {
	s := indicator.DefaultSettings()
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := toml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s.Normalize(), nil
}

func readBarsFile(path string) ([]model.Bar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bars []model.Bar
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

func readArchive(ctx context.Context, path, symbol, interval string, since time.Time) ([]model.Bar, error) {
	store, err := sqlitestore.New(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	bars, err := store.ReadBars(ctx, symbol, interval, since.UnixMilli())
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, errors.New("no archived bars for " + symbol + "@" + interval)
	}
	return bars, nil
}

func fetchBinance(ctx context.Context, symbol, interval string, limit int) ([]model.Bar, error) {
	src, err := marketdata.NewBinanceSource(interval, limit, "")
	if err != nil {
		return nil, err
	}
	return src.Fetch(ctx, symbol)
}
