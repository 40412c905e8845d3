package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"

	"signaldesk/internal/model"
)

const maxBinanceLimit = 1000

// BinanceSource fetches spot klines from the public Binance REST API.
type BinanceSource struct {
	client   *binance.Client
	interval string
	limit    int
}

// NewBinanceSource creates a source for the given interval ("5m", "1h", ...)
// returning at most limit bars per fetch. baseURL overrides the API host
// when non-empty.
func NewBinanceSource(interval string, limit int, baseURL string) (*BinanceSource, error) {
	if _, err := IntervalDuration(interval); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxBinanceLimit {
		limit = maxBinanceLimit
	}
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &BinanceSource{client: client, interval: interval, limit: limit}, nil
}

// Fetch returns the most recent bars for symbol, oldest first.
func (s *BinanceSource) Fetch(ctx context.Context, symbol string) ([]model.Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrUnknownSymbol)
	}

	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(s.interval).
		Limit(s.limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("marketdata: binance klines %s: %w", symbol, err)
	}

	bars := make([]model.Bar, 0, len(klines))
	for _, k := range klines {
		b, err := klineToBar(k)
		if err != nil {
			return nil, fmt.Errorf("marketdata: binance kline %s@%d: %w", symbol, k.OpenTime, err)
		}
		bars = append(bars, b)
	}
	return finish(symbol, bars, s.limit)
}

func klineToBar(k *binance.Kline) (model.Bar, error) {
	fields := [5]string{k.Open, k.High, k.Low, k.Close, k.Volume}
	var vals [5]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return model.Bar{}, err
		}
		vals[i] = v
	}
	return model.Bar{
		Time:   k.OpenTime,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
