package redis

import (
	"testing"

	"signaldesk/internal/model"
)

func TestBarsCodec(t *testing.T) {
	bars := []model.Bar{
		{Time: 1700000000000, Open: 1.5, High: 2.25, Low: 1.0, Close: 2.0, Volume: 1234.5},
		{Time: 1700000060000, Open: 2.0, High: 2.5, Low: 1.75, Close: 2.1, Volume: 0},
	}
	raw, err := EncodeBars(bars)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeBars(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(bars) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range bars {
		if got[i] != bars[i] {
			t.Errorf("bar %d = %+v, want %+v", i, got[i], bars[i])
		}
	}

	if _, err := DecodeBars([]byte{0xc1}); err == nil {
		t.Error("expected decode error for invalid msgpack")
	}
}

func TestChannelNames(t *testing.T) {
	if ResultChannel("BTCUSDT") != "pub:ind:BTCUSDT" {
		t.Errorf("channel = %s", ResultChannel("BTCUSDT"))
	}
	if LatestKey("NSE:3045") != "ind:latest:NSE:3045" {
		t.Errorf("key = %s", LatestKey("NSE:3045"))
	}
	sym, ok := SymbolFromChannel("pub:ind:NSE:3045")
	if !ok || sym != "NSE:3045" {
		t.Errorf("SymbolFromChannel = %q, %v", sym, ok)
	}
	if _, ok := SymbolFromChannel("other:BTC"); ok {
		t.Error("foreign channel should not parse")
	}
	if _, ok := SymbolFromChannel("pub:ind:"); ok {
		t.Error("empty symbol should not parse")
	}
}
