package model

import (
	"errors"
	"testing"
)

func TestValidateBars(t *testing.T) {
	ok := []Bar{{Time: 1, Volume: 1}, {Time: 1, Volume: 0}, {Time: 2, Volume: 5}}
	if err := ValidateBars(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unordered := []Bar{{Time: 2}, {Time: 1}}
	if err := ValidateBars(unordered); !errors.Is(err, ErrUnorderedBars) {
		t.Errorf("expected ErrUnorderedBars, got %v", err)
	}

	negative := []Bar{{Time: 1, Volume: -1}}
	if err := ValidateBars(negative); !errors.Is(err, ErrNegativeVolume) {
		t.Errorf("expected ErrNegativeVolume, got %v", err)
	}

	if err := ValidateBars(nil); err != nil {
		t.Errorf("empty input should validate, got %v", err)
	}
}

func TestBarGeometry(t *testing.T) {
	b := Bar{Open: 100, High: 112, Low: 95, Close: 108}
	if b.Body() != 8 {
		t.Errorf("Body = %v, want 8", b.Body())
	}
	if b.Range() != 17 {
		t.Errorf("Range = %v, want 17", b.Range())
	}
	if !b.Bullish() || b.Bearish() {
		t.Error("expected bullish bar")
	}
}
