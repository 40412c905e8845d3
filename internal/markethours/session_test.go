package markethours

import (
	"strings"
	"testing"
	"time"
)

func TestNSE_IsOpen(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", time.Date(2026, 3, 2, 9, 14, 0, 0, IST), false},
		{"at open", time.Date(2026, 3, 2, 9, 15, 0, 0, IST), true},
		{"midday", time.Date(2026, 3, 2, 12, 0, 0, 0, IST), true},
		{"at close", time.Date(2026, 3, 2, 15, 30, 0, 0, IST), false},
		{"saturday", time.Date(2026, 3, 7, 11, 0, 0, 0, IST), false},
		{"holiday", time.Date(2026, 1, 26, 11, 0, 0, 0, IST), false},
		{"utc input", time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC), true}, // 09:30 IST
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NSE.IsOpen(tt.at); got != tt.want {
				t.Errorf("IsOpen(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestNSE_NextOpen(t *testing.T) {
	// Friday evening -> Monday open
	fri := time.Date(2026, 3, 6, 18, 0, 0, 0, IST)
	want := time.Date(2026, 3, 9, 9, 15, 0, 0, IST)
	if got := NSE.NextOpen(fri); !got.Equal(want) {
		t.Errorf("NextOpen = %v, want %v", got, want)
	}

	// Early morning on a trading day -> same day
	early := time.Date(2026, 3, 9, 7, 0, 0, 0, IST)
	if got := NSE.NextOpen(early); !got.Equal(want) {
		t.Errorf("NextOpen = %v, want %v", got, want)
	}

	// Day before Republic Day (Sunday 25th) skips the holiday
	sun := time.Date(2026, 1, 25, 10, 0, 0, 0, IST)
	if got := NSE.NextOpen(sun); got.Day() != 27 {
		t.Errorf("NextOpen skipped to %v, want Jan 27", got)
	}
}

func TestNSE_Status(t *testing.T) {
	open := NSE.Status(time.Date(2026, 3, 2, 13, 0, 0, 0, IST))
	if !strings.HasPrefix(open, "NSE open, closes in 2h30m") {
		t.Errorf("status = %q", open)
	}
	closed := NSE.Status(time.Date(2026, 3, 6, 18, 0, 0, 0, IST))
	if !strings.Contains(closed, "opens Mon 09:15") {
		t.Errorf("status = %q", closed)
	}
}
