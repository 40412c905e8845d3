// Package markethours describes exchange trading sessions so refreshes can
// pause while a market is closed.
package markethours

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Session is a weekday trading window in a fixed location, minus holidays.
type Session struct {
	Name        string
	Loc         *time.Location
	OpenMinute  int // minutes after local midnight
	CloseMinute int
	holidays    map[string]bool
}

// NSE is the National Stock Exchange cash session, 09:15 to 15:30 IST.
var NSE = NewSession("NSE", IST, 9*60+15, 15*60+30, nseHolidays2026...)

// NewSession builds a session. Holidays are compared by local calendar date.
func NewSession(name string, loc *time.Location, openMinute, closeMinute int, holidays ...time.Time) *Session {
	s := &Session{
		Name:        name,
		Loc:         loc,
		OpenMinute:  openMinute,
		CloseMinute: closeMinute,
		holidays:    make(map[string]bool, len(holidays)),
	}
	for _, h := range holidays {
		s.holidays[s.dateKey(h)] = true
	}
	return s
}

func (s *Session) dateKey(t time.Time) string {
	return t.In(s.Loc).Format("2006-01-02")
}

// IsHoliday reports whether t's local date is a listed holiday.
func (s *Session) IsHoliday(t time.Time) bool {
	return s.holidays[s.dateKey(t)]
}

// IsTradingDay reports whether t falls on a weekday that is not a holiday.
func (s *Session) IsTradingDay(t time.Time) bool {
	wd := t.In(s.Loc).Weekday()
	return wd != time.Saturday && wd != time.Sunday && !s.IsHoliday(t)
}

// IsOpen reports whether t is inside the trading window.
func (s *Session) IsOpen(t time.Time) bool {
	if !s.IsTradingDay(t) {
		return false
	}
	local := t.In(s.Loc)
	m := local.Hour()*60 + local.Minute()
	return m >= s.OpenMinute && m < s.CloseMinute
}

func (s *Session) at(day time.Time, minute int) time.Time {
	d := day.In(s.Loc)
	return time.Date(d.Year(), d.Month(), d.Day(), minute/60, minute%60, 0, 0, s.Loc)
}

// NextOpen returns the next session open at or after t. If t is before
// today's open on a trading day, that is today's open.
func (s *Session) NextOpen(t time.Time) time.Time {
	if open := s.at(t, s.OpenMinute); t.Before(open) && s.IsTradingDay(t) {
		return open
	}
	d := t.In(s.Loc).AddDate(0, 0, 1)
	for i := 0; i < 14; i++ {
		if s.IsTradingDay(d) {
			return s.at(d, s.OpenMinute)
		}
		d = d.AddDate(0, 0, 1)
	}
	return s.at(t.In(s.Loc).AddDate(0, 0, 1), s.OpenMinute)
}

// Status returns a short human-readable state, e.g.
// "NSE open, closes in 2h5m" or "NSE closed, opens Mon 09:15 (41h0m)".
func (s *Session) Status(t time.Time) string {
	if s.IsOpen(t) {
		return fmt.Sprintf("%s open, closes in %s", s.Name, fmtDur(s.at(t, s.CloseMinute).Sub(t)))
	}
	next := s.NextOpen(t)
	local := next.In(s.Loc)
	return fmt.Sprintf("%s closed, opens %s %s (%s)",
		s.Name, local.Weekday().String()[:3], local.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
