package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)

// StartOfDay returns local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DayKey formats t as an ISO calendar day.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// MonthKey formats t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// ParseDay reads YYYY-MM-DD or a full RFC 3339 timestamp in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DayLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// MonthRange expands a YYYY-MM token to the first and last instant of that month.
func MonthRange(month string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(MonthLayout, strings.TrimSpace(month), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: month %q", ErrInvalidDate, month)
	}
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond), nil
}
