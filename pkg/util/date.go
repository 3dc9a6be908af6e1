package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, date-only and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// TruncateDay returns midnight UTC of t's calendar day in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var periodRe = regexp.MustCompile(`^(\d+)(d|wk|mo|y)$`)

// LookbackStart resolves a named lookback ("30d", "2wk", "12mo", "1y", "ytd", "max")
// to the first calendar day it covers, relative to now. "max" returns the zero time.
func LookbackStart(period string, now time.Time) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	today := TruncateDay(now)
	switch p {
	case "max":
		return time.Time{}, nil
	case "ytd":
		return time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
	}

	m := periodRe.FindStringSubmatch(p)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid lookback period %q", period)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid lookback period %q", period)
	}
	switch m[2] {
	case "d":
		return today.AddDate(0, 0, -n), nil
	case "wk":
		return today.AddDate(0, 0, -7*n), nil
	case "mo":
		return today.AddDate(0, -n, 0), nil
	default:
		return today.AddDate(-n, 0, 0), nil
	}
}

// ValidPeriod reports whether LookbackStart accepts period.
func ValidPeriod(period string) bool {
	_, err := LookbackStart(period, time.Now())
	return err == nil
}
