package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDateOnly(t *testing.T) {
	got, ok := ParseTime("2024-02-29")
	if !ok || !got.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected %v %v", got, ok)
	}
}

func TestLookbackStart(t *testing.T) {
	now := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)
	cases := map[string]time.Time{
		"30d":  time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC),
		"2wk":  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		"12mo": time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		"6MO":  time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC),
		"1y":   time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		"ytd":  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"max":  {},
	}
	for period, want := range cases {
		got, err := LookbackStart(period, now)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", period, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%s: got %v want %v", period, got, want)
		}
	}

	for _, bad := range []string{"", "12", "0mo", "12 months", "-1y", "3h"} {
		if _, err := LookbackStart(bad, now); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" AAPL, msft,,  ")
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "msft" {
		t.Fatalf("unexpected %v", got)
	}
	if SplitList("") != nil {
		t.Fatalf("expected nil")
	}
}
