package timeutil

import (
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	t.Parallel()

	got, err := ParseDay("2026-03-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2026 || got.Month() != time.March || got.Day() != 1 {
		t.Fatalf("unexpected date: %v", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Fatalf("expected midnight, got %v", got)
	}

	if _, err := ParseDay("01.03.2026"); err == nil {
		t.Fatalf("expected error for non-ISO value")
	}
	if _, err := ParseDay(""); err == nil {
		t.Fatalf("expected error for empty value")
	}
}

func TestFormatDayRoundTrip(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.Local)
	if got := FormatDay(day); got != "2026-03-09" {
		t.Fatalf("expected 2026-03-09, got %q", got)
	}
}

func TestStartOfDay(t *testing.T) {
	t.Parallel()

	input := time.Date(2026, 3, 1, 14, 37, 9, 123, time.Local)
	got := StartOfDay(input)

	if got.Year() != 2026 || got.Month() != time.March || got.Day() != 1 {
		t.Fatalf("unexpected date: %v", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatalf("expected midnight, got %v", got)
	}
}

func TestInclusiveDays(t *testing.T) {
	t.Parallel()

	day := func(value string) time.Time {
		parsed, err := ParseDay(value)
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		return parsed
	}

	cases := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{"same day", "2026-03-01", "2026-03-01", 1},
		{"two days", "2026-03-01", "2026-03-02", 2},
		{"full month", "2026-03-01", "2026-03-31", 31},
		{"inverted range clamps to one", "2026-03-05", "2026-03-01", 1},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := InclusiveDays(day(tc.start), day(tc.end)); got != tc.want {
				t.Fatalf("expected %d days, got %d", tc.want, got)
			}
		})
	}
}

func TestInclusiveDaysAcrossDSTTransition(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("zone data unavailable: %v", err)
	}

	// 2026-03-08 is the spring-forward day; the wall-clock span is 47h.
	start := time.Date(2026, 3, 7, 0, 0, 0, 0, loc)
	end := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	if got := InclusiveDays(start, end); got != 3 {
		t.Fatalf("expected 3 days across spring forward, got %d", got)
	}

	// Fall-back day 2026-11-01: 49h span must not round up to 4.
	start = time.Date(2026, 10, 31, 0, 0, 0, 0, loc)
	end = time.Date(2026, 11, 2, 0, 0, 0, 0, loc)
	if got := InclusiveDays(start, end); got != 3 {
		t.Fatalf("expected 3 days across fall back, got %d", got)
	}
}
