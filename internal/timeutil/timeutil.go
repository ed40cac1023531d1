package timeutil

import (
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD value in the local time zone.
func ParseDay(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(dayLayout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q (expected YYYY-MM-DD): %w", value, err)
	}
	return parsed, nil
}

func FormatDay(day time.Time) string {
	return day.Format(dayLayout)
}

func Today() string {
	return FormatDay(time.Now())
}

func StartOfDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

// InclusiveDays counts calendar days between two date-only values, both ends
// included, never less than 1. Day boundaries are compared in UTC so DST
// transitions in the local zone cannot shorten a span.
func InclusiveDays(start, end time.Time) int {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	days := int(to.Sub(from).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}
