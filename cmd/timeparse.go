package cmd

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeTime = regexp.MustCompile(`^(\d+)\s*([a-z]+)\s+ago$`)

var relativeUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
}

// Absolute layouts without a zone are read in now's location.
var absoluteLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime reads a user supplied time: "now", "yesterday", "tomorrow",
// "<n><unit> ago" (e.g. "10m ago", "5mins ago", "2 hours ago"), RFC3339,
// or one of the local date layouts.
func ParseTime(s string, now time.Time) (time.Time, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "":
		return time.Time{}, fmt.Errorf("empty time")
	case "now":
		return now, nil
	case "yesterday":
		return now.Add(-24 * time.Hour), nil
	case "tomorrow":
		return now.Add(24 * time.Hour), nil
	}

	if m := relativeTime.FindStringSubmatch(v); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
		}
		unit, ok := relativeUnits[m[2]]
		if !ok {
			return time.Time{}, fmt.Errorf("invalid time %q: unknown unit %q", s, m[2])
		}
		if int64(n) > math.MaxInt64/int64(unit) {
			return time.Time{}, fmt.Errorf("invalid time %q: offset too large", s)
		}
		return now.Add(-time.Duration(n) * unit), nil
	}

	trimmed := strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, nil
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, now.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339, YYYY-MM-DD[ HH:MM[:SS]], now, yesterday or '<n><unit> ago'", s)
}
