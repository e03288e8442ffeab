package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// ParseDuration extends time.ParseDuration with day (d) and week (w) units,
// which ladder durations and compliance deadlines are usually written in.
func ParseDuration(s string) (time.Duration, error) {
	var unit time.Duration
	switch {
	case strings.HasSuffix(s, "d"):
		unit = day
	case strings.HasSuffix(s, "w"):
		unit = week
	}
	if unit > 0 {
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration value: %s", s)
		}
		return time.Duration(n) * unit, nil
	}
	return time.ParseDuration(s)
}

// FormatDuration renders a duration for user-facing reason text, using the
// largest whole unit (days, hours or minutes).
func FormatDuration(d time.Duration) string {
	switch {
	case d >= day && d%day == 0:
		return fmt.Sprintf("%dd", int(d/day))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
}
