// Package timeparse converts free-text duration input like "1.5h", "90m",
// "2h30m" or a bare number of minutes into a time.Duration.
package timeparse

import (
	"strconv"
	"strings"
	"time"
)

// Parse interprets input as a duration. The substring before an "h" token is
// hours, the substring between the "h" token (if any) and an "m" token is
// minutes, and input with neither token is a plain number of minutes.
// Fractions are allowed in either position. The result is truncated to whole
// milliseconds. Parse reports ok=false for any non-numeric fragment; it does
// not reject non-positive values, callers do.
func Parse(input string) (time.Duration, bool) {
	s := strings.TrimSpace(input)

	hIdx := strings.Index(s, "h")
	mIdx := strings.Index(s, "m")

	if hIdx < 0 && mIdx < 0 {
		minutes, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return truncMinutes(minutes), true
	}

	var total float64

	if hIdx >= 0 {
		hours, err := strconv.ParseFloat(strings.TrimSpace(s[:hIdx]), 64)
		if err != nil {
			return 0, false
		}
		total += hours * 60
	}

	if mIdx >= 0 {
		part := s[:mIdx]
		if i := strings.LastIndex(part, "h"); i >= 0 {
			part = part[i+1:]
		}
		// "2h 30m" is valid input; the fragment between the tokens may carry
		// surrounding spaces.
		minutes, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0, false
		}
		total += minutes
	}

	return truncMinutes(total), true
}

func truncMinutes(minutes float64) time.Duration {
	ms := int64(minutes * 60 * 1000)
	return time.Duration(ms) * time.Millisecond
}
