package content

import (
	"strconv"
	"strings"
)

// ParseObjectiveValue reads objective strings such as "45%", "12.5K" or "3M".
// percent reports whether the value carried a % suffix.
func ParseObjectiveValue(raw string) (value float64, percent bool, ok bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0, false, false
	}
	multiplier := 1.0
	switch s[len(s)-1] {
	case '%':
		percent = true
		s = s[:len(s)-1]
	case 'k', 'K':
		multiplier = 1_000
		s = s[:len(s)-1]
	case 'm', 'M':
		multiplier = 1_000_000
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false, false
	}
	return v * multiplier, percent, true
}

// Progress derives a completion percentage from current and target values.
// Unparseable or non-positive targets yield 0.
func Progress(current, target string) float64 {
	t, _, ok := ParseObjectiveValue(target)
	if !ok || t <= 0 {
		return 0
	}
	c, _, ok := ParseObjectiveValue(current)
	if !ok {
		return 0
	}
	return clampPercent(c / t * 100)
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
