package pricing

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDurationSeconds parses duration strings of the forms "10s", "1m",
// "10-15s", "1-2m", or a bare number of seconds. Ranges resolve to their
// arithmetic mean.
func ParseDurationSeconds(s string) (float64, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if raw == "" {
		return 0, fmt.Errorf("empty duration")
	}

	unit := 1.0
	switch {
	case strings.HasSuffix(raw, "s"):
		raw = strings.TrimSuffix(raw, "s")
	case strings.HasSuffix(raw, "m"):
		raw = strings.TrimSuffix(raw, "m")
		unit = 60
	}

	if lo, hi, ok := strings.Cut(raw, "-"); ok {
		a, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return 0, fmt.Errorf("parse duration range %q: %w", s, err)
		}
		b, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if err != nil {
			return 0, fmt.Errorf("parse duration range %q: %w", s, err)
		}
		return (a + b) / 2 * unit, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return v * unit, nil
}
