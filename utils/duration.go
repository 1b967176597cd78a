package utils

import "time"

// ParseDurationOr parses s, returning fallback when s is empty or malformed
func ParseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}
