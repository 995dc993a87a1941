package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses the Go duration string held by the config
// field at path. An empty or whitespace-only value means unset and parses
// to zero; negative durations are rejected since no knob here counts
// backwards.
func ParseDurationField(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: duration must be >= 0, got %s", path, d)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with a fallback: unset or
// zero fields yield def instead.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
