package config

import (
	"fmt"
	"strings"
	"time"
)

// Durations live in the document as Go duration strings ("500ms", "5s")
// so operators can edit them without counting nanoseconds. The helpers
// below turn them into time.Duration at mapping time; path names the
// offending field in errors, e.g. "notify.retry_base".

// ParseDurationField parses an optional duration field. An empty or
// blank value means unset and yields zero. Negative durations are
// rejected outright.
func ParseDurationField(path, raw string) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%s: bad duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", path, raw)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with a fallback: unset
// fields take def instead of zero.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
