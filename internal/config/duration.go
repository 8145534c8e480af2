package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a duration string from the config file
// (pacing delays, browser timeouts, status TTLs are all written as
// "30s", "2m", ...). An empty value means unset and yields zero so the
// component's own default applies; bare numbers and negatives are
// rejected. path names the offending key in the error.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with the unset case
// resolved to def instead of zero.
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
