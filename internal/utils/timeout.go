package utils

import (
	"strconv"
	"strings"
	"time"
)

// DefaultSessionTimeout is used when SESSION_TIMEOUT is unset or unparseable.
const DefaultSessionTimeout = 30 * time.Minute

// ParseSessionTimeout converts an idle-timeout string into a duration.
// Accepted forms are a number followed by a unit suffix ("45s", "30m", "2h",
// "1d") or bare digits, which are treated as raw milliseconds.  Empty or
// malformed input falls back to DefaultSessionTimeout.
func ParseSessionTimeout(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSessionTimeout
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return DefaultSessionTimeout
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return DefaultSessionTimeout
	}
	switch s[i:] {
	case "s":
		return time.Duration(n) * time.Second
	case "m":
		return time.Duration(n) * time.Minute
	case "h":
		return time.Duration(n) * time.Hour
	case "d":
		return time.Duration(n) * 24 * time.Hour
	case "":
		return time.Duration(n) * time.Millisecond
	default:
		return DefaultSessionTimeout
	}
}
