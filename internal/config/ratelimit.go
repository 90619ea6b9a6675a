package config

import (
	"os"
	"strconv"
	"time"
)

// LoginRateLimitConfig controls the fixed-window throttle applied to the
// login endpoint.  MaxAttempts login calls are allowed per Window per client
// IP; further attempts are rejected before any credential check runs.
type LoginRateLimitConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
	Prefix      string
}

// LoadLoginRateLimitConfig reads environment variables to build a
// LoginRateLimitConfig.  Defaults: enabled, 5 attempts per 15 minutes.
func LoadLoginRateLimitConfig() LoginRateLimitConfig {
	cfg := LoginRateLimitConfig{
		Enabled:     envBool("LOGIN_RATE_LIMIT_ENABLED", true),
		MaxAttempts: envInt("LOGIN_RATE_LIMIT_MAX", 5),
		Window:      envDur("LOGIN_RATE_LIMIT_WINDOW", 15*time.Minute),
		Prefix:      envStr("LOGIN_RATE_LIMIT_PREFIX", "loginrl"),
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	return cfg
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
