package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/evnet/event-network-api/internal/config"
)

// CodeRateLimited marks throttling failures so clients back off instead of
// retrying immediately.
const CodeRateLimited = "RATE_LIMITED"

// NewLoginRateLimiter returns middleware that caps login attempts per client
// IP inside a fixed window.  State lives in Redis so the cap holds across
// replicas.  The check runs before any credential verification; when Redis
// is unreachable the limiter degrades open with a warning rather than
// locking everyone out.  rdb is any script runner (*redis.Client in
// production); nil disables the limiter.
func NewLoginRateLimiter(cfg config.LoginRateLimitConfig, rdb redis.Scripter) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	// INCR and set the window expiry atomically; returns the attempt count
	// and the remaining window in milliseconds.
	windowScript := redis.NewScript(`
		local key = KEYS[1]
		local window_ms = tonumber(ARGV[1])

		local count = redis.call('INCR', key)
		if count == 1 then
			redis.call('PEXPIRE', key, window_ms)
		end
		local ttl = redis.call('PTTL', key)
		if ttl < 0 then
			redis.call('PEXPIRE', key, window_ms)
			ttl = window_ms
		end
		return { count, ttl }
	`)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := strings.Join([]string{cfg.Prefix, "ip", ip}, ":")

			ctx := c.Request().Context()
			vals, err := windowScript.Run(ctx, rdb, []string{key}, cfg.Window.Milliseconds()).Result()
			if err != nil {
				c.Logger().Warnf("[loginrl] redis error for key=%s: %v", key, err)
				return next(c)
			}

			count := int64(0)
			ttlMs := int64(0)
			if arr, ok := vals.([]interface{}); ok && len(arr) == 2 {
				count = asInt64(arr[0])
				ttlMs = asInt64(arr[1])
			} else {
				c.Logger().Warnf("[loginrl] unexpected script result for key=%s: %#v", key, vals)
				return next(c)
			}

			remaining := int64(cfg.MaxAttempts) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxAttempts))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.MaxAttempts) {
				secs := int(math.Ceil(float64(ttlMs) / 1000.0))
				if secs < 0 {
					secs = 0
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "Too many login attempts, please try again later",
					"code":        CodeRateLimited,
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case float32:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
