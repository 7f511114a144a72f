package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// fixedWindow increments the counter and gives it a TTL in one step. Any key
// found without a TTL gets one, so a counter can never outlive its window.
var fixedWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// CheckRateLimit counts one hit against resource for id in a fixed window and
// reports whether the caller is still within limit.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)
	cnt, err := fixedWindow.Run(ctx, rdb, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return cnt <= int64(limit), nil
}

type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	Logger  *slog.Logger
}

// RateLimit limits requests per client IP for the named resource. It fails
// open: when limiting is disabled or Redis is unavailable the request passes.
func RateLimit(rdb *redis.Client, resource string, cfg RateLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Enabled || rdb == nil || cfg.Limit <= 0 {
			return c.Next()
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, "ip:"+c.IP(), cfg.Limit, cfg.Window)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.WarnContext(c.UserContext(), "rate limiter unavailable, allowing request",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
			}
			return c.Next()
		}

		if !allowed {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(cfg.Window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
