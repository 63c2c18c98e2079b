package middleware

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig holds per-client request quotas
type RateLimitConfig struct {
	PerSecond int
	PerDay    int
}

// LoadRateLimitConfigFromEnv loads rate limit quotas from environment variables
func LoadRateLimitConfigFromEnv() RateLimitConfig {
	return RateLimitConfig{
		PerSecond: getEnvInt("RATE_LIMIT_PER_SECOND", 10),
		PerDay:    getEnvInt("RATE_LIMIT_PER_DAY", 10000),
	}
}

// RateLimitMiddleware implements per-IP rate limiting backed by Redis.
// It checks a burst limit per second and a quota per day; when Redis is
// unreachable requests pass through unthrottled.
func RateLimitMiddleware(rdb *redis.Client, cfg RateLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()
		now := time.Now()
		ip := c.IP()

		keySecond := fmt.Sprintf("rl:ip:%s:second:%d", ip, now.Unix())
		keyDay := fmt.Sprintf("rl:ip:%s:day:%s", ip, now.Format("2006-01-02"))

		// Check per-second burst limit
		if cfg.PerSecond > 0 {
			countSecond, err := rdb.Incr(ctx, keySecond).Result()
			if err == nil {
				rdb.Expire(ctx, keySecond, 2*time.Second)

				if countSecond > int64(cfg.PerSecond) {
					c.Set("X-RateLimit-Limit-Second", strconv.Itoa(cfg.PerSecond))
					c.Set("X-RateLimit-Remaining-Second", "0")
					c.Set("Retry-After", "1")

					return c.Status(429).JSON(fiber.Map{
						"error":       "rate_limit_exceeded",
						"message":     "Too many requests per second",
						"limit_type":  "per_second",
						"limit":       cfg.PerSecond,
						"retry_after": 1,
					})
				}
			}
		}

		// Check per-day quota
		if cfg.PerDay > 0 {
			countDay, err := rdb.Incr(ctx, keyDay).Result()
			if err == nil {
				// 25 hours so the counter survives DST shifts
				rdb.Expire(ctx, keyDay, 25*time.Hour)

				if countDay > int64(cfg.PerDay) {
					tomorrow := now.AddDate(0, 0, 1)
					midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
					retryAfter := int64(midnight.Sub(now).Seconds())

					c.Set("X-RateLimit-Limit-Day", strconv.Itoa(cfg.PerDay))
					c.Set("X-RateLimit-Remaining-Day", "0")
					c.Set("X-RateLimit-Reset-Day", strconv.FormatInt(midnight.Unix(), 10))
					c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

					return c.Status(429).JSON(fiber.Map{
						"error":       "daily_quota_exceeded",
						"message":     "Daily quota exceeded",
						"limit_type":  "per_day",
						"limit":       cfg.PerDay,
						"used":        countDay,
						"retry_after": retryAfter,
						"reset_at":    midnight.Format(time.RFC3339),
					})
				}

				c.Set("X-RateLimit-Remaining-Day", strconv.FormatInt(int64(cfg.PerDay)-countDay, 10))
			}
		}

		c.Set("X-RateLimit-Limit-Second", strconv.Itoa(cfg.PerSecond))
		c.Set("X-RateLimit-Limit-Day", strconv.Itoa(cfg.PerDay))

		return c.Next()
	}
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
