package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "wagerbook:rl:commands:"

// CommandRateLimit limits chat commands per user id (or IP when the body has
// none) using a fixed one-minute window in Redis.
func CommandRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 30
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			UserID int64 `json:"user_id"`
		}
		_ = c.BodyParser(&req)
		subject := c.IP()
		if req.UserID != 0 {
			subject = strconv.FormatInt(req.UserID, 10)
		}
		key := rateLimitPrefix + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many commands, slow down")
		}
		return c.Next()
	}
}
