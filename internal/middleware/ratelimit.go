package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns a fixed-window per-client limiter for the public
// intake endpoints, counting requests in redis under
// rl:<ip>:<window>. With a nil client the limiter is a no-op, and a
// redis failure lets the request through: losing rate limiting is
// better than refusing discount requests because redis blinked.
func RateLimit(client *redis.Client, perMinute int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if client == nil || perMinute <= 0 {
				return next(c)
			}
			window := time.Now().Unix() / 60
			key := fmt.Sprintf("rl:%s:%d", c.RealIP(), window)

			ctx := c.Request().Context()
			n, err := client.Incr(ctx, key).Result()
			if err != nil {
				log.Printf("ratelimit: redis incr failed: %v", err)
				return next(c)
			}
			if n == 1 {
				// First hit of the window owns the expiry.
				if err := client.Expire(ctx, key, time.Minute).Err(); err != nil {
					log.Printf("ratelimit: redis expire failed: %v", err)
				}
			}
			if n > int64(perMinute) {
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
			}
			return next(c)
		}
	}
}
