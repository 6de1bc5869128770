package security

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles the public scan and payment endpoints with a redis
// fixed window per client. Redis being unavailable fails open.
type RateLimiter struct {
	redis  *redis.Client
	max    int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		max = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{redis: redisClient, max: int64(max), window: window}
}

// Wrap applies the limit to one route handler.
func (r *RateLimiter) Wrap(scope string, next func(*core.RequestEvent) error) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		userAgent := e.Request.Header.Get("User-Agent")
		if isSuspiciousUserAgent(userAgent) {
			return apis.NewForbiddenError("Access denied", nil)
		}

		if r.redis != nil {
			key := fmt.Sprintf("ratelimit:%s:%s", scope, r.clientID(e))
			ctx := e.Request.Context()

			count, err := r.redis.Incr(ctx, key).Result()
			if err == nil {
				if count == 1 {
					r.redis.Expire(ctx, key, r.window)
				}
				if count > r.max {
					return apis.NewTooManyRequestsError("Too many requests. Please try again later.", nil)
				}
			}
		}

		return next(e)
	}
}

func (r *RateLimiter) clientID(e *core.RequestEvent) string {
	if e.Auth != nil {
		return fmt.Sprintf("user:%s", e.Auth.Id)
	}

	host, _, err := net.SplitHostPort(e.Request.RemoteAddr)
	if err != nil {
		return e.Request.RemoteAddr
	}
	return host
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
