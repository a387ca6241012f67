package middleware

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRateLimitPrefix namespaces the window counters in Redis
const DefaultRateLimitPrefix = "seamed:ratelimit"

// DistributedRateLimiter counts requests per fixed window in Redis so that
// every replica shares the same budget.
type DistributedRateLimiter struct {
	redis             *redis.Client
	requestsPerWindow int
	window            time.Duration
	prefix            string
	now               func() time.Time
}

// NewDistributedRateLimiter converts a per-second rate and burst into a
// per-minute window budget.
func NewDistributedRateLimiter(client *redis.Client, rps float64, burst int, prefix string) *DistributedRateLimiter {
	if prefix == "" {
		prefix = DefaultRateLimitPrefix
	}
	window := time.Minute
	return &DistributedRateLimiter{
		redis:             client,
		requestsPerWindow: int(math.Ceil(rps*window.Seconds())) + burst,
		window:            window,
		prefix:            prefix,
		now:               time.Now,
	}
}

// RequestsPerWindow returns the window budget
func (rl *DistributedRateLimiter) RequestsPerWindow() int {
	return rl.requestsPerWindow
}

// Allow increments the window counter for key. Redis errors fail open.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := rl.windowKey(key, rl.now())

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis rate limit: %w", err)
	}

	return incr.Val() <= int64(rl.requestsPerWindow), nil
}

// Remaining returns the requests left in the current window
func (rl *DistributedRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	count, err := rl.redis.Get(ctx, rl.windowKey(key, rl.now())).Int()
	if err == redis.Nil {
		return rl.requestsPerWindow, nil
	} else if err != nil {
		return 0, err
	}

	remaining := rl.requestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (rl *DistributedRateLimiter) windowKey(key string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%d", rl.prefix, key, now.Truncate(rl.window).Unix())
}
