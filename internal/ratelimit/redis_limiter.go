package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// allowScript performs the fixed-window read and increment in one step.
// It returns {allowed, remaining}.
var allowScript = redis.NewScript(`
	local key = KEYS[1]
	local max_requests = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')
	if current >= max_requests then
		return {0, 0}
	end

	current = redis.call('INCR', key)
	redis.call('EXPIRE', key, ttl)
	return {1, max_requests - current}
`)

// RedisLimiter is the atomic variant of FixedWindowLimiter for the Redis backend.
// Keys, window boundaries and TTLs are identical; only the race is closed.
type RedisLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewRedisLimiter creates an atomic fixed-window limiter
func NewRedisLimiter(client *redis.Client, maxRequests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow checks if a request should be allowed.
// Returns (allowed, remaining, resetTime, error).
func (rl *RedisLimiter) Allow(ctx context.Context, clientID string) (bool, int, time.Time, error) {
	index, reset := currentWindow(rl.now(), rl.window)
	key := CounterKey(clientID, index)
	ttlSeconds := int((rl.window + GracePeriod) / time.Second)

	result, err := allowScript.Run(ctx, rl.client, []string{key}, rl.maxRequests, ttlSeconds).Result()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected result format")
	}

	allowed, ok1 := values[0].(int64)
	remaining, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected result format")
	}

	return allowed == 1, int(remaining), reset, nil
}

// MaxRequests returns the maximum number of requests allowed per window
func (rl *RedisLimiter) MaxRequests() int {
	return rl.maxRequests
}
