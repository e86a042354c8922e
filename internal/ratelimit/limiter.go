package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/markoblogo/abvx-shortener/internal/repository"
)

// GracePeriod is added to the window length when setting a counter's TTL
// so that a counter outlives its window slightly
const GracePeriod = 5 * time.Second

// FixedWindowLimiter counts requests per client in fixed, non-overlapping windows.
//
// HOW IT WORKS:
// 1. Time is split into windows of length W; index = floor(unix seconds / W)
// 2. Each (client, window) pair has a counter key "rl:<client>:<index>"
// 3. A request reads the counter; below the limit it writes count+1 and is allowed
// 4. At the limit the request is denied and nothing is written
//
// The read and the write are separate store calls. Two concurrent requests
// may read the same count and both pass, so the cap is best-effort.
type FixedWindowLimiter struct {
	store       repository.Store
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewFixedWindowLimiter creates a limiter over any key-value store.
// Example: NewFixedWindowLimiter(store, 30, time.Minute) allows 30 requests per minute.
func NewFixedWindowLimiter(store repository.Store, maxRequests int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		store:       store,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow checks if a request from clientID should be allowed.
// Returns (allowed, remaining, resetTime, error); resetTime is the end of the current window.
func (rl *FixedWindowLimiter) Allow(ctx context.Context, clientID string) (bool, int, time.Time, error) {
	index, reset := currentWindow(rl.now(), rl.window)
	key := CounterKey(clientID, index)

	raw, found, err := rl.store.Get(ctx, key)
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := 0
	if found {
		count, err = strconv.Atoi(raw)
		if err != nil {
			return false, 0, time.Time{}, fmt.Errorf("corrupt rate limit counter %q: %w", key, err)
		}
	}

	if count >= rl.maxRequests {
		return false, 0, reset, nil
	}

	next := count + 1
	if err := rl.store.Put(ctx, key, strconv.Itoa(next), rl.window+GracePeriod); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit update failed: %w", err)
	}

	return true, rl.maxRequests - next, reset, nil
}

// MaxRequests returns the maximum number of requests allowed per window
func (rl *FixedWindowLimiter) MaxRequests() int {
	return rl.maxRequests
}

// CounterKey builds the store key for a client's counter in a window
func CounterKey(clientID string, windowIndex int64) string {
	return fmt.Sprintf("rl:%s:%d", clientID, windowIndex)
}

// currentWindow returns the window index containing now and the time the window ends
func currentWindow(now time.Time, window time.Duration) (int64, time.Time) {
	seconds := int64(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	index := now.Unix() / seconds
	return index, time.Unix((index+1)*seconds, 0)
}
