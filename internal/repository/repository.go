package repository

import (
	"context"
	"time"
)

// Store is the key-value capability the service and the rate limiter depend on.
// Link records live under their slug; rate-limit counters live under
// "rl:<client>:<window>" with a TTL.
//
// There is no compare-and-swap: callers that read then write accept that a
// concurrent writer may interleave.
type Store interface {
	// Get returns the value stored under key. found is false when the key is
	// absent or expired; that is not an error.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Put writes value under key, replacing any previous value.
	// A ttl of zero means the entry never expires.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases connections held by the store
	Close() error
}
