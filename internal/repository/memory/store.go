package memory

import (
	"context"
	"time"

	"github.com/markoblogo/abvx-shortener/internal/repository"

	"github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired rate-limit counters are evicted
const DefaultCleanupInterval = time.Minute

// store is an in-process key-value store with per-entry expiration.
// It is the default backend and the one used by tests.
type store struct {
	cache *cache.Cache
}

// NewStore creates an in-memory store. Expired entries are invisible to Get
// immediately and evicted from memory every cleanupInterval.
func NewStore(cleanupInterval time.Duration) repository.Store {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &store{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (s *store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	v, ok := s.cache.Get(key)
	if !ok {
		return "", false, nil
	}

	value, ok := v.(string)
	if !ok {
		return "", false, nil
	}

	return value, true, nil
}

func (s *store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	expiration := cache.NoExpiration
	if ttl > 0 {
		expiration = ttl
	}
	s.cache.Set(key, value, expiration)

	return nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.cache.Delete(key)
	return nil
}

// Close drops every entry
func (s *store) Close() error {
	s.cache.Flush()
	return nil
}
