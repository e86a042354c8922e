package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/markoblogo/abvx-shortener/internal/repository"

	"github.com/redis/go-redis/v9"
)

// store keeps link records and rate-limit counters in Redis.
// Keys are used verbatim: a slug maps to its URL, "rl:..." keys to counters.
type store struct {
	client *redis.Client
}

// NewStore creates a Redis-backed store on an existing client
func NewStore(client *redis.Client) repository.Store {
	return &store{client: client}
}

// Get retrieves a value. redis.Nil means the key is absent or expired.
func (s *store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get error: %w", err)
	}

	return value, true, nil
}

// Put stores a value. A zero ttl keeps the key forever.
func (s *store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}

	return nil
}

func (s *store) Close() error {
	return s.client.Close()
}

// InitRedis creates a new Redis client and verifies it with PING
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		// Connection pool settings
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   -1, // no retries, store errors surface to the caller
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
