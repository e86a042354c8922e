package repository

import (
	"context"
	"time"

	"github.com/markoblogo/abvx-shortener/internal/metrics"
)

// instrumentedStore records Prometheus metrics around every store call
type instrumentedStore struct {
	next    Store
	backend string
}

// Instrument wraps a store so that operation latency, hits, misses and errors
// are exported under the given backend label (memory, redis, postgres)
func Instrument(next Store, backend string) Store {
	return &instrumentedStore{next: next, backend: backend}
}

func (s *instrumentedStore) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, found, err := s.next.Get(ctx, key)
	s.observe("get", start, err)

	if err == nil {
		if found {
			metrics.RecordStoreHit(s.backend)
		} else {
			metrics.RecordStoreMiss(s.backend)
		}
	}

	return value, found, err
}

func (s *instrumentedStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	start := time.Now()
	err := s.next.Put(ctx, key, value, ttl)
	s.observe("put", start, err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.observe("delete", start, err)
	return err
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}

func (s *instrumentedStore) observe(operation string, start time.Time, err error) {
	metrics.StoreOperationDuration.WithLabelValues(s.backend, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues(s.backend, operation).Inc()
	}
}
