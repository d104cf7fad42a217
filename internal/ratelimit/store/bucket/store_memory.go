package bucket

import (
	"context"
	"sync"
	"time"

	"kudose/internal/ratelimit/models"
)

// InMemoryBucketStore counts requests per fixed window in process memory.
// It is not shared between replicas and serves as the dev-mode store and the
// fallback while Redis is unavailable.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

type Option func(*InMemoryBucketStore)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryBucketStore) {
		s.now = now
	}
}

func NewInMemoryBucketStore(opts ...Option) *InMemoryBucketStore {
	s := &InMemoryBucketStore{
		buckets: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow records one request against key and reports whether it fits limit.
func (s *InMemoryBucketStore) Allow(_ context.Context, key string, limit models.Limit) (*models.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	start := models.WindowStart(now, limit.Window)
	w := s.buckets[key]
	if w == nil || !w.start.Equal(start) {
		w = &window{start: start}
		s.buckets[key] = w
	}
	w.count++
	s.evictExpired(now, key)
	return models.NewResult(w.count, limit, start, now), nil
}

// evictExpired drops buckets whose window ended more than a day ago so idle
// principals do not accumulate. Must be called while holding s.mu.
func (s *InMemoryBucketStore) evictExpired(now time.Time, keep string) {
	if len(s.buckets) < 1024 {
		return
	}
	cutoff := now.Add(-24 * time.Hour)
	for k, w := range s.buckets {
		if k != keep && w.start.Before(cutoff) {
			delete(s.buckets, k)
		}
	}
}
