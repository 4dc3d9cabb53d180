package rate

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxKeys bounds a MemoryStore when no limit is given.
const DefaultMaxKeys = 100_000

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps buckets in a map guarded by one mutex. When the map holds
// maxKeys buckets, expired ones are swept before a new bucket is created. If
// none have expired, the bucket nearest its reset is evicted, so a new key is
// always admitted. A flood of more than maxKeys distinct keys inside one
// window therefore forgets the oldest counters early; size maxKeys above the
// expected number of keys active per window.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	maxKeys int
	now     func() time.Time
}

// NewMemoryStore returns an empty store. A nil now uses time.Now.
func NewMemoryStore(maxKeys int, now func() time.Time) *MemoryStore {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		maxKeys: maxKeys,
		now:     now,
	}
}

// Consume implements Store.
func (s *MemoryStore) Consume(_ context.Context, key string, max int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if ok && now.Before(b.resetAt) {
		if b.count >= max {
			return false, nil
		}
		b.count++
		return true, nil
	}

	if !ok && len(s.buckets) >= s.maxKeys {
		s.sweepLocked(now)
		if len(s.buckets) >= s.maxKeys {
			s.evictOldestLocked()
		}
	}

	s.buckets[key] = &bucket{count: 1, resetAt: now.Add(window)}
	return true, nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.buckets, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of live or not yet swept buckets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for k, b := range s.buckets {
		if !now.Before(b.resetAt) {
			delete(s.buckets, k)
		}
	}
}

func (s *MemoryStore) evictOldestLocked() {
	var (
		oldest string
		at     time.Time
	)
	for k, b := range s.buckets {
		if at.IsZero() || b.resetAt.Before(at) {
			oldest, at = k, b.resetAt
		}
	}
	delete(s.buckets, oldest)
}
