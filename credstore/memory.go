package credstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

func (m *MemoryStore) Find(_ context.Context, email string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryStore) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.Email]; ok {
		return ErrDuplicate
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now().UTC()
	}
	rec.UpdatedAt = rec.CreatedAt
	m.records[rec.Email] = *rec
	return nil
}

func (m *MemoryStore) MarkVerified(_ context.Context, email string) error {
	return m.mutate(email, func(r *Record) { r.Verified = true })
}

func (m *MemoryStore) UpdateVerifier(_ context.Context, email, verifier string) error {
	return m.mutate(email, func(r *Record) { r.Verifier = verifier })
}

func (m *MemoryStore) mutate(email string, fn func(*Record)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[email]
	if !ok {
		return ErrNotFound
	}
	fn(&rec)
	rec.UpdatedAt = m.now().UTC()
	m.records[email] = rec
	return nil
}
