package credstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_, err := m.Find(ctx, "a@example.com")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Create(ctx, &Record{ID: "1", Email: "a@example.com", Verifier: "v"}))
	require.ErrorIs(t, m.Create(ctx, &Record{ID: "2", Email: "a@example.com"}), ErrDuplicate)

	require.NoError(t, m.MarkVerified(ctx, "a@example.com"))
	require.NoError(t, m.UpdateVerifier(ctx, "a@example.com", "v2"))
	require.ErrorIs(t, m.MarkVerified(ctx, "b@example.com"), ErrNotFound)

	got, err := m.Find(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
	assert.True(t, got.Verified)
	assert.Equal(t, "v2", got.Verifier)

	got.Verifier = "mutated"
	again, _ := m.Find(ctx, "a@example.com")
	assert.Equal(t, "v2", again.Verifier, "Find must return a copy")
}

func TestMemoryStoreConcurrentCreateSingleWinner(t *testing.T) {
	m := NewMemoryStore()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Create(context.Background(), &Record{Email: "race@example.com"}) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
