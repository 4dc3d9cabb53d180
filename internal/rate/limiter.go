package rate

import (
	"context"
	"time"
)

// Store is the counting backend behind a Limiter. Consume must perform the
// read-compare-increment atomically for a given key.
type Store interface {
	Consume(ctx context.Context, key string, max int, window time.Duration) (bool, error)
	Reset(ctx context.Context, key string) error
}

// Config holds the window parameters for one limiter.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultConfig is five attempts per fifteen minutes.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, Window: 15 * time.Minute}
}

// Limiter applies one Config to one key namespace.
type Limiter struct {
	store  Store
	prefix string
	config Config
}

// New creates a Limiter whose buckets live under prefix in store.
func New(store Store, prefix string, cfg Config) (*Limiter, error) {
	if store == nil || prefix == "" || cfg.MaxAttempts <= 0 || cfg.Window < time.Millisecond {
		return nil, ErrInvalidConfig
	}
	return &Limiter{store: store, prefix: prefix, config: cfg}, nil
}

// CheckAndConsume records one attempt for key and reports whether it is
// within the limit. A denied attempt does not increment the bucket. The error
// is non-nil only when the store cannot be reached.
func (l *Limiter) CheckAndConsume(ctx context.Context, key string) (bool, error) {
	return l.store.Consume(ctx, bucketKey(l.prefix, key), l.config.MaxAttempts, l.config.Window)
}

// Reset clears the bucket for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, bucketKey(l.prefix, key))
}

// Config returns the limiter's window parameters.
func (l *Limiter) Config() Config {
	return l.config
}
