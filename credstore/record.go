package credstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for an email.
	ErrNotFound = errors.New("credential not found")
	// ErrDuplicate is returned by Create when the email is already registered.
	ErrDuplicate = errors.New("credential already exists")
)

// Record is a stored credential. Email is the normalized identity key.
type Record struct {
	ID        string
	Email     string
	Verifier  string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is implemented by SQLStore and MemoryStore.
type Store interface {
	Find(ctx context.Context, email string) (*Record, error)
	Create(ctx context.Context, rec *Record) error
	MarkVerified(ctx context.Context, email string) error
	UpdateVerifier(ctx context.Context, email, verifier string) error
}
