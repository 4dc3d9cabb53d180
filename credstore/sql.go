package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/chatgate/internal/dbx"
	"github.com/google/uuid"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// Change kinds recorded in credential_events.
const (
	EventCreated         = "created"
	EventVerified        = "verified"
	EventVerifierChanged = "verifier_changed"
)

// SQLStore is a Store over database/sql. Every mutation writes the
// credential row and a credential_events row in one transaction.
type SQLStore struct {
	db      dbx.DBTX
	dialect Dialect
	now     func() time.Time
	newID   func() string
}

func NewSQLStore(db dbx.DBTX, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now, newID: uuid.NewString}
}

// rebind rewrites $n placeholders to SQLite's ?n form.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != SQLite {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}

func (s *SQLStore) Find(ctx context.Context, email string) (*Record, error) {
	query :=
		`SELECT id, email, verifier, verified, created_at, updated_at FROM credentials
		 WHERE email = $1
		 `

	rec := &Record{}
	err := s.db.QueryRowContext(ctx, s.rebind(query), email).
		Scan(&rec.ID, &rec.Email, &rec.Verifier, &rec.Verified, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

// Create inserts rec. An existing email yields ErrDuplicate.
func (s *SQLStore) Create(ctx context.Context, rec *Record) error {
	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt

	query :=
		`INSERT INTO credentials (id, email, verifier, verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO NOTHING
		 `

	return dbx.InTx(ctx, s.db, func(tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, s.rebind(query),
			rec.ID, rec.Email, rec.Verifier, rec.Verified, rec.CreatedAt, rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n == 0 {
			return ErrDuplicate
		}
		return s.recordEvent(ctx, tx, rec.Email, EventCreated, rec.CreatedAt)
	})
}

func (s *SQLStore) MarkVerified(ctx context.Context, email string) error {
	query :=
		`UPDATE credentials SET verified = $1, updated_at = $2
		 WHERE email = $3
		 `
	now := s.now().UTC()
	return s.update(ctx, email, EventVerified, now, query, true, now, email)
}

// UpdateVerifier replaces the verifier for email.
func (s *SQLStore) UpdateVerifier(ctx context.Context, email, verifier string) error {
	query :=
		`UPDATE credentials SET verifier = $1, updated_at = $2
		 WHERE email = $3
		 `
	now := s.now().UTC()
	return s.update(ctx, email, EventVerifierChanged, now, query, verifier, now, email)
}

func (s *SQLStore) update(ctx context.Context, email, kind string, at time.Time, query string, args ...any) error {
	return dbx.InTx(ctx, s.db, func(tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, s.rebind(query), args...)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return s.recordEvent(ctx, tx, email, kind, at)
	})
}

func (s *SQLStore) recordEvent(ctx context.Context, tx dbx.DBTX, email, kind string, at time.Time) error {
	query :=
		`INSERT INTO credential_events (id, email, kind, created_at)
		 VALUES ($1, $2, $3, $4)
		 `
	if _, err := tx.ExecContext(ctx, s.rebind(query), s.newID(), email, kind, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
