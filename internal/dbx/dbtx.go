// Package dbx holds the small database/sql seams shared by SQL stores.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the query surface of both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Beginner starts transactions. *sql.DB implements it.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// WithTx runs fn inside a new transaction on db. The transaction commits when
// fn returns nil and rolls back otherwise; a panic in fn rolls back and is
// re-raised.
func WithTx(ctx context.Context, db Beginner, fn func(tx DBTX) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// InTx runs fn atomically on h. An open *sql.Tx is joined so the caller keeps
// control of commit; a handle that can begin transactions gets a new one. Any
// other handle runs fn directly.
func InTx(ctx context.Context, h DBTX, fn func(tx DBTX) error) error {
	switch db := h.(type) {
	case *sql.Tx:
		return fn(db)
	case Beginner:
		return WithTx(ctx, db, fn)
	default:
		return fn(h)
	}
}
