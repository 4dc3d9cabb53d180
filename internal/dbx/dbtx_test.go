package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func insertNote(ctx context.Context, tx DBTX, body string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO notes (body) VALUES (?)`, body)
	return err
}

func noteCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&n))
	return n
}

func TestWithTxCommitsBothStatements(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	err := WithTx(ctx, db, func(tx DBTX) error {
		if err := insertNote(ctx, tx, "first"); err != nil {
			return err
		}
		return insertNote(ctx, tx, "second")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, noteCount(t, db))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	boom := errors.New("second statement failed")

	err := WithTx(ctx, db, func(tx DBTX) error {
		require.NoError(t, insertNote(ctx, tx, "first"))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, noteCount(t, db))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = WithTx(ctx, db, func(tx DBTX) error {
			require.NoError(t, insertNote(ctx, tx, "first"))
			panic("unexpected")
		})
	})
	assert.Equal(t, 0, noteCount(t, db))
}

func TestInTxJoinsOpenTransaction(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	outer, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, InTx(ctx, outer, func(tx DBTX) error {
		assert.Same(t, outer, tx)
		return insertNote(ctx, tx, "joined")
	}))
	require.NoError(t, outer.Rollback())
	assert.Equal(t, 0, noteCount(t, db), "the outer rollback must undo the joined write")
}

func TestInTxBeginsOnPool(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	err := InTx(ctx, db, func(tx DBTX) error {
		_, isTx := tx.(*sql.Tx)
		assert.True(t, isTx)
		return insertNote(ctx, tx, "pooled")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, noteCount(t, db))
}
