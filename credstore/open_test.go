package credstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_UsesSeam(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var calledDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		calledDir = dir
		return nil
	}
	require.NoError(t, Migrate(context.Background(), db, Postgres))
	assert.Equal(t, ".", calledDir)

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	err = Migrate(context.Background(), db, Postgres)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), "oracle", "")
	require.Error(t, err)
}

func TestSQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	db, store, err := Open(ctx, "sqlite", "file:credstore_e2e?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rec := &Record{ID: "id-1", Email: "a@example.com", Verifier: "v1"}
	require.NoError(t, store.Create(ctx, rec))
	require.ErrorIs(t, store.Create(ctx, &Record{ID: "id-2", Email: "a@example.com", Verifier: "v"}), ErrDuplicate)

	got, err := store.Find(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	assert.False(t, got.Verified)

	require.NoError(t, store.MarkVerified(ctx, "a@example.com"))

	require.NoError(t, store.UpdateVerifier(ctx, "a@example.com", "v2"))

	got, err = store.Find(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.Equal(t, "v2", got.Verifier)

	_, err = store.Find(ctx, "ghost@example.com")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, store.UpdateVerifier(ctx, "ghost@example.com", "x"), ErrNotFound)

	assert.Equal(t, []string{EventCreated, EventVerified, EventVerifierChanged}, eventKinds(t, db, "a@example.com"))
}

func TestSQLiteMutationIsAtomic(t *testing.T) {
	ctx := context.Background()
	db, store, err := Open(ctx, "sqlite", "file:credstore_atomic?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, store.Create(ctx, &Record{ID: "id-1", Email: "a@example.com", Verifier: "v1"}))

	// A colliding event id fails the second statement; the verifier update
	// must roll back with it.
	store.newID = func() string { return "fixed-id" }
	require.NoError(t, store.MarkVerified(ctx, "a@example.com"))
	require.Error(t, store.UpdateVerifier(ctx, "a@example.com", "v2"))

	got, err := store.Find(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Verifier)
	assert.Equal(t, []string{EventCreated, EventVerified}, eventKinds(t, db, "a@example.com"))
}

func eventKinds(t *testing.T, db *sql.DB, email string) []string {
	t.Helper()
	rows, err := db.Query(`SELECT kind FROM credential_events WHERE email = ? ORDER BY rowid`, email)
	require.NoError(t, err)
	defer rows.Close()

	var kinds []string
	for rows.Next() {
		var kind string
		require.NoError(t, rows.Scan(&kind))
		kinds = append(kinds, kind)
	}
	require.NoError(t, rows.Err())
	return kinds
}
