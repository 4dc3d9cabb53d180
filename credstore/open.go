package credstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MrEthical07/chatgate/credstore/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations to db.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	goose.SetBaseFS(migrations.FS)
	name := "pgx"
	if dialect == SQLite {
		name = "sqlite3"
	}
	if err := goose.SetDialect(name); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Open connects with driver ("pgx" or "sqlite"), migrates, and returns the
// pool with a store over it. The caller closes the pool.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, *SQLStore, error) {
	var dialect Dialect
	switch driver {
	case "pgx", "postgres":
		driver, dialect = "pgx", Postgres
	case "sqlite":
		dialect = SQLite
	default:
		return nil, nil, fmt.Errorf("unsupported credential store driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if dialect == SQLite {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return db, NewSQLStore(db, dialect), nil
}
