package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agalitsyn/sqlite"
	_ "modernc.org/sqlite"

	"github.com/Joseda-hg/lazyboard/internal/db/migrations"
)

// Open connects to the SQLite file at path and applies pending migrations.
// The pool is pinned to one connection so ":memory:" databases and
// connection-scoped pragmas behave.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}

	db, err := sqlite.Connect(path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := applyPragmas(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := sqlite.MigrateUp(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return db, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	return nil
}
