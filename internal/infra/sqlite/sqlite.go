// Package sqlite persists optimizer-run history to a CGO-free SQLite
// file, applying the statements returned by AuditMigrations, in order,
// against a shared *sql.DB wrapped in DB.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a *sql.DB with the migration/query helpers this package
// exposes. The zero value is not usable; construct with Open.
type DB struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite file at path and runs
// every migration statement returned by AuditMigrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// A single file-backed connection avoids SQLITE_BUSY from concurrent
	// writers; the optimizer's own call volume never justifies a pool.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{db: sqlDB}
	if err := db.Migrate(AuditMigrations()); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate executes each statement in order. Statements are idempotent
// ("CREATE TABLE IF NOT EXISTS"/"CREATE INDEX IF NOT EXISTS") so Migrate
// is safe to call on every startup.
func (db *DB) Migrate(statements []string) error {
	for i, stmt := range statements {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite: migration %d: %w", i, err)
		}
	}
	return nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.db.Close()
}
