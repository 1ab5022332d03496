// Package db is the SQLite-backed dictionary store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// migrationsSQL creates the schema. Statements are idempotent so InitDB can
// run on every start.
const migrationsSQL = `
CREATE TABLE IF NOT EXISTS dictionaries (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	revision      TEXT NOT NULL DEFAULT '',
	author        TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	entry_count   INTEGER NOT NULL DEFAULT 0,
	skipped_count INTEGER NOT NULL DEFAULT 0,
	imported_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	dictionary_id TEXT NOT NULL,
	entry_id      INTEGER NOT NULL,
	expression    TEXT NOT NULL DEFAULT '',
	reading       TEXT NOT NULL,
	frequency     INTEGER NOT NULL DEFAULT 0,
	payload       TEXT NOT NULL,
	PRIMARY KEY (dictionary_id, entry_id)
);

CREATE INDEX IF NOT EXISTS idx_entries_expression ON entries(expression, dictionary_id);
CREATE INDEX IF NOT EXISTS idx_entries_reading ON entries(reading, dictionary_id);

CREATE TABLE IF NOT EXISTS import_staging (
	import_id  TEXT NOT NULL,
	entry_id   INTEGER NOT NULL,
	expression TEXT NOT NULL DEFAULT '',
	reading    TEXT NOT NULL,
	frequency  INTEGER NOT NULL DEFAULT 0,
	payload    TEXT NOT NULL,
	PRIMARY KEY (import_id, entry_id)
);

CREATE TABLE IF NOT EXISTS lookup_counts (
	dictionary_id  TEXT NOT NULL,
	entry_id       INTEGER NOT NULL,
	count          INTEGER NOT NULL DEFAULT 0,
	last_looked_up TIMESTAMP,
	PRIMARY KEY (dictionary_id, entry_id)
);
`

// InitDB runs migrations on the given DB connection.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Open opens the database at path, enables WAL so readers are not blocked
// by a writer, and runs migrations. ":memory:" is limited to a single
// connection because every connection would otherwise get its own
// database.
func Open(ctx context.Context, path string, busyTimeout time.Duration) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", path, busyTimeout.Milliseconds())
	if path == ":memory:" {
		dsn = ":memory:"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	} else if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
