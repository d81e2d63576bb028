// Package index provides SQLite-backed note and headline indexing with
// optional FTS5 full-text search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/ansuz/pkg/org"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	path       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS headlines (
	path         TEXT NOT NULL,
	ordinal      INTEGER NOT NULL,
	level        INTEGER NOT NULL,
	keyword      TEXT NOT NULL DEFAULT '',
	done         INTEGER NOT NULL DEFAULT 0,
	priority     TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	tags         TEXT NOT NULL DEFAULT '[]',
	scheduled    TEXT NOT NULL DEFAULT '',
	scheduled_on TEXT NOT NULL DEFAULT '',
	deadline     TEXT NOT NULL DEFAULT '',
	deadline_on  TEXT NOT NULL DEFAULT '',
	closed       TEXT NOT NULL DEFAULT '',
	org_id       TEXT NOT NULL DEFAULT '',
	properties   TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (path, ordinal)
);

CREATE TABLE IF NOT EXISTS links (
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	type   TEXT NOT NULL DEFAULT 'file',
	UNIQUE(source, target)
);

CREATE INDEX IF NOT EXISTS idx_headlines_keyword ON headlines(keyword);
CREATE INDEX IF NOT EXISTS idx_headlines_org_id ON headlines(org_id);
CREATE INDEX IF NOT EXISTS idx_links_source ON links(source);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
	base *org.ParseConfig
}

// Option configures a DB.
type Option func(*DB)

// WithParseConfig sets the todo keywords used for documents that declare
// none of their own.
func WithParseConfig(cfg *org.ParseConfig) Option {
	return func(db *DB) {
		db.base = cfg.Clone()
	}
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	db := &DB{conn: conn, base: org.DefaultParseConfig()}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// ParseConfig returns the base keyword configuration.
func (db *DB) ParseConfig() *org.ParseConfig {
	return db.base
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
