// Package index provides a SQLite-backed search index over lore records,
// with optional FTS5 full-text search. The index is derived state: it is
// rebuilt from the lore document at startup and never consulted as a
// source of truth.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	file       TEXT NOT NULL DEFAULT '',
	summary    TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL DEFAULT 'active',
	tags       TEXT NOT NULL DEFAULT '[]',
	body       TEXT NOT NULL DEFAULT '',
	start_line INTEGER NOT NULL DEFAULT 1,
	end_line   INTEGER NOT NULL DEFAULT 1,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_records_file ON records(file);
CREATE INDEX IF NOT EXISTS idx_records_state ON records(state);
`

// RecordIndex defines the interface for record indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type RecordIndex interface {
	UpsertRecord(r RecordRow, body string) error
	DeleteRecord(id string) error
	GetRecord(id string) (*RecordRow, error)
	ListRecords(limit, offset int, tag, state string) ([]RecordRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllIDs() (map[string]struct{}, error)
	Close() error
}

// Verify *DB satisfies RecordIndex at compile time.
var _ RecordIndex = (*DB)(nil)

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
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
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
