// Package index keeps a SQLite search index over the most recently loaded
// records, with optional FTS5 full-text search.
package index

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryDSN is a process-local database that disappears on Close.
const MemoryDSN = "file:cmsloader?mode=memory&cache=shared"

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT    NOT NULL,
	filename   TEXT    NOT NULL,
	position   INTEGER NOT NULL DEFAULT 0,
	title      TEXT    NOT NULL DEFAULT '',
	checksum   TEXT    NOT NULL DEFAULT '',
	fields     TEXT    NOT NULL DEFAULT '{}',
	body       TEXT    NOT NULL DEFAULT '',
	indexed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, filename)
);

CREATE INDEX IF NOT EXISTS idx_records_position ON records(collection, position);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	memory := strings.Contains(dsn, "mode=memory")
	params := "_busy_timeout=5000"
	if !memory {
		params += "&_journal_mode=WAL"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	conn, err := sql.Open("sqlite3", dsn+sep+params)
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if memory {
		// Shared-cache memory databases lock per table.
		conn.SetMaxOpenConns(1)
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
