// Package linkgraph records the documents and wiki-links seen during a run
// in an in-memory SQLite database and answers summary queries over them.
package linkgraph

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path     TEXT PRIMARY KEY,
	basename TEXT NOT NULL,
	category TEXT NOT NULL,
	dest     TEXT NOT NULL DEFAULT '',
	status   TEXT NOT NULL DEFAULT 'pending',
	error    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS links (
	source TEXT NOT NULL,
	target      TEXT NOT NULL,
	target_path TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	href        TEXT NOT NULL DEFAULT '',
	UNIQUE(source, target)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source);
CREATE INDEX IF NOT EXISTS idx_links_status ON links(status);
CREATE INDEX IF NOT EXISTS idx_links_target_path ON links(target_path);
CREATE INDEX IF NOT EXISTS idx_documents_dest ON documents(dest);
`

// DB wraps a sql.DB holding one run's ledger.
type DB struct {
	conn *sql.DB
}

// Open creates a private in-memory ledger. A single connection serializes
// writers from concurrent document workers.
func Open() (*DB, error) {
	dsn := fmt.Sprintf("file:ledger-%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("linkgraph: open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("linkgraph: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("linkgraph: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection, discarding the ledger.
func (db *DB) Close() error {
	return db.conn.Close()
}
