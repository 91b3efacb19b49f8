// Package search provides full-text search over page bodies, titles and
// tags. The backing store is an in-memory SQLite database rebuilt at
// startup and kept current from vault change events; nothing is
// persisted. FTS5 is used when compiled in (build tag sqlite_fts5),
// otherwise a LIKE scan over the pages table serves as fallback.
package search

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pages (
	path  TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	tags  TEXT NOT NULL DEFAULT '',
	body  TEXT NOT NULL DEFAULT ''
);
`

// Document is one searchable page.
type Document struct {
	Path  string
	Title string
	Body  string
	Tags  []string
}

// Result is a single search hit.
type Result struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Index is the search store. Safe for concurrent use through the
// underlying sql.DB.
type Index struct {
	conn *sql.DB
}

// Open creates the in-memory database and applies the schema. A single
// connection is enforced; with :memory: every pool connection would
// otherwise see its own empty database.
func Open() (*Index, error) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("search: open: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("search: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("search: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("search: apply fts schema: %w", err)
	}
	return &Index{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Index) Close() error {
	return s.conn.Close()
}

// Upsert replaces the stored document for doc.Path.
func (s *Index) Upsert(doc Document) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin: %w", err)
	}
	defer tx.Rollback()

	tags := strings.Join(doc.Tags, " ")
	_, err = tx.Exec(`
		INSERT INTO pages (path, title, tags, body) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET title = excluded.title, tags = excluded.tags, body = excluded.body
	`, doc.Path, doc.Title, tags, doc.Body)
	if err != nil {
		return fmt.Errorf("search: upsert %s: %w", doc.Path, err)
	}
	if err := ftsUpsert(tx, doc.Path, doc.Title, doc.Body, tags); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the document for path, if present.
func (s *Index) Delete(path string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pages WHERE path = ?`, path); err != nil {
		return fmt.Errorf("search: delete %s: %w", path, err)
	}
	ftsDelete(tx, path)
	return tx.Commit()
}
