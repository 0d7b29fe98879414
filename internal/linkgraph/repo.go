package linkgraph

import (
	"fmt"
	"strings"

	"github.com/starford/kenaz-migrate/internal/models"
)

// Document statuses.
const (
	StatusPending = "pending"
	StatusWritten = "written"
	StatusSkipped = "skipped"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path     string
	Basename string
	Category models.Category
	Dest     string
	Status   string
	Error    string
}

// Dangling is a missing link target and the documents referencing it.
type Dangling struct {
	Target  string
	Sources []string
}

// Stats summarises the ledger.
type Stats struct {
	Documents int
	Written   int
	Skipped   int
	Resolved  int
	Ambiguous int
	Missing   int
}

// UpsertDocument inserts or replaces a document row.
func (db *DB) UpsertDocument(d DocumentRow) error {
	if d.Status == "" {
		d.Status = StatusPending
	}
	_, err := db.conn.Exec(`
		INSERT INTO documents (path, basename, category, dest, status, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			basename = excluded.basename,
			category = excluded.category,
			dest     = excluded.dest,
			status   = excluded.status,
			error    = excluded.error
	`, d.Path, d.Basename, string(d.Category), d.Dest, d.Status, d.Error)
	if err != nil {
		return fmt.Errorf("linkgraph: upsert document: %w", err)
	}
	return nil
}

// SetStatus updates a document's status and error message.
func (db *DB) SetStatus(path, status, errMsg string) error {
	_, err := db.conn.Exec(`UPDATE documents SET status = ?, error = ? WHERE path = ?`, status, errMsg, path)
	if err != nil {
		return fmt.Errorf("linkgraph: set status: %w", err)
	}
	return nil
}

// ReplaceLinks stores the outgoing links of source, replacing earlier ones.
func (db *DB) ReplaceLinks(source string, links []models.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("linkgraph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, source); err != nil {
		return fmt.Errorf("linkgraph: delete links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, target_path, status, href) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("linkgraph: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(source, l.Target, l.TargetPath, string(l.Status), l.Href); err != nil {
				return fmt.Errorf("linkgraph: insert link: %w", err)
			}
		}
	}
	return tx.Commit()
}

// Documents returns every document row ordered by path.
func (db *DB) Documents() ([]DocumentRow, error) {
	rows, err := db.conn.Query(`SELECT path, basename, category, dest, status, error FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("linkgraph: documents: %w", err)
	}
	defer rows.Close()
	var out []DocumentRow
	for rows.Next() {
		var r DocumentRow
		var cat string
		if err := rows.Scan(&r.Path, &r.Basename, &cat, &r.Dest, &r.Status, &r.Error); err != nil {
			return nil, err
		}
		r.Category = models.Category(cat)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Dangling returns missing link targets, most referenced first, at most limit
// entries (limit <= 0 means all).
func (db *DB) Dangling(limit int) ([]Dangling, error) {
	q := `
		SELECT target, group_concat(source, char(31)) AS sources, COUNT(*) AS n
		FROM links WHERE status = ?
		GROUP BY target
		ORDER BY n DESC, target ASC`
	args := []any{string(models.LinkMissing)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("linkgraph: dangling: %w", err)
	}
	defer rows.Close()
	var out []Dangling
	for rows.Next() {
		var d Dangling
		var sources string
		var n int
		if err := rows.Scan(&d.Target, &sources, &n); err != nil {
			return nil, err
		}
		d.Sources = strings.Split(sources, "\x1f")
		out = append(out, d)
	}
	return out, rows.Err()
}

// Backlinks returns the source paths whose links resolved to the document
// at target (source-relative path), ordered by path.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source FROM links WHERE target_path = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("linkgraph: backlinks: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Stats counts documents and links by status.
func (db *DB) Stats() (Stats, error) {
	var s Stats
	err := db.conn.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(status = ?), 0),
		       COALESCE(SUM(status = ?), 0)
		FROM documents`, StatusWritten, StatusSkipped).Scan(&s.Documents, &s.Written, &s.Skipped)
	if err != nil {
		return s, fmt.Errorf("linkgraph: document stats: %w", err)
	}
	err = db.conn.QueryRow(`
		SELECT COALESCE(SUM(status = ?), 0),
		       COALESCE(SUM(status = ?), 0),
		       COALESCE(SUM(status = ?), 0)
		FROM links`, string(models.LinkResolved), string(models.LinkAmbiguous), string(models.LinkMissing)).
		Scan(&s.Resolved, &s.Ambiguous, &s.Missing)
	if err != nil {
		return s, fmt.Errorf("linkgraph: link stats: %w", err)
	}
	return s, nil
}
