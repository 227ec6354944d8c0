// Package search provides an in-memory SQLite full-text index over the
// vault, rebuilt from storage by Sync. Nothing persists between runs; the
// database lives only as long as the process.
package search

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	path  TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	tags  TEXT NOT NULL DEFAULT '',
	body  TEXT NOT NULL DEFAULT ''
);
`

// Index wraps the in-memory search database.
type Index struct {
	conn *sql.DB
}

// Result is one search hit.
type Result struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Open creates the in-memory database and applies the schema. A single
// connection is enforced so every query sees the same :memory: instance.
func Open() (*Index, error) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("search: open: %w", err)
	}
	conn.SetMaxOpenConns(1)
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

// Close closes the database, discarding the index.
func (ix *Index) Close() error {
	return ix.conn.Close()
}

// Upsert inserts or replaces one note.
func (ix *Index) Upsert(path, title, body string, tags []string) error {
	tx, err := ix.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO notes (path, title, tags, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			tags  = excluded.tags,
			body  = excluded.body
	`, path, title, strings.Join(tags, " "), body)
	if err != nil {
		return fmt.Errorf("search: upsert: %w", err)
	}
	if err := ftsUpsert(tx, path, title, body, tags); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes one note from the index.
func (ix *Index) Delete(path string) error {
	tx, err := ix.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, path)
	return tx.Commit()
}

// Paths returns every indexed note path.
func (ix *Index) Paths() (map[string]struct{}, error) {
	rows, err := ix.conn.Query(`SELECT path FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("search: paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// Sync rebuilds the index from the vault: every readable note is upserted,
// entries for vanished files are removed. Individual failures are logged
// and skipped.
func (ix *Index) Sync(store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return fmt.Errorf("search: list vault: %w", err)
	}

	indexed, err := ix.Paths()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("search: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		res, err := extract.Parse(m.Path, data)
		if err != nil {
			logger.Warn("search: parse failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := ix.Upsert(m.Path, res.Title, res.Body, res.Tags); err != nil {
			logger.Warn("search: upsert failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		}
	}

	for p := range indexed {
		if _, ok := disk[p]; !ok {
			if err := ix.Delete(p); err != nil {
				logger.Warn("search: delete stale failed", slog.String("path", p), slog.String("error", err.Error()))
			}
		}
	}

	return nil
}
