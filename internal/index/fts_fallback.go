//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the notes and headlines tables are searched with LIKE.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _, _, _ string, _, _ []string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search matches query as a case-insensitive substring of note titles, tags,
// bodies and headline titles. Title hits rank first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	like := likePattern(query)
	rows, err := db.conn.Query(`
		SELECT n.path, n.title, n.body
		FROM notes n
		WHERE n.title LIKE ? ESCAPE '\'
		   OR n.tags LIKE ? ESCAPE '\'
		   OR n.body LIKE ? ESCAPE '\'
		   OR EXISTS (SELECT 1 FROM headlines h WHERE h.path = n.path AND h.title LIKE ? ESCAPE '\')
		ORDER BY n.title LIKE ? ESCAPE '\' DESC, n.path
		LIMIT ?
	`, like, like, like, like, like, searchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var body string
		if err := rows.Scan(&r.Path, &r.Title, &body); err != nil {
			return nil, err
		}
		r.Snippet = snippetAround(body, query)
		out = append(out, r)
	}
	return out, rows.Err()
}
