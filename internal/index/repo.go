package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/pkg/org"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path      string
	Title     string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// HeadlineRow represents a row in the headlines table.
type HeadlineRow struct {
	Path       string         `json:"path"`
	Ordinal    int            `json:"ordinal"`
	Level      int            `json:"level"`
	Keyword    string         `json:"keyword,omitempty"`
	Done       bool           `json:"done"`
	Priority   string         `json:"priority,omitempty"`
	Title      string         `json:"title"`
	Tags       []string       `json:"tags"`
	Scheduled  string         `json:"scheduled,omitempty"`
	Deadline   string         `json:"deadline,omitempty"`
	Closed     string         `json:"closed,omitempty"`
	OrgID      string         `json:"id,omitempty"`
	Properties []org.Property `json:"properties,omitempty"`

	scheduledOn string
	deadlineOn  string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// GraphNode is a note in the link graph.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Sort orders accepted by ListNotes.
const (
	SortUpdatedAt = "updated_at"
	SortTitle     = "title"
	SortPath      = "path"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// UpsertNote inserts or replaces a note, its FTS entry, headlines, and links
// within a transaction.
func (db *DB) UpsertNote(n NoteRow, body string, headlines []HeadlineRow, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(nonNil(n.Tags))

	_, err = tx.Exec(`
		INSERT INTO notes (path, title, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.Path, n.Title, n.Checksum, string(tagsJSON), body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	titles := make([]string, len(headlines))
	for i, h := range headlines {
		titles[i] = h.Title
	}
	if err := ftsUpsert(tx, n.Path, n.Title, body, n.Tags, titles); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM headlines WHERE path = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear headlines: %w", err)
	}
	if len(headlines) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO headlines (path, ordinal, level, keyword, done, priority, title, tags,
				scheduled, scheduled_on, deadline, deadline_on, closed, org_id, properties)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare headline insert: %w", err)
		}
		defer stmt.Close()
		for _, h := range headlines {
			htags, _ := json.Marshal(nonNil(h.Tags))
			props, _ := json.Marshal(nonNil(h.Properties))
			if _, err := stmt.Exec(n.Path, h.Ordinal, h.Level, h.Keyword, h.Done, h.Priority, h.Title,
				string(htags), h.Scheduled, h.scheduledOn, h.Deadline, h.deadlineOn, h.Closed,
				h.OrgID, string(props)); err != nil {
				return fmt.Errorf("index: insert headline: %w", err)
			}
		}
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, type) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(n.Path, target, models.LinkType(target)); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry, headlines, and outgoing links.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	for _, q := range []string{
		`DELETE FROM links WHERE source = ?`,
		`DELETE FROM headlines WHERE path = ?`,
		`DELETE FROM notes WHERE path = ?`,
	} {
		if _, err := tx.Exec(q, path); err != nil {
			return fmt.Errorf("index: delete note: %w", err)
		}
	}

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetNote returns the indexed row for path.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	row := db.conn.QueryRow(`SELECT path, title, checksum, tags, updated_at FROM notes WHERE path = ?`, path)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return n, nil
}

// ListNotes returns a page of notes and the total number of matching notes.
// tag filters on note tags; sort is one of the Sort constants and defaults to
// most recently updated first.
func (db *DB) ListNotes(limit, offset int, tag, sort string) ([]NoteRow, int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset = max(offset, 0)

	order := "updated_at DESC, path"
	switch sort {
	case SortTitle:
		order = "title COLLATE NOCASE, path"
	case SortPath:
		order = "path"
	}

	where := ""
	var args []any
	if tag != "" {
		where = `WHERE EXISTS (SELECT 1 FROM json_each(notes.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	rows, err := db.conn.Query(`SELECT path, title, checksum, tags, updated_at FROM notes `+where+
		` ORDER BY `+order+` LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("index: list notes: %w", err)
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*NoteRow, error) {
	var n NoteRow
	var tags string
	if err := s.Scan(&n.Path, &n.Title, &n.Checksum, &tags, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of %s: %w", n.Path, err)
	}
	return &n, nil
}

// Graph returns every note and every link that resolves to an indexed note.
// id: links resolve through the ID property of the target's headlines.
func (db *DB) Graph() ([]GraphNode, []models.Link, error) {
	nodeRows, err := db.conn.Query(`SELECT path, title FROM notes ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer nodeRows.Close()
	nodes := []GraphNode{}
	for nodeRows.Next() {
		var n GraphNode
		if err := nodeRows.Scan(&n.ID, &n.Title); err != nil {
			return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, nil, err
	}

	linkRows, err := db.conn.Query(`
		SELECT l.source, l.target, l.type
		FROM links l JOIN notes n ON n.path = l.target
		WHERE l.type = 'file'
		UNION
		SELECT l.source, h.path, l.type
		FROM links l JOIN headlines h ON l.target = 'id:' || h.org_id
		WHERE l.type = 'id' AND h.org_id != ''
		ORDER BY 1, 2, 3
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer linkRows.Close()
	links := []models.Link{}
	for linkRows.Next() {
		var l models.Link
		if err := linkRows.Scan(&l.Source, &l.Target, &l.Type); err != nil {
			return nil, nil, fmt.Errorf("index: graph links: %w", err)
		}
		links = append(links, l)
	}
	return nodes, links, linkRows.Err()
}

// Backlinks returns all note paths that link to the given target, either by
// file path or by the ID of one of its headlines.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT source FROM links WHERE target = ? AND type = 'file'
		UNION
		SELECT l.source FROM links l JOIN headlines h ON l.target = 'id:' || h.org_id
		WHERE h.path = ? AND h.org_id != ''
		ORDER BY 1
	`, target, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// HeadlineFilter selects headlines. Zero fields do not filter.
type HeadlineFilter struct {
	Path     string
	Keyword  string
	Tag      string
	Priority string
	// State is "open" for headlines with a not-done keyword and "done" for
	// closed ones.
	State string
	// Scheduled and Deadline keep only headlines that carry the timestamp.
	Scheduled bool
	Deadline  bool
	// Until keeps headlines scheduled or due on or before this YYYY-MM-DD date.
	Until string
	Limit int
}

// Headline states accepted by HeadlineFilter.State.
const (
	StateOpen = "open"
	StateDone = "done"
)

// Headlines returns the headlines matching f ordered by path and position.
func (db *DB) Headlines(f HeadlineFilter) ([]HeadlineRow, error) {
	var conds []string
	var args []any
	add := func(cond string, a ...any) {
		conds = append(conds, cond)
		args = append(args, a...)
	}
	if f.Path != "" {
		add("path = ?", f.Path)
	}
	if f.Keyword != "" {
		add("keyword = ?", f.Keyword)
	}
	if f.Priority != "" {
		add("priority = ?", f.Priority)
	}
	if f.Tag != "" {
		add(`EXISTS (SELECT 1 FROM json_each(headlines.tags) WHERE json_each.value = ?)`, f.Tag)
	}
	switch f.State {
	case StateOpen:
		add("keyword != '' AND done = 0")
	case StateDone:
		add("done = 1")
	}
	if f.Scheduled {
		add("scheduled != ''")
	}
	if f.Deadline {
		add("deadline != ''")
	}
	if f.Until != "" {
		add("((scheduled_on != '' AND scheduled_on <= ?) OR (deadline_on != '' AND deadline_on <= ?))", f.Until, f.Until)
	}

	q := `SELECT path, ordinal, level, keyword, done, priority, title, tags,
		scheduled, deadline, closed, org_id, properties FROM headlines`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY path, ordinal"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: headlines: %w", err)
	}
	defer rows.Close()

	var out []HeadlineRow
	for rows.Next() {
		var h HeadlineRow
		var tags, props string
		if err := rows.Scan(&h.Path, &h.Ordinal, &h.Level, &h.Keyword, &h.Done, &h.Priority, &h.Title,
			&tags, &h.Scheduled, &h.Deadline, &h.Closed, &h.OrgID, &props); err != nil {
			return nil, fmt.Errorf("index: headlines: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &h.Tags); err != nil {
			return nil, fmt.Errorf("index: headlines: %w", err)
		}
		if err := json.Unmarshal([]byte(props), &h.Properties); err != nil {
			return nil, fmt.Errorf("index: headlines: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// AllPaths returns every indexed note path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
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

// AllChecksums returns the stored checksum of every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
