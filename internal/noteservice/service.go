// Package noteservice coordinates vault storage and the index for the HTTP
// and MCP surfaces.
package noteservice

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path      string              `json:"path"`
	Title     string              `json:"title"`
	Content   string              `json:"content"`
	Checksum  string              `json:"checksum"`
	Tags      []string            `json:"tags"`
	Headlines []index.HeadlineRow `json:"headlines"`
	Links     []string            `json:"links"`
	Backlinks []string            `json:"backlinks"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    *index.DB
}

// NewService creates a new note service.
func NewService(store storage.Provider, db *index.DB) *Service {
	return &Service{store: store, db: db}
}

// GetNote reads a note from storage, parses it, and enriches with backlinks.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	if !s.store.IsNote(path) {
		return nil, apperr.ErrInvalidPath
	}
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, data)
}

// CreateNote writes a new note and indexes it.
func (s *Service) CreateNote(_ context.Context, path string, content []byte) (*NoteDetail, error) {
	if !s.store.IsNote(path) {
		return nil, apperr.ErrInvalidPath
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if _, err := parser.Parse(content, s.db.ParseConfig()); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := index.IndexFile(s.db, path, content); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, content)
}

// UpdateNote writes updated content with optimistic concurrency. An empty
// ifMatch skips the checksum comparison.
func (s *Service) UpdateNote(_ context.Context, path string, content []byte, ifMatch string) (*NoteDetail, error) {
	if !s.store.IsNote(path) {
		return nil, apperr.ErrInvalidPath
	}
	existing, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if _, err := parser.Parse(content, s.db.ParseConfig()); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := index.IndexFile(s.db, path, content); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, content)
}

// DeleteNote removes a note from storage and index.
func (s *Service) DeleteNote(_ context.Context, path string) error {
	if !s.store.IsNote(path) {
		return apperr.ErrInvalidPath
	}
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteNote(path)
}

// ListNotes returns paginated notes with optional tag filter.
func (s *Service) ListNotes(_ context.Context, limit, offset int, tag, sort string) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	results, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(results), nil
}

// Graph returns all nodes and resolved links for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []GraphLink, error) {
	nodes, links, err := s.db.Graph()
	if err != nil {
		return nil, nil, err
	}
	out := make([]GraphLink, len(links))
	for i, l := range links {
		out[i] = GraphLink{Source: l.Source, Target: l.Target, Type: l.Type}
	}
	return nodes, out, nil
}

// GraphLink is an edge between two indexed notes.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Backlinks returns all note paths that link to the given target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	return s.db.Backlinks(target)
}

// Headlines returns indexed headlines matching f.
func (s *Service) Headlines(_ context.Context, f index.HeadlineFilter) ([]index.HeadlineRow, error) {
	rows, err := s.db.Headlines(f)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(rows), nil
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.ErrNotFound
	}
	return data, err
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading the file.
func (s *Service) buildNoteDetail(path string, data []byte) (*NoteDetail, error) {
	res, err := parser.Parse(data, s.db.ParseConfig())
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	updated := time.Now().UTC()
	if row, err := s.db.GetNote(path); err == nil {
		updated = row.UpdatedAt
	}
	return &NoteDetail{
		Path:      path,
		Title:     res.Title,
		Content:   string(data),
		Checksum:  checksum.Sum(data),
		Tags:      nonNilSlice(res.Tags),
		Headlines: index.HeadlineRows(path, res),
		Links:     index.ResolveLinks(path, res.Links),
		Backlinks: nonNilSlice(bl),
		UpdatedAt: updated,
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
