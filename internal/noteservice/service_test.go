package noteservice

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/testutil"
	"github.com/starford/ansuz/pkg/org"
)

const projectDoc = `#+TITLE: Project
#+FILETAGS: :work:
* TODO [#A] Ship release :urgent:
DEADLINE: <2024-06-01 Sat>
:PROPERTIES:
:ID: ship-1
:END:
See [[file:notes/log.org][the log]].
* DONE Write changelog
`

func newService(t *testing.T) *Service {
	t.Helper()
	_, store := testutil.TestVault(t)
	return NewService(store, testutil.TestDB(t))
}

func TestCreateNote(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	d, err := svc.CreateNote(ctx, "project.org", []byte(projectDoc))
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if d.Title != "Project" {
		t.Errorf("title = %q", d.Title)
	}
	if d.Checksum != checksum.Sum([]byte(projectDoc)) {
		t.Errorf("checksum = %q", d.Checksum)
	}
	if len(d.Headlines) != 2 || d.Headlines[0].OrgID != "ship-1" || !d.Headlines[1].Done {
		t.Errorf("headlines = %+v", d.Headlines)
	}
	if len(d.Links) != 1 || d.Links[0] != "notes/log.org" {
		t.Errorf("links = %v", d.Links)
	}
	if d.UpdatedAt.IsZero() {
		t.Error("UpdatedAt is zero")
	}

	if _, err := svc.CreateNote(ctx, "project.org", []byte("* Again\n")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateNote_Rejects(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "readme.txt", []byte("x")); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("non-org err = %v, want ErrInvalidPath", err)
	}
	if _, err := svc.CreateNote(ctx, "bad.org", []byte{0xff, 0xfe}); !errors.Is(err, parser.ErrInvalidUTF8) {
		t.Errorf("invalid utf-8 err = %v, want ErrInvalidUTF8", err)
	}
	if _, err := svc.GetNote(ctx, "bad.org"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("rejected note was written: %v", err)
	}
}

func TestUpdateNote_Conflict(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	orig, err := svc.CreateNote(ctx, "a.org", []byte("* First\n"))
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, err := svc.UpdateNote(ctx, "a.org", []byte("* Second\n"), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale update err = %v, want ErrConflict", err)
	}
	d, err := svc.UpdateNote(ctx, "a.org", []byte("* Second\n"), orig.Checksum)
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if d.Title != "Second" {
		t.Errorf("title = %q", d.Title)
	}
	if _, err := svc.UpdateNote(ctx, "missing.org", []byte("* X\n"), ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing update err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNote(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "gone.org", []byte("* TODO Gone\n")); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if err := svc.DeleteNote(ctx, "gone.org"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if err := svc.DeleteNote(ctx, "gone.org"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	rows, err := svc.Headlines(ctx, index.HeadlineFilter{Path: "gone.org"})
	if err != nil {
		t.Fatalf("Headlines: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("headlines left after delete: %+v", rows)
	}
}

func TestBacklinksAndGraph(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "notes/log.org", []byte("* Log\n")); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, err := svc.CreateNote(ctx, "project.org", []byte(projectDoc)); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	d, err := svc.GetNote(ctx, "notes/log.org")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if len(d.Backlinks) != 1 || d.Backlinks[0] != "project.org" {
		t.Errorf("backlinks = %v", d.Backlinks)
	}

	nodes, links, err := svc.Graph(ctx)
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("nodes = %+v", nodes)
	}
	want := GraphLink{Source: "project.org", Target: "notes/log.org", Type: "file"}
	if len(links) != 1 || links[0] != want {
		t.Errorf("links = %+v, want [%+v]", links, want)
	}
}

func TestHeadlines_NonNil(t *testing.T) {
	svc := newService(t)
	rows, err := svc.Headlines(context.Background(), index.HeadlineFilter{Keyword: "TODO"})
	if err != nil {
		t.Fatalf("Headlines: %v", err)
	}
	if rows == nil {
		t.Error("Headlines returned nil slice")
	}
}

func TestHeadlines_ConfiguredKeywords(t *testing.T) {
	db := testutil.TestDB(t, index.WithParseConfig(&org.ParseConfig{
		TodoKeywords: []string{"NEXT"},
		DoneKeywords: []string{"SHIPPED"},
	}))
	_, store := testutil.TestVault(t)
	testutil.WriteNotes(t, store, map[string]string{
		"plan.org":  "* NEXT Draft\n* SHIPPED Launch\n* TODO Plain\n",
		"other.org": "#+TODO: TODO | DONE\n* TODO Local\n",
	})
	if err := index.Sync(db, store, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	svc := NewService(store, db)

	open, err := svc.Headlines(context.Background(), index.HeadlineFilter{State: index.StateOpen})
	if err != nil {
		t.Fatalf("Headlines: %v", err)
	}
	var got []string
	for _, h := range open {
		got = append(got, h.Path+":"+h.Keyword+":"+h.Title)
	}
	want := []string{"other.org:TODO:Local", "plan.org:NEXT:Draft"}
	if !slices.Equal(got, want) {
		t.Errorf("open headlines = %v, want %v", got, want)
	}
}
