package index

import (
	"errors"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/pkg/org"
)

func testDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name(), opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func note(path string) NoteRow {
	return NoteRow{Path: path, Checksum: "cs-" + path, UpdatedAt: time.Now()}
}

const alphaDoc = `#+TITLE: Alpha
#+FILETAGS: :proj:
* TODO [#A] Write report :work:
SCHEDULED: <2024-01-10 Wed>
:PROPERTIES:
:ID: alpha-1
:END:
See [[file:sub/b.org][B]] and [[id:beta-1]].
* DONE Ship it
CLOSED: [2024-01-05 Fri 10:00]
* Plain heading :misc:
DEADLINE: <2024-02-01 Thu>
`

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"notes", "headlines", "links"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "hello.org",
		Title:     "Hello World",
		Checksum:  "abc123",
		Tags:      []string{"go", "test"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "This is a hello world note.", nil, []string{"other.org"}); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("hello.org")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetNote(t *testing.T) {
	db := testDB(t)
	row := note("n.org")
	row.Title = "N"
	row.Tags = []string{"x"}
	_ = db.UpsertNote(row, "body", nil, nil)

	got, err := db.GetNote("n.org")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Title != "N" || !slices.Equal(got.Tags, []string{"x"}) {
		t.Errorf("GetNote = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}

	if _, err := db.GetNote("missing.org"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(note("a.org"), "body", nil, []string{"b.org"})
	_ = db.UpsertNote(note("c.org"), "body", nil, []string{"b.org"})

	bl, err := db.Backlinks("b.org")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if !slices.Equal(bl, []string{"a.org", "c.org"}) {
		t.Fatalf("backlinks = %v", bl)
	}
}

func TestBacklinks_ByID(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(note("target.org"), "body", []HeadlineRow{{Ordinal: 0, Level: 1, Title: "T", OrgID: "t-1"}}, nil)
	_ = db.UpsertNote(note("src.org"), "body", nil, []string{"id:t-1"})

	bl, err := db.Backlinks("target.org")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if !slices.Equal(bl, []string{"src.org"}) {
		t.Errorf("backlinks = %v, want [src.org]", bl)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(note("del.org"), "body", []HeadlineRow{{Level: 1, Title: "H"}}, []string{"target.org"})

	if err := db.DeleteNote("del.org"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("del.org")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	bl, _ := db.Backlinks("target.org")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
	hs, _ := db.Headlines(HeadlineFilter{Path: "del.org"})
	if len(hs) != 0 {
		t.Errorf("expected headlines removed, got %d", len(hs))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{Path: "up.org", Title: "Old", Checksum: "1", UpdatedAt: now}, "old body",
		[]HeadlineRow{{Ordinal: 0, Level: 1, Title: "One"}, {Ordinal: 1, Level: 1, Title: "Two"}}, []string{"x.org"})
	_ = db.UpsertNote(NoteRow{Path: "up.org", Title: "New", Checksum: "2", Tags: []string{"new"}, UpdatedAt: now}, "new body",
		[]HeadlineRow{{Ordinal: 0, Level: 1, Title: "Only"}}, []string{"y.org"})

	cs, _ := db.GetChecksum("up.org")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	bl, _ := db.Backlinks("x.org")
	if len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	bl, _ = db.Backlinks("y.org")
	if len(bl) != 1 {
		t.Error("new link should exist")
	}
	hs, _ := db.Headlines(HeadlineFilter{Path: "up.org"})
	if len(hs) != 1 || hs[0].Title != "Only" {
		t.Errorf("headlines = %+v, want only the new one", hs)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	row := note("s.org")
	row.Title = "Search Me"
	_ = db.UpsertNote(row, "uniqueword appears here", nil, nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.org" {
		t.Errorf("search results = %+v, want 1 hit for s.org", results)
	}
}

func TestListNotes(t *testing.T) {
	db := testDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range []string{"c.org", "a.org", "b.org"} {
		_ = db.UpsertNote(NoteRow{
			Path:      p,
			Title:     string(rune('Z' - i)),
			Checksum:  p,
			Tags:      []string{"all"},
			UpdatedAt: base.Add(time.Duration(i) * time.Hour),
		}, "", nil, nil)
	}
	tagged := note("tagged.org")
	tagged.Tags = []string{"special"}
	tagged.UpdatedAt = base
	_ = db.UpsertNote(tagged, "", nil, nil)

	paths := func(rows []NoteRow) []string {
		var out []string
		for _, r := range rows {
			out = append(out, r.Path)
		}
		return out
	}

	rows, total, err := db.ListNotes(0, 0, "", "")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if got := paths(rows); !slices.Equal(got, []string{"b.org", "a.org", "c.org", "tagged.org"}) {
		t.Errorf("default order = %v", got)
	}

	rows, _, _ = db.ListNotes(2, 1, "", SortPath)
	if got := paths(rows); !slices.Equal(got, []string{"b.org", "c.org"}) {
		t.Errorf("paged by path = %v", got)
	}

	rows, total, _ = db.ListNotes(10, 0, "special", "")
	if total != 1 || len(rows) != 1 || rows[0].Path != "tagged.org" {
		t.Errorf("tag filter = %v (total %d)", paths(rows), total)
	}
}

func TestIndexFile_Headlines(t *testing.T) {
	db := testDB(t)
	if err := IndexFile(db, "alpha.org", []byte(alphaDoc)); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	n, err := db.GetNote("alpha.org")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n.Title != "Alpha" {
		t.Errorf("title = %q, want Alpha", n.Title)
	}
	if !slices.Contains(n.Tags, "proj") || !slices.Contains(n.Tags, "work") {
		t.Errorf("tags = %v", n.Tags)
	}

	hs, err := db.Headlines(HeadlineFilter{Path: "alpha.org"})
	if err != nil {
		t.Fatalf("Headlines: %v", err)
	}
	if len(hs) != 3 {
		t.Fatalf("got %d headlines, want 3", len(hs))
	}
	first := hs[0]
	if first.Keyword != "TODO" || first.Done || first.Priority != "A" || first.Title != "Write report" {
		t.Errorf("first = %+v", first)
	}
	if first.Scheduled != "<2024-01-10 Wed>" {
		t.Errorf("scheduled = %q", first.Scheduled)
	}
	if first.OrgID != "alpha-1" {
		t.Errorf("org id = %q", first.OrgID)
	}
	if len(first.Properties) != 1 || first.Properties[0] != (org.Property{Name: "ID", Value: "alpha-1"}) {
		t.Errorf("properties = %+v", first.Properties)
	}
	if !hs[1].Done || hs[1].Closed == "" {
		t.Errorf("second = %+v, want done with CLOSED", hs[1])
	}
	if hs[2].Keyword != "" || hs[2].Deadline != "<2024-02-01 Thu>" {
		t.Errorf("third = %+v", hs[2])
	}
}

func TestHeadlines_Filter(t *testing.T) {
	db := testDB(t)
	_ = IndexFile(db, "alpha.org", []byte(alphaDoc))
	_ = IndexFile(db, "other.org", []byte("* TODO Elsewhere :work:\n"))

	cases := []struct {
		name string
		f    HeadlineFilter
		want []string
	}{
		{"open", HeadlineFilter{State: StateOpen}, []string{"Write report", "Elsewhere"}},
		{"done", HeadlineFilter{State: StateDone}, []string{"Ship it"}},
		{"keyword", HeadlineFilter{Keyword: "DONE"}, []string{"Ship it"}},
		{"tag", HeadlineFilter{Tag: "work"}, []string{"Write report", "Elsewhere"}},
		{"priority", HeadlineFilter{Priority: "A"}, []string{"Write report"}},
		{"scheduled", HeadlineFilter{Scheduled: true}, []string{"Write report"}},
		{"deadline", HeadlineFilter{Deadline: true}, []string{"Plain heading"}},
		{"until jan", HeadlineFilter{Until: "2024-01-31"}, []string{"Write report"}},
		{"until feb", HeadlineFilter{Until: "2024-02-01"}, []string{"Write report", "Plain heading"}},
		{"limit", HeadlineFilter{Limit: 1}, []string{"Write report"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hs, err := db.Headlines(tc.f)
			if err != nil {
				t.Fatalf("Headlines: %v", err)
			}
			var got []string
			for _, h := range hs {
				got = append(got, h.Title)
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("titles = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIndexFile_CustomKeywords(t *testing.T) {
	cfg := &org.ParseConfig{TodoKeywords: []string{"NEXT"}, DoneKeywords: []string{"FIXED"}}
	db := testDB(t, WithParseConfig(cfg))

	_ = IndexFile(db, "k.org", []byte("* NEXT Call\n* FIXED Bug\n* TODO Not a keyword here\n"))
	hs, _ := db.Headlines(HeadlineFilter{Path: "k.org"})
	if len(hs) != 3 {
		t.Fatalf("got %d headlines", len(hs))
	}
	if hs[0].Keyword != "NEXT" || hs[0].Done {
		t.Errorf("first = %+v", hs[0])
	}
	if hs[1].Keyword != "FIXED" || !hs[1].Done {
		t.Errorf("second = %+v", hs[1])
	}
	if hs[2].Keyword != "" || hs[2].Title != "TODO Not a keyword here" {
		t.Errorf("third = %+v", hs[2])
	}
}

func TestCorruptJSONColumns(t *testing.T) {
	db := testDB(t)
	if err := IndexFile(db, "bad.org", []byte("* TODO Broken :x:\n")); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	if _, err := db.conn.Exec(`UPDATE headlines SET properties = 'not json' WHERE path = 'bad.org'`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Headlines(HeadlineFilter{Path: "bad.org"}); err == nil {
		t.Error("Headlines with corrupt properties: err = nil")
	}

	if _, err := db.conn.Exec(`UPDATE headlines SET properties = '[]', tags = '{' WHERE path = 'bad.org'`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Headlines(HeadlineFilter{Path: "bad.org"}); err == nil {
		t.Error("Headlines with corrupt tags: err = nil")
	}

	if _, err := db.conn.Exec(`UPDATE notes SET tags = 'x' WHERE path = 'bad.org'`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetNote("bad.org"); err == nil {
		t.Error("GetNote with corrupt tags: err = nil")
	}
	if _, _, err := db.ListNotes(0, 0, "", ""); err == nil {
		t.Error("ListNotes with corrupt tags: err = nil")
	}
}

func TestGraph(t *testing.T) {
	db := testDB(t)
	_ = IndexFile(db, "alpha.org", []byte(alphaDoc))
	_ = IndexFile(db, "sub/b.org", []byte("* B\n:PROPERTIES:\n:ID: beta-1\n:END:\nBack to [[file:../alpha.org]].\n"))
	_ = IndexFile(db, "lonely.org", []byte("* Nobody\n[[file:missing.org]]\n"))

	nodes, links, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 3 {
		t.Errorf("nodes = %+v, want 3", nodes)
	}
	type edge struct{ src, dst, typ string }
	var got []edge
	for _, l := range links {
		got = append(got, edge{l.Source, l.Target, l.Type})
	}
	want := []edge{
		{"alpha.org", "sub/b.org", "file"},
		{"alpha.org", "sub/b.org", "id"},
		{"sub/b.org", "alpha.org", "file"},
	}
	if !slices.Equal(got, want) {
		t.Errorf("links = %v, want %v", got, want)
	}
}

func TestResolveLinks(t *testing.T) {
	got := ResolveLinks("notes/a.org", []string{"b.org", "../c.org", "id:x", "../../out.org", "./b.org"})
	want := []string{"notes/b.org", "c.org", "id:x"}
	if !slices.Equal(got, want) {
		t.Errorf("ResolveLinks = %v, want %v", got, want)
	}
}
