package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("* Hello\nWorld\n")
	if err := s.Write("note.org", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.org")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
	info, err := os.Stat(filepath.Join(s.Root(), "note.org"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("a/b/c.org", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.org")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("del.org", []byte("bye"))
	if err := s.Delete("del.org"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.org"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("old.org", []byte("data"))
	if err := s.Move("old.org", "sub/new.org"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.org")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.org"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.org", []byte("a"))
	_ = s.Write("sub/b.org", []byte("b"))
	_ = s.Write("readme.txt", []byte("not org"))
	_ = s.Write("notes.md", []byte("not org either"))
	_ = s.Write(".git/hidden.org", []byte("hidden"))
	if err := os.Symlink("user@host.1234", filepath.Join(s.Root(), ".#a.org")); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("%s: empty checksum", it.Path)
		}
	}
}

func TestList_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir, ".org", ".org_archive")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	_ = s.Write("a.org", []byte("a"))
	_ = s.Write("a.org_archive", []byte("old"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
	if !s.IsNote("X.ORG") {
		t.Error("IsNote should ignore extension case")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.org",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("Read(%q) err = %v, want ErrInvalidPath", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("atomic.org", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.org", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.org")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	entries, _ := os.ReadDir(s.root)
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("leftover temp files: %v", names)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/ansuz-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "ansuz-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
