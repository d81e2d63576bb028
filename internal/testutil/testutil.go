// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/storage"
)

// TestDB opens an index in a temporary directory and closes it when the test
// ends.
func TestDB(t *testing.T, opts ...index.Option) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "ansuz-test.db"), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteNotes writes each path/content pair into the vault.
func WriteNotes(t *testing.T, store storage.Provider, notes map[string]string) {
	t.Helper()
	for p, content := range notes {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}
