package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/storage"
)

// Change kinds passed to an EventCallback.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// settleDelay is how long the watcher waits for a burst of events to end
// before touching the index. Editors often save through several writes or a
// rename dance.
const settleDelay = 150 * time.Millisecond

// EventCallback is called after a watcher-driven index change with one of
// the Change kinds and the vault-relative note path.
type EventCallback func(kind string, path string)

func notify(cb EventCallback, kind, path string) {
	if cb != nil {
		cb(kind, path)
	}
}

type watcher struct {
	fsw    *fsnotify.Watcher
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback

	pending   map[string]fsnotify.Op
	reconcile bool
}

// Watch starts an fsnotify watcher on the vault root and keeps the index in
// step with it until ctx is cancelled. Events are collected per path and
// applied once they settle; each settled path is compared against the file
// on disk, so a write that leaves the content unchanged reports nothing.
//
// New directories are added to the watch list. Renames and new directories
// trigger a full reconciliation pass, which also picks up notes moved in from
// outside the vault. Hidden files and directories are ignored, which covers
// Emacs lock files.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{
		fsw:     fsw,
		db:      db,
		store:   store,
		root:    vaultRoot,
		logger:  logger,
		cb:      cb,
		pending: make(map[string]fsnotify.Op),
	}
	if err := w.addTree(vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var settle *time.Timer
	var settled <-chan time.Time
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-settled:
			w.flush()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.collect(ev) {
				continue
			}
			if settle == nil {
				settle = time.NewTimer(settleDelay)
				settled = settle.C
			} else {
				settle.Reset(settleDelay)
			}

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// collect records ev and reports whether it needs a flush.
func (w *watcher) collect(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)
	if isHidden(name) {
		return false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			} else {
				w.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
			}
			w.reconcile = true
			return true
		}
	}

	if !w.store.IsNote(name) {
		return false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	if ev.Has(fsnotify.Rename) {
		w.reconcile = true
	}
	w.pending[rel] |= ev.Op
	return true
}

// flush applies every settled path, then reconciles if a rename or new
// directory was seen.
func (w *watcher) flush() {
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)

	for _, rel := range slices.Sorted(maps.Keys(pending)) {
		w.logger.Debug("watcher: settled", slog.String("path", rel), slog.String("op", pending[rel].String()))
		w.apply(rel)
	}

	if w.reconcile {
		w.reconcile = false
		if err := syncVault(w.db, w.store, w.logger, w.cb); err != nil {
			w.logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
		}
	}
}

// apply brings the index entry for rel in line with the file on disk.
func (w *watcher) apply(rel string) {
	prev, err := w.db.GetChecksum(rel)
	if err != nil {
		w.logger.Warn("watcher: checksum lookup failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}

	data, err := w.store.Read(rel)
	if errors.Is(err, fs.ErrNotExist) {
		if prev == "" {
			return
		}
		if err := w.db.DeleteNote(rel); err != nil {
			w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		w.logger.Debug("watcher: deleted", slog.String("path", rel))
		notify(w.cb, ChangeDeleted, rel)
		return
	}
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}

	if prev == checksum.Sum(data) {
		return
	}
	if err := IndexFile(w.db, rel, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	kind := ChangeUpdated
	if prev == "" {
		kind = ChangeCreated
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	notify(w.cb, kind, rel)
}

// addTree adds root and its non-hidden subdirectories to the watcher.
func (w *watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
