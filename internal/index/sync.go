package index

import (
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	return syncVault(db, store, logger, nil)
}

// syncVault is Sync reporting each index change to cb.
func syncVault(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		prev, known := checksums[m.Path]
		if prev == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.String("path", m.Path))
		if known {
			notify(cb, ChangeUpdated, m.Path)
		} else {
			notify(cb, ChangeCreated, m.Path)
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteNote(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
		notify(cb, ChangeDeleted, p)
	}

	return nil
}

// IndexFile parses data and upserts the note, its headlines and its links.
func IndexFile(db *DB, notePath string, data []byte) error {
	res, err := parser.Parse(data, db.base)
	if err != nil {
		return err
	}

	row := NoteRow{
		Path:      notePath,
		Title:     res.Title,
		Checksum:  checksum.Sum(data),
		Tags:      res.Tags,
		UpdatedAt: time.Now().UTC(),
	}
	return db.UpsertNote(row, res.Body, HeadlineRows(notePath, res), ResolveLinks(notePath, res.Links))
}

// HeadlineRows converts parsed headlines into index rows.
func HeadlineRows(notePath string, res *parser.Result) []HeadlineRow {
	rows := make([]HeadlineRow, 0, len(res.Headlines))
	for _, h := range res.Headlines {
		r := HeadlineRow{
			Path:       notePath,
			Ordinal:    h.Ordinal,
			Level:      h.Level,
			Keyword:    h.Keyword,
			Done:       h.Keyword != "" && res.Settings.Config.IsDone(h.Keyword),
			Title:      strings.TrimSpace(h.Raw),
			Tags:       h.Tags,
			Properties: h.Properties.Pairs,
		}
		if h.Priority != 0 {
			r.Priority = string(h.Priority)
		}
		if id, ok := h.Properties.Get("ID"); ok {
			r.OrgID = id
		}
		if ts := h.Scheduled(); ts != nil {
			r.Scheduled, r.scheduledOn = ts.String(), ts.Start.Date()
		}
		if ts := h.Deadline(); ts != nil {
			r.Deadline, r.deadlineOn = ts.String(), ts.Start.Date()
		}
		if ts := h.Closed(); ts != nil {
			r.Closed = ts.String()
		}
		rows = append(rows, r)
	}
	return rows
}

// ResolveLinks turns link paths relative to the linking note into vault
// paths. id: links are kept as written.
func ResolveLinks(notePath string, links []string) []string {
	out := make([]string, 0, len(links))
	seen := make(map[string]struct{}, len(links))
	dir := path.Dir(notePath)
	for _, l := range links {
		if models.LinkType(l) == models.LinkFile {
			l = path.Join(dir, l)
			if strings.HasPrefix(l, "../") || l == ".." {
				continue
			}
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

