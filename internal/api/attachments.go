package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

const (
	attachDir      = "attachments"
	maxUploadBytes = 50 << 20 // 50 MB
)

// AttachmentHandler serves and accepts attachment files.
type AttachmentHandler struct {
	vaultRoot string
}

// NewAttachmentHandler creates a handler rooted at the vault directory.
func NewAttachmentHandler(vaultRoot string) *AttachmentHandler {
	return &AttachmentHandler{vaultRoot: vaultRoot}
}

// attachPath returns the absolute path to the attachments directory.
func (h *AttachmentHandler) attachPath() string {
	return filepath.Join(h.vaultRoot, attachDir)
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal) and returns the absolute path under the attachments dir.
func (h *AttachmentHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", errors.New("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	abs := filepath.Join(h.attachPath(), cleaned)
	if !strings.HasPrefix(abs, h.attachPath()+string(os.PathSeparator)) {
		return "", errors.New("path escapes attachments directory")
	}
	return abs, nil
}

// uploadName picks the stored name for an uploaded file. Names that are
// empty, hidden, or contain characters that would break an Org link are
// replaced by a random one keeping the extension.
func uploadName(name string) string {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == string(os.PathSeparator) || strings.HasPrefix(base, ".") ||
		strings.ContainsAny(base, "[]\\") {
		ext := filepath.Ext(base)
		if strings.ContainsAny(ext, "[]\\") || ext == base {
			ext = ""
		}
		return uuid.NewString() + ext
	}
	return base
}

// ServeFile handles GET /attachments/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	abs, err := h.safeName(filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
// The optional "note" field names the note the file is for; the returned
// link is then relative to that note's directory. An existing attachment is
// never overwritten: the new file gets a numeric suffix.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	note, ok := notePathParam(r.FormValue("note"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note path"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.attachPath(), 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create attachments dir"))
		return
	}
	name := h.freeName(uploadName(header.Filename))
	abs, err := h.safeName(name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if err := atomic.WriteFile(abs, file); err != nil {
		slog.Error("attachment write failed", slog.String("name", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}
	_ = os.Chmod(abs, 0o644)

	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Filename: name,
		Size:     header.Size,
		URL:      "/attachments/" + name,
		Link:     orgLink(note, name),
	})
}

// freeName returns name, or name with a -N suffix before the extension when
// an attachment of that name already exists.
func (h *AttachmentHandler) freeName(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; ; i++ {
		if _, err := os.Lstat(filepath.Join(h.attachPath(), candidate)); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
		candidate = stem + "-" + strconv.Itoa(i) + ext
	}
}

// notePathParam cleans an optional vault-relative note path. ok is false for
// absolute paths and paths leaving the vault.
func notePathParam(p string) (string, bool) {
	if p == "" {
		return "", true
	}
	p = path.Clean(filepath.ToSlash(p))
	if path.IsAbs(p) || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true,
}

// orgLink links to an attachment from note, or from the vault root when note
// is empty. Images get a bare link so Org displays them inline; other files
// carry their name as the description.
func orgLink(note, name string) string {
	target := path.Join(attachDir, name)
	if note != "" {
		if rel, err := filepath.Rel(filepath.FromSlash(path.Dir(note)), filepath.FromSlash(target)); err == nil {
			target = filepath.ToSlash(rel)
		}
	}
	if imageExts[strings.ToLower(path.Ext(name))] {
		return "[[file:" + target + "]]"
	}
	return "[[file:" + target + "][" + name + "]]"
}
