package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	attachDir    = "attachments"
	maxAssetSize = 10 << 20 // 10 MB
)

var (
	mimeToExt = map[string]string{
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"image/svg+xml":   ".svg",
		"application/pdf": ".pdf",
	}

	// Brackets would end an Org link early.
	unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// assetResult is returned to the model after a successful upload.
type assetResult struct {
	Path    string `json:"path"`
	OrgLink string `json:"orgLink"`
}

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var data []byte
	var ext string
	if strings.HasPrefix(rawURL, "data:") {
		data, ext, err = decodeDataURI(rawURL)
	} else {
		data, ext, err = fetchAsset(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := assetName(req.GetString("filename", ""), rawURL, ext)
	if err := checkContent(data, filepath.Ext(name)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rel := attachDir + "/" + name
	if _, readErr := s.store.Read(rel); readErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s", rel)), nil
	}
	if err := s.store.Write(rel, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save attachment: %v", err)), nil
	}

	return jsonResult(assetResult{
		Path:    rel,
		OrgLink: "[[file:" + rel + "]]",
	})
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", errors.New("invalid data URI: missing comma separator")
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", errors.New("only base64 data URIs are supported")
	}
	ext := mimeToExt[strings.Split(mime, ";")[0]]
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxAssetSize {
		return nil, "", fmt.Errorf("file too large: %d bytes (max %d)", len(data), maxAssetSize)
	}
	return data, ext, nil
}

// fetchAsset downloads a file over http(s), refusing loopback and cloud
// metadata hosts.
func fetchAsset(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %q (only http/https)", parsed.Scheme)
	}
	if err := checkHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects (max 5)")
			}
			return checkHost(req.URL.Hostname())
		},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxAssetSize {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes", maxAssetSize)
	}
	return data, mimeToExt[strings.Split(resp.Header.Get("Content-Type"), ";")[0]], nil
}

func checkHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil //nolint:nilerr // the HTTP client reports DNS failures
		}
		ip = ips[0]
	}
	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// assetName picks a safe attachment name: the requested one, else the last
// URL path segment, else a random name. detectedExt is appended when the
// name has no extension.
func assetName(requested, rawURL, detectedExt string) string {
	name := requested
	if name == "" && !strings.HasPrefix(rawURL, "data:") {
		if u, err := url.Parse(rawURL); err == nil {
			name = path.Base(u.Path)
		}
	}
	name = unsafeNameRe.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." || name == "_" || strings.HasPrefix(name, ".") {
		name = uuid.NewString()
	}
	if filepath.Ext(name) == "" {
		ext := detectedExt
		if ext == "" {
			ext = ".bin"
		}
		name += ext
	}
	return name
}

// checkContent verifies the file content matches its extension.
func checkContent(data []byte, ext string) error {
	ext = strings.ToLower(ext)
	if ext == ".svg" {
		head := data[:min(len(data), 1024)]
		if !bytes.Contains(head, []byte("<svg")) {
			return errors.New("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}

	allowed := false
	for _, e := range mimeToExt {
		if e == ext {
			allowed = true
		}
	}
	if ext == ".jpeg" {
		ext, allowed = ".jpg", true
	}
	if !allowed {
		return fmt.Errorf("unsupported file extension: %q (allowed: png, jpg, jpeg, gif, webp, svg, pdf)", ext)
	}

	detected := http.DetectContentType(data)
	if mimeToExt[strings.Split(detected, ";")[0]] != ext {
		return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
	}
	return nil
}
