// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/storage"
)

const noteFormatURI = "ansuz://note-format"

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	svc   *noteservice.Service
}

// New creates a new MCP server with all Ansuz tools registered.
func New(store storage.Provider, svc *noteservice.Service, version string) *Server {
	s := &Server{store: store, svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through notes content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of an Org note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.org)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Org note at the specified path. "+
			"Content MUST follow the canonical note format (#+TITLE line, optional #+FILETAGS, "+
			"headlines with todo keywords, [[file:...]] links). Read the contract first via "+
			"the get_note_contract tool or the "+noteFormatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (must end with .org)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Org content following the Ansuz note format contract")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Ansuz note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note, by path or by headline ID."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_headlines",
		mcp.WithDescription("Query headlines across the vault, like an Org agenda. "+
			"Returns JSON rows with keyword, priority, tags, planning timestamps and properties."),
		mcp.WithString("path", mcp.Description("Restrict to one note")),
		mcp.WithString("state", mcp.Description(`"open" for not-done todo items, "done" for finished ones`)),
		mcp.WithString("keyword", mcp.Description("Exact todo keyword, e.g. TODO")),
		mcp.WithString("tag", mcp.Description("Headline tag")),
		mcp.WithString("priority", mcp.Description("Priority letter, e.g. A")),
		mcp.WithString("until", mcp.Description("Only items scheduled or due on or before this date (YYYY-MM-DD)")),
		mcp.WithBoolean("scheduled", mcp.Description("Only scheduled items")),
		mcp.WithBoolean("deadline", mcp.Description("Only items with a deadline")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of rows")),
	), s.listHeadlines)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Store an image or PDF in the vault attachments directory and return an Org link to it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or base64 data: URI of the file")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
	), s.uploadAsset)

	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format Contract",
			mcp.WithResourceDescription("Canonical Org note format that all notes must follow."),
			mcp.WithMIMEType("text/org"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return toolError(path, err), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.CreateNote(ctx, path, []byte(content))
	if err != nil {
		return toolError(path, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (checksum %s)", note.Path, note.Checksum)), nil
}

func (s *Server) listNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.store.List(req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	paths := make([]string, 0, len(metas))
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) listHeadlines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := index.HeadlineFilter{
		Path:      req.GetString("path", ""),
		State:     req.GetString("state", ""),
		Keyword:   req.GetString("keyword", ""),
		Tag:       req.GetString("tag", ""),
		Priority:  strings.ToUpper(req.GetString("priority", "")),
		Until:     req.GetString("until", ""),
		Scheduled: req.GetBool("scheduled", false),
		Deadline:  req.GetBool("deadline", false),
		Limit:     req.GetInt("limit", 0),
	}
	switch f.State {
	case "", index.StateOpen, index.StateDone:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("state must be %q or %q", index.StateOpen, index.StateDone)), nil
	}
	rows, err := s.svc.Headlines(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rows)
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/org",
			Text:     NoteFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(path string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError(fmt.Sprintf("note already exists: %s", path))
	case errors.Is(err, apperr.ErrInvalidPath):
		return mcp.NewToolResultError(fmt.Sprintf("invalid note path: %s", path))
	}
	return mcp.NewToolResultError(err.Error())
}
