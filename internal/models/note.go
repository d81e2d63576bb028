// Package models defines the domain types shared by the Ansuz storage and
// index layers.
package models

import "time"

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link types.
const (
	LinkFile = "file"
	LinkID   = "id"
)

// Link represents a directed edge between two notes.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"` // "file" or "id"
}

// LinkType classifies a link target as written in a note.
func LinkType(target string) string {
	if len(target) > 3 && target[:3] == "id:" {
		return LinkID
	}
	return LinkFile
}
