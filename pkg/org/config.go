// Package org parses the headline and inline-object layer of Org documents.
//
// The package is pure: every function works on an immutable input string,
// returns sub-slices of it where no transformation is needed, and keeps no
// state between calls. Callers that retain parsed values beyond the lifetime of
// the input buffer should call Detach on them.
package org

import "slices"

// ParseConfig carries the per-document settings the parser depends on.
type ParseConfig struct {
	// TodoKeywords lists the open ("TODO"-like) keywords.
	TodoKeywords []string
	// DoneKeywords lists the closed ("DONE"-like) keywords.
	DoneKeywords []string
}

// DefaultParseConfig returns the stock TODO/DONE keyword configuration.
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		TodoKeywords: []string{"TODO"},
		DoneKeywords: []string{"DONE"},
	}
}

// IsTodoKeyword reports whether word exactly matches an open or closed keyword.
func (c *ParseConfig) IsTodoKeyword(word string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.TodoKeywords, word) || slices.Contains(c.DoneKeywords, word)
}

// IsDone reports whether word is one of the closed keywords.
func (c *ParseConfig) IsDone(word string) bool {
	return c != nil && slices.Contains(c.DoneKeywords, word)
}

// Clone returns a copy whose keyword slices do not alias c's.
func (c *ParseConfig) Clone() *ParseConfig {
	if c == nil {
		return DefaultParseConfig()
	}
	return &ParseConfig{
		TodoKeywords: slices.Clone(c.TodoKeywords),
		DoneKeywords: slices.Clone(c.DoneKeywords),
	}
}
