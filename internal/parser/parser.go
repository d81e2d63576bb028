// Package parser extracts in-buffer settings, headlines, links, and tags from
// Org documents.
package parser

import (
	"errors"
	"path"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/starford/ansuz/pkg/org"
)

// ErrInvalidUTF8 is returned for documents that are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("parser: invalid UTF-8")

// Settings holds the in-buffer settings of a document.
type Settings struct {
	Title    string           `json:"title,omitempty" yaml:"title,omitempty"`
	FileTags []string         `json:"filetags,omitempty" yaml:"filetags,omitempty"`
	Config   *org.ParseConfig `json:"-" yaml:"-"`
}

// Headline is a parsed headline together with the section text below it.
type Headline struct {
	org.Title `yaml:",inline"`
	// Ordinal is the zero-based position of the headline in the document.
	Ordinal int `json:"ordinal" yaml:"ordinal"`
	// Section is the text between the headline's metadata and the next
	// headline, whatever its level.
	Section string `json:"-" yaml:"-"`
}

// Result holds the output of parsing an Org file.
type Result struct {
	Settings  Settings   `yaml:"settings"`
	Body      string     `yaml:"-"`
	Headlines []Headline `yaml:"headlines"`
	// Links are note link targets: vault paths of .org files and id: links.
	Links   []string `yaml:"links,omitempty"`
	Targets []string `yaml:"targets,omitempty"`
	Tags    []string `yaml:"tags,omitempty"`
	Title   string   `yaml:"title"`
}

// Parse reads an Org document. base supplies the todo keywords used when the
// document declares none of its own; nil means the stock TODO/DONE pair.
func Parse(data []byte, base *org.ParseConfig) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}
	body := strings.ReplaceAll(string(data), "\r\n", "\n")

	settings := readSettings(body, base)
	res := &Result{
		Settings: settings,
		Body:     body,
	}

	starts := headlineStarts(body)
	zeroth := body
	if len(starts) > 0 {
		zeroth = body[:starts[0]]
	}

	c := newCollector()
	c.walk(zeroth)

	for i, start := range starts {
		end := len(body)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		section, title, raw, ok := org.ParseTitle(body[start:end], settings.Config)
		if !ok {
			continue
		}
		c.walk(raw)
		c.walk(section)
		res.Headlines = append(res.Headlines, Headline{
			Title:   title.Detach(),
			Ordinal: len(res.Headlines),
			Section: section,
		})
	}

	res.Links = c.links
	res.Targets = c.targets
	res.Tags = collectTags(settings.FileTags, res.Headlines)
	res.Title = deriveTitle(settings, res.Headlines)
	return res, nil
}

// readSettings collects #+KEY: value lines. Each #+TODO line adds one keyword
// sequence; the first one replaces the base keywords.
func readSettings(body string, base *org.ParseConfig) Settings {
	var s Settings
	var cfg *org.ParseConfig
	for _, line := range strings.Split(body, "\n") {
		key, value, ok := keywordLine(line)
		if !ok {
			continue
		}
		switch key {
		case "TITLE":
			if s.Title == "" {
				s.Title = value
			} else {
				s.Title += " " + value
			}
		case "FILETAGS":
			s.FileTags = append(s.FileTags, splitFileTags(value)...)
		case "TODO", "SEQ_TODO", "TYP_TODO":
			if cfg == nil {
				cfg = &org.ParseConfig{}
			}
			open, closed := todoSequence(value)
			cfg.TodoKeywords = append(cfg.TodoKeywords, open...)
			cfg.DoneKeywords = append(cfg.DoneKeywords, closed...)
		}
	}
	if cfg == nil {
		cfg = base.Clone()
	}
	s.Config = cfg
	return s
}

// keywordLine matches "#+KEY: value". The key is returned upper-cased.
func keywordLine(line string) (key, value string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimLeft(line, " \t"), "#+")
	if !found {
		return "", "", false
	}
	key, value, found = strings.Cut(rest, ":")
	if !found || key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	return strings.ToUpper(key), strings.TrimSpace(value), true
}

// todoSequence splits "TODO NEXT(n) | DONE(d!)" into open and closed keywords.
// Without a bar the last word is the closed keyword.
func todoSequence(value string) (open, closed []string) {
	var words []string
	for _, w := range strings.Fields(value) {
		if i := strings.IndexByte(w, '('); i > 0 && strings.HasSuffix(w, ")") {
			w = w[:i]
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return nil, nil
	}
	if bar := slices.Index(words, "|"); bar >= 0 {
		return words[:bar], slices.DeleteFunc(slices.Clone(words[bar+1:]), func(w string) bool { return w == "|" })
	}
	return words[:len(words)-1], words[len(words)-1:]
}

func splitFileTags(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ':' || r == ' ' || r == '\t'
	})
}

// headlineStarts returns the offsets of lines that open a headline: one or
// more stars followed by a blank, a newline, or the end of the text.
func headlineStarts(body string) []int {
	var starts []int
	for off := 0; off < len(body); {
		line := body[off:]
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i+1]
		}
		if isHeadline(line) {
			starts = append(starts, off)
		}
		off += len(line)
	}
	return starts
}

func isHeadline(line string) bool {
	i := 0
	for i < len(line) && line[i] == '*' {
		i++
	}
	return i > 0 && (i == len(line) || line[i] == ' ' || line[i] == '\t' || line[i] == '\n')
}

func collectTags(fileTags []string, headlines []Headline) []string {
	var out []string
	add := func(tag string) {
		if tag != "" && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	for _, t := range fileTags {
		add(t)
	}
	for _, h := range headlines {
		for _, t := range h.Tags {
			add(t)
		}
	}
	return out
}

// deriveTitle returns #+TITLE if present, otherwise the text of the first
// headline, otherwise empty string.
func deriveTitle(s Settings, headlines []Headline) string {
	if s.Title != "" {
		return s.Title
	}
	if len(headlines) > 0 {
		return headlines[0].Raw
	}
	return ""
}

// collector gathers links and targets from inline objects.
type collector struct {
	links   []string
	targets []string
}

func newCollector() *collector {
	return &collector{}
}

// walk classifies s object by object, descending into emphasis spans.
func (c *collector) walk(s string) {
	for s != "" {
		first, second := org.Next(s)
		if second == nil {
			if leadingBorder(s, first.Object) {
				s = s[1:]
			}
			s = c.step(s, first)
			continue
		}
		c.visit(first.Object)
		s = c.step(s[first.Len:], *second)
	}
}

// step visits seg, which starts at the head of s, and returns the text after
// it.
func (c *collector) step(s string, seg org.Segment) string {
	c.visit(seg.Object)
	if end, ok := org.SpanEnd(seg.Object); ok {
		c.walk(s[1:end])
		return s[end+1:]
	}
	return s[seg.Len:]
}

func (c *collector) visit(obj org.Object) {
	switch o := obj.(type) {
	case org.Link:
		if target, ok := normalizeLink(o.Path); ok && !slices.Contains(c.links, target) {
			c.links = append(c.links, target)
		}
		if o.Desc != nil {
			c.walk(*o.Desc)
		}
	case org.Target:
		c.addTarget(o.Target)
	case org.RadioTarget:
		c.addTarget(o.Target)
	}
}

func (c *collector) addTarget(t string) {
	if !slices.Contains(c.targets, t) {
		c.targets = append(c.targets, t)
	}
}

// leadingBorder reports whether Next skipped a border byte at the head of s
// before the object it returned.
func leadingBorder(s string, obj org.Object) bool {
	switch obj.(type) {
	case org.Text, org.Macro:
		return false
	}
	return strings.IndexByte(" \",(\n{", s[0]) >= 0
}

// normalizeLink maps a link path to a note link target. id: links are kept
// as written; file: links and bare paths must name an .org file and lose
// their search option. Everything else is not a note link.
func normalizeLink(p string) (string, bool) {
	if id, ok := strings.CutPrefix(p, "id:"); ok {
		if strings.TrimSpace(id) == "" {
			return "", false
		}
		return p, true
	}
	p = strings.TrimPrefix(p, "file:")
	if i := strings.Index(p, "::"); i >= 0 {
		p = p[:i]
	}
	if p == "" || strings.Contains(p, "://") || hasScheme(p) || !strings.HasSuffix(p, ".org") {
		return "", false
	}
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "~") {
		return "", false
	}
	return path.Clean(p), true
}

// hasScheme reports whether p starts with "word:" as in mailto: or https:.
func hasScheme(p string) bool {
	i := strings.IndexByte(p, ':')
	if i <= 0 {
		return false
	}
	for _, r := range p[:i] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '+' || r == '-') {
			return false
		}
	}
	return true
}
