package org

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Title is a parsed headline: the stars line plus the planning line and
// property drawer directly below it.
type Title struct {
	// Level is the number of leading stars.
	Level int
	// Keyword is the todo keyword, or empty.
	Keyword string
	// Priority is the letter of a [#X] cookie, or 0.
	Priority rune
	// Tags are the labels of the trailing :tag:group:, in order.
	Tags []string
	// Raw is the headline text without stars, keyword, priority and tags.
	Raw        string
	Planning   *Planning
	Properties PropertiesMap
	// PostBlank counts the blank lines after the headline's metadata.
	PostBlank int
}

// ParseTitle parses the headline at the start of input, which must begin with
// at least one star. It returns the unconsumed input, the title, and the raw
// title text for inline parsing. ok is false only when the star precondition
// does not hold.
func ParseTitle(input string, cfg *ParseConfig) (rest string, t Title, raw string, ok bool) {
	level := skipChar(input, 0, '*')
	if level == 0 {
		return input, Title{}, "", false
	}
	input = input[level:]

	keyword := ""
	if s, ok := space1(input); ok {
		if s, word, ok := oneWord(s); ok && cfg.IsTodoKeyword(word) {
			keyword = word
			input = s
		}
	}

	var priority rune
	if s, p, ok := priorityCookie(input); ok {
		priority = p
		input = s
	}

	input, tail, _ := line(input)
	tail = strings.TrimSpace(tail)
	raw, tagGroup := splitTags(tail)

	t = Title{
		Level:    level,
		Keyword:  keyword,
		Priority: priority,
		Tags:     splitTagGroup(tagGroup),
		Raw:      raw,
	}

	if s, p, ok := parsePlanning(input); ok {
		t.Planning = &p
		input = s
	}
	if s, props, ok := parsePropertiesDrawer(input); ok {
		t.Properties = props
		input = s
	}
	input, t.PostBlank = blankLines(input)

	return input, t, raw, true
}

// priorityCookie matches blanks, "[#X]" with an uppercase ASCII letter, and a
// following blank or line end. The end of input also counts as a line end, so
// "** TODO [#C]" has priority C and an empty title. The trailing separator is
// not consumed.
func priorityCookie(s string) (rest string, p rune, ok bool) {
	s, ok = space1(s)
	if !ok || len(s) < 4 || s[0] != '[' || s[1] != '#' || s[2] < 'A' || s[2] > 'Z' || s[3] != ']' {
		return s, 0, false
	}
	after := s[4:]
	if after != "" && after[0] != ' ' && after[0] != '\t' {
		if _, ok := lineEnding(after); !ok {
			return s, 0, false
		}
	}
	return after, rune(s[2]), true
}

// splitTags splits the trimmed headline tail at its last space or tab. The
// token after it is the tag group when isTagLine accepts it.
func splitTags(tail string) (raw, tagGroup string) {
	i := strings.LastIndexAny(tail, " \t")
	if i < 0 || !isTagLine(tail[i+1:]) {
		return tail, ""
	}
	return strings.TrimSpace(tail[:i]), tail[i+1:]
}

func isTagLine(s string) bool {
	if len(s) <= 2 || s[0] != ':' || s[len(s)-1] != ':' {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) && !strings.ContainsRune("_@#%:", r) {
			return false
		}
	}
	return true
}

func splitTagGroup(group string) []string {
	var tags []string
	for _, tag := range strings.Split(group, ":") {
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Closed returns the CLOSED timestamp, or nil.
func (t *Title) Closed() *Timestamp {
	if t.Planning == nil {
		return nil
	}
	return t.Planning.Closed
}

// Scheduled returns the SCHEDULED timestamp, or nil.
func (t *Title) Scheduled() *Timestamp {
	if t.Planning == nil {
		return nil
	}
	return t.Planning.Scheduled
}

// Deadline returns the DEADLINE timestamp, or nil.
func (t *Title) Deadline() *Timestamp {
	if t.Planning == nil {
		return nil
	}
	return t.Planning.Deadline
}

// IsArchived reports whether the headline carries the ARCHIVE tag.
func (t *Title) IsArchived() bool {
	return slices.Contains(t.Tags, "ARCHIVE")
}

// IsCommented reports whether the headline text starts with the COMMENT word.
func (t *Title) IsCommented() bool {
	rest, ok := strings.CutPrefix(t.Raw, "COMMENT")
	if !ok {
		return false
	}
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsSpace(r)
}

// Detach returns a deep copy that does not reference the parsed input.
func (t Title) Detach() Title {
	c := t
	c.Keyword = strings.Clone(t.Keyword)
	c.Raw = strings.Clone(t.Raw)
	if t.Tags != nil {
		c.Tags = make([]string, len(t.Tags))
		for i, tag := range t.Tags {
			c.Tags[i] = strings.Clone(tag)
		}
	}
	c.Planning = t.Planning.Detach()
	c.Properties = t.Properties.Detach()
	return c
}
