package index

import (
	"strings"
	"unicode/utf8"
)

const (
	searchDefaultLimit = 20
	searchMaxLimit     = 100
	snippetWidth       = 160
)

func searchLimit(limit int) int {
	switch {
	case limit <= 0:
		return searchDefaultLimit
	case limit > searchMaxLimit:
		return searchMaxLimit
	}
	return limit
}

// ftsQuery turns free text into an FTS5 query: every word becomes a quoted
// phrase, so operators and punctuation match literally, and a trailing *
// keeps prefix search. Words are ANDed.
func ftsQuery(q string) string {
	var terms []string
	for _, word := range strings.Fields(q) {
		prefix := strings.HasSuffix(word, "*")
		word = strings.TrimRight(word, "*")
		if word == "" {
			continue
		}
		term := `"` + strings.ReplaceAll(word, `"`, `""`) + `"`
		if prefix {
			term += "*"
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, " ")
}

// likePattern wraps q for a LIKE ... ESCAPE '\' substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// snippetAround cuts about snippetWidth bytes of body around the first
// case-insensitive occurrence of term and marks it with <b></b>. Whitespace
// runs collapse to one space.
func snippetAround(body, term string) string {
	lower, lterm := strings.ToLower(body), strings.ToLower(term)
	i := strings.Index(lower, lterm)
	if i < 0 || lterm == "" || len(lower) != len(body) {
		i = 0
		lterm = ""
	}
	j := i + len(lterm)

	from := runeBoundary(body, max(i-snippetWidth/2, 0), -1)
	to := runeBoundary(body, min(j+snippetWidth/2, len(body)), 1)
	if lterm == "" {
		to = runeBoundary(body, min(snippetWidth, len(body)), 1)
	}

	var b strings.Builder
	if from > 0 {
		b.WriteString("...")
	}
	b.WriteString(body[from:i])
	if lterm != "" {
		b.WriteString("<b>" + body[i:j] + "</b>")
	}
	b.WriteString(body[j:to])
	if to < len(body) {
		b.WriteString("...")
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// runeBoundary moves i in direction dir until it sits on a rune start.
func runeBoundary(s string, i, dir int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i += dir
	}
	return i
}
