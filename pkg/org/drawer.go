package org

import "strings"

// Drawer is the header of a :NAME: ... :END: block.
type Drawer struct {
	Name string
}

// parseDrawer frames a drawer starting at s. body holds the lines between the
// header and the :END: line, terminators included. An unterminated drawer is
// not a drawer.
func parseDrawer(s string) (rest string, d Drawer, body string, ok bool) {
	if !strings.HasPrefix(s, ":") {
		return s, Drawer{}, "", false
	}
	i := 1
	for i < len(s) && (isASCIIAlpha(s[i]) || s[i] == '-' || s[i] == '_') {
		i++
	}
	if i == 1 || i >= len(s) || s[i] != ':' {
		return s, Drawer{}, "", false
	}
	name := s[1:i]

	// The header line must end right after the name, modulo blanks.
	after := s[skipBlank(s, i+1):]
	if after != "" {
		var ok bool
		if after, ok = lineEnding(after); !ok {
			return s, Drawer{}, "", false
		}
	}

	cur := after
	for {
		next, ln, ok := line(cur)
		if !ok {
			return s, Drawer{}, "", false
		}
		if strings.EqualFold(strings.TrimSpace(ln), ":END:") {
			body = after[:len(after)-len(cur)]
			return next, Drawer{Name: name}, body, true
		}
		cur = next
	}
}
