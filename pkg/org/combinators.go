package org

import "strings"

// Line-level helpers shared by the element parsers. Each returns the
// unconsumed remainder first, and ok == false leaves the input untouched.

// line consumes one physical line and returns it without its terminator.
// It fails on empty input.
func line(s string) (rest, ln string, ok bool) {
	if s == "" {
		return s, "", false
	}
	i := strings.IndexByte(s, '\n')
	switch {
	case i < 0:
		return "", s, true
	case i > 0 && s[i-1] == '\r':
		return s[i+1:], s[:i-1], true
	default:
		return s[i+1:], s[:i], true
	}
}

// blankLines consumes consecutive lines that contain only whitespace and
// returns how many it consumed.
func blankLines(s string) (rest string, n int) {
	for s != "" {
		i := strings.IndexByte(s, '\n')
		ln, next := s, ""
		if i >= 0 {
			ln, next = s[:i], s[i+1:]
		}
		if strings.TrimSpace(ln) != "" {
			break
		}
		s = next
		n++
	}
	return s, n
}

// oneWord consumes a run of non-whitespace bytes.
func oneWord(s string) (rest, word string, ok bool) {
	i := 0
	for i < len(s) && !isASCIISpace(s[i]) {
		i++
	}
	if i == 0 {
		return s, "", false
	}
	return s[i:], s[:i], true
}

// space1 consumes one or more spaces or tabs.
func space1(s string) (rest string, ok bool) {
	i := skipBlank(s, 0)
	if i == 0 {
		return s, false
	}
	return s[i:], true
}

// lineEnding consumes "\n" or "\r\n".
func lineEnding(s string) (rest string, ok bool) {
	switch {
	case strings.HasPrefix(s, "\n"):
		return s[1:], true
	case strings.HasPrefix(s, "\r\n"):
		return s[2:], true
	}
	return s, false
}

// skipBlank advances i over spaces and tabs.
func skipBlank(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

// skipChar advances i as long as s[i] == c.
func skipChar(s string, i int, c byte) int {
	for i < len(s) && s[i] == c {
		i++
	}
	return i
}

func isASCIISpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isASCIIAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isASCIIAlnum(c byte) bool {
	return isASCIIDigit(c) || isASCIIAlpha(c)
}
