package org

import "strings"

// scanMarkers are the bytes at which a new candidate position may start.
const scanMarkers = "@ \"(\n{<["

// emphasisPost lists the bytes that may follow a closing emphasis marker
// besides whitespace.
const emphasisPost = "-.,;:!?'\")}["

// Next classifies the start of src.
//
// It returns one of three shapes:
//   - the first segment is an object starting at offset 0 and second is nil;
//   - the first segment is a Text covering all of src and second is nil;
//   - the first segment is a Text prefix and second is the object after it.
//
// Only the first object is reported; callers continue on src[first.Len:] (or
// past the second segment). Malformed constructs are never errors, they end up
// inside a Text run.
func Next(src string) (Segment, *Segment) {
	if len(src) <= 2 {
		return Segment{Text(src), len(src)}, nil
	}

	pos := 0
	for {
		// shape builds the result for an object found at off. It keys on the
		// unshifted scan position: when the scan is still at the head of src,
		// a border byte skipped by the shift is not reported as text.
		shape := func(obj Object, n, off int) (Segment, *Segment) {
			if pos == 0 {
				return Segment{obj, n}, nil
			}
			return Segment{Text(src[:off]), off}, &Segment{obj, n}
		}

		if obj, n, ok := structural(src[pos:]); ok {
			return shape(obj, n, pos)
		}

		pre := pos
		if shiftsBorder(src[pos:]) {
			pre++
		}
		if obj, n, ok := emphasisOrLeaf(src[pre:]); ok {
			return shape(obj, n, pre)
		}

		i := strings.IndexAny(src[pos+1:], scanMarkers)
		if i < 0 || pos+1+i >= len(src)-2 {
			return Segment{Text(src), len(src)}, nil
		}
		pos += 1 + i
	}
}

// structural runs the three-byte dispatch at the start of s, which holds at
// least three bytes.
func structural(s string) (Object, int, bool) {
	switch {
	case s[0] == '@' && s[1] == '@':
		return ok3(parseSnippet(s))
	case s[0] == '{' && s[1] == '{' && s[2] == '{':
		return ok3(parseMacro(s))
	case s[0] == '<' && s[1] == '<' && s[2] == '<':
		return ok3(parseRadioTarget(s))
	case s[0] == '<' && s[1] == '<':
		if s[2] != '\n' {
			return ok3(parseTarget(s))
		}
	case s[0] == '[' && s[1] == 'f' && s[2] == 'n':
		return ok3(parseFnRef(s))
	case s[0] == '[' && s[1] == '[':
		return ok3(parseLink(s))
	case s[0] == '[':
		return ok3(parseCookie(s))
	}
	return nil, 0, false
}

// shiftsBorder reports whether the byte at the start of s is a border that
// precedes an emphasis marker rather than starting a construct itself. Bytes
// that opened a structural candidate never shift, even when that candidate
// failed.
func shiftsBorder(s string) bool {
	switch s[0] {
	case ' ', '"', ',', '(', '\n':
		return true
	case '{':
		return !(s[1] == '{' && s[2] == '{')
	}
	return false
}

// emphasisOrLeaf runs the single-byte dispatch at the start of s.
func emphasisOrLeaf(s string) (Object, int, bool) {
	switch s[0] {
	case '*':
		if end, ok := parseEmphasis(s, '*'); ok {
			return Bold{End: end}, 1, true
		}
	case '+':
		if end, ok := parseEmphasis(s, '+'); ok {
			return Strike{End: end}, 1, true
		}
	case '/':
		if end, ok := parseEmphasis(s, '/'); ok {
			return Italic{End: end}, 1, true
		}
	case '_':
		if end, ok := parseEmphasis(s, '_'); ok {
			return Underline{End: end}, 1, true
		}
	case '=':
		if end, ok := parseEmphasis(s, '='); ok {
			return Verbatim(s[1:end]), end + 1, true
		}
	case '~':
		if end, ok := parseEmphasis(s, '~'); ok {
			return Code(s[1:end]), end + 1, true
		}
	case 'c':
		return ok3(parseInlineCall(s))
	case 's':
		return ok3(parseInlineSrc(s))
	}
	return nil, 0, false
}

// parseEmphasis finds the closing marker for the opening marker at s[0] and
// returns its offset. The opening marker must be followed by a non-blank byte,
// the closing one preceded by a non-blank byte and followed by the end of s,
// whitespace or a byte from emphasisPost. The left border of the opening
// marker is the caller's concern.
func parseEmphasis(s string, marker byte) (int, bool) {
	if len(s) < 3 || isASCIISpace(s[1]) {
		return 0, false
	}
	for i := 2; i < len(s); i++ {
		if s[i] != marker || isASCIISpace(s[i-1]) {
			continue
		}
		if i+1 == len(s) || isASCIISpace(s[i+1]) || strings.IndexByte(emphasisPost, s[i+1]) >= 0 {
			return i, true
		}
	}
	return 0, false
}

// ok3 lifts a concrete sub-parser result into the Object interface.
func ok3[T Object](obj T, n int, ok bool) (Object, int, bool) {
	if !ok {
		return nil, 0, false
	}
	return obj, n, true
}
