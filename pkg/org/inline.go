package org

import "strings"

// Sub-parsers for the structural inline objects. Each one is handed the text
// starting at the object's first marker and returns the object and the number
// of bytes it spans.

// parseCookie matches [N/M] or [N%] with optional digits.
func parseCookie(s string) (Cookie, int, bool) {
	if !strings.HasPrefix(s, "[") {
		return Cookie{}, 0, false
	}
	i := 1
	for i < len(s) && isASCIIDigit(s[i]) {
		i++
	}
	switch {
	case i < len(s) && s[i] == '%':
		i++
	case i < len(s) && s[i] == '/':
		i++
		for i < len(s) && isASCIIDigit(s[i]) {
			i++
		}
	default:
		return Cookie{}, 0, false
	}
	if i >= len(s) || s[i] != ']' {
		return Cookie{}, 0, false
	}
	return Cookie{Value: s[:i+1]}, i + 1, true
}

// parseFnRef matches [fn:label], [fn:label:definition] and [fn::definition].
// Brackets inside the definition must balance.
func parseFnRef(s string) (FnRef, int, bool) {
	if !strings.HasPrefix(s, "[fn:") {
		return FnRef{}, 0, false
	}
	i := 4
	for i < len(s) && (isASCIIAlnum(s[i]) || s[i] == '-' || s[i] == '_') {
		i++
	}
	label := s[4:i]
	var def *string
	if i < len(s) && s[i] == ':' {
		n, ok := balancedBrackets(s[i+1:])
		if !ok {
			return FnRef{}, 0, false
		}
		d := s[i+1 : i+1+n]
		def = &d
		i += 1 + n
	}
	if i >= len(s) || s[i] != ']' || (label == "" && def == nil) {
		return FnRef{}, 0, false
	}
	return FnRef{Label: label, Definition: def}, i + 1, true
}

// balancedBrackets returns the length of s up to the ']' that closes an
// already-open bracket.
func balancedBrackets(s string) (int, bool) {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth == 1 {
				return i, true
			}
			depth--
		}
	}
	return 0, false
}

// parseLink matches [[path]] and [[path][description]].
func parseLink(s string) (Link, int, bool) {
	if !strings.HasPrefix(s, "[[") {
		return Link{}, 0, false
	}
	i := 2
	for i < len(s) && s[i] != '<' && s[i] != '>' && s[i] != '\n' && s[i] != ']' {
		i++
	}
	if i == 2 || i >= len(s) || s[i] != ']' {
		return Link{}, 0, false
	}
	link := Link{Path: s[2:i]}
	i++
	if i < len(s) && s[i] == '[' {
		end := strings.IndexByte(s[i+1:], ']')
		if end < 0 {
			return Link{}, 0, false
		}
		desc := s[i+1 : i+1+end]
		link.Desc = &desc
		i += end + 2
	}
	if i >= len(s) || s[i] != ']' {
		return Link{}, 0, false
	}
	return link, i + 1, true
}

// parseMacro matches {{{name}}} and {{{name(arguments)}}}. The name starts
// with a letter and continues with letters, digits, '-' or '_'.
func parseMacro(s string) (Macro, int, bool) {
	if !strings.HasPrefix(s, "{{{") || len(s) < 4 || !isASCIIAlpha(s[3]) {
		return Macro{}, 0, false
	}
	i := 4
	for i < len(s) && (isASCIIAlnum(s[i]) || s[i] == '-' || s[i] == '_') {
		i++
	}
	m := Macro{Name: s[3:i]}
	if i < len(s) && s[i] == '(' {
		end := strings.Index(s[i+1:], ")}}}")
		if end < 0 {
			return Macro{}, 0, false
		}
		args := s[i+1 : i+1+end]
		m.Arguments = &args
		i += end + 2
	}
	if !strings.HasPrefix(s[i:], "}}}") {
		return Macro{}, 0, false
	}
	return m, i + 3, true
}

// parseSnippet matches @@backend:value@@.
func parseSnippet(s string) (Snippet, int, bool) {
	if !strings.HasPrefix(s, "@@") {
		return Snippet{}, 0, false
	}
	i := 2
	for i < len(s) && (isASCIIAlnum(s[i]) || s[i] == '-') {
		i++
	}
	if i == 2 || i >= len(s) || s[i] != ':' {
		return Snippet{}, 0, false
	}
	end := strings.Index(s[i+1:], "@@")
	if end < 0 {
		return Snippet{}, 0, false
	}
	return Snippet{Name: s[2:i], Value: s[i+1 : i+1+end]}, i + 1 + end + 2, true
}

// parseTarget matches <<target>>.
func parseTarget(s string) (Target, int, bool) {
	t, n, ok := delimitedTarget(s, "<<", ">>")
	return Target{Target: t}, n, ok
}

// parseRadioTarget matches <<<target>>>.
func parseRadioTarget(s string) (RadioTarget, int, bool) {
	t, n, ok := delimitedTarget(s, "<<<", ">>>")
	return RadioTarget{Target: t}, n, ok
}

// delimitedTarget reads a target that contains no '<', '>' or newline and
// neither starts nor ends with a space.
func delimitedTarget(s, open, closing string) (string, int, bool) {
	if !strings.HasPrefix(s, open) {
		return "", 0, false
	}
	i := len(open)
	for i < len(s) && s[i] != '<' && s[i] != '>' && s[i] != '\n' {
		i++
	}
	target := s[len(open):i]
	if target == "" || target[0] == ' ' || target[len(target)-1] == ' ' {
		return "", 0, false
	}
	if !strings.HasPrefix(s[i:], closing) {
		return "", 0, false
	}
	return target, i + len(closing), true
}

// parseInlineCall matches call_name[inside](arguments)[end].
func parseInlineCall(s string) (InlineCall, int, bool) {
	if !strings.HasPrefix(s, "call_") {
		return InlineCall{}, 0, false
	}
	i := 5
	for i < len(s) && s[i] != '[' && s[i] != '(' && s[i] != ')' && !isASCIISpace(s[i]) {
		i++
	}
	if i == 5 {
		return InlineCall{}, 0, false
	}
	call := InlineCall{Name: s[5:i]}
	if h, n, ok := lineDelimited(s[i:], '[', ']'); ok {
		call.InsideHeader = &h
		i += n
	}
	args, n, ok := lineDelimited(s[i:], '(', ')')
	if !ok {
		return InlineCall{}, 0, false
	}
	call.Arguments = args
	i += n
	if h, n, ok := lineDelimited(s[i:], '[', ']'); ok {
		call.EndHeader = &h
		i += n
	}
	return call, i, true
}

// parseInlineSrc matches src_lang[options]{body}.
func parseInlineSrc(s string) (InlineSrc, int, bool) {
	if !strings.HasPrefix(s, "src_") {
		return InlineSrc{}, 0, false
	}
	i := 4
	for i < len(s) && s[i] != '[' && s[i] != '{' && !isASCIISpace(s[i]) {
		i++
	}
	if i == 4 {
		return InlineSrc{}, 0, false
	}
	src := InlineSrc{Lang: s[4:i]}
	if opts, n, ok := lineDelimited(s[i:], '[', ']'); ok {
		src.Options = &opts
		i += n
	}
	body, n, ok := lineDelimited(s[i:], '{', '}')
	if !ok {
		return InlineSrc{}, 0, false
	}
	src.Body = body
	return src, i + n, true
}

// lineDelimited reads open...closing on a single line.
func lineDelimited(s string, open, closing byte) (string, int, bool) {
	if s == "" || s[0] != open {
		return "", 0, false
	}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case closing:
			return s[1:i], i + 1, true
		case '\n':
			return "", 0, false
		}
	}
	return "", 0, false
}
