package org

import "strings"

// Object is one classified inline unit. The set of implementations is closed:
// FnRef, InlineCall, InlineSrc, Link, Macro, RadioTarget, Target, Snippet,
// Cookie, Bold, Italic, Strike, Underline, Verbatim, Code and Text.
type Object interface {
	// Detach returns a copy that does not reference the scanned input.
	Detach() Object
	isObject()
}

// Segment is an object together with the number of input bytes it covers.
type Segment struct {
	Object Object
	Len    int
}

// Cookie is a statistics cookie such as [2/3] or [66%], brackets included.
type Cookie struct {
	Value string
}

// FnRef is a footnote reference. Definition is set for inline footnotes.
type FnRef struct {
	Label      string
	Definition *string
}

// InlineCall is a call_name[header](args)[header] babel call.
type InlineCall struct {
	Name         string
	InsideHeader *string
	Arguments    string
	EndHeader    *string
}

// InlineSrc is a src_lang[options]{body} source fragment.
type InlineSrc struct {
	Lang    string
	Options *string
	Body    string
}

// Link is a bracket link. Desc is nil when the link has no description.
type Link struct {
	Path string
	Desc *string
}

// Macro is a {{{name(arguments)}}} invocation.
type Macro struct {
	Name      string
	Arguments *string
}

// RadioTarget is a <<<target>>>.
type RadioTarget struct {
	Target string
}

// Target is a <<target>>.
type Target struct {
	Target string
}

// Snippet is an @@backend:value@@ export snippet.
type Snippet struct {
	Name  string
	Value string
}

// Span objects carry only the offset of the closing marker, counted from the
// opening marker. The caller derives the contents from its own copy of the
// text: they are text[1:End] relative to the opening marker.
type (
	Bold      struct{ End int }
	Italic    struct{ End int }
	Strike    struct{ End int }
	Underline struct{ End int }
)

// Verbatim and Code hold the text between their delimiters. Text is a plain
// run.
type (
	Verbatim string
	Code     string
	Text     string
)

func (Cookie) isObject()      {}
func (FnRef) isObject()       {}
func (InlineCall) isObject()  {}
func (InlineSrc) isObject()   {}
func (Link) isObject()        {}
func (Macro) isObject()       {}
func (RadioTarget) isObject() {}
func (Target) isObject()      {}
func (Snippet) isObject()     {}
func (Bold) isObject()        {}
func (Italic) isObject()      {}
func (Strike) isObject()      {}
func (Underline) isObject()   {}
func (Verbatim) isObject()    {}
func (Code) isObject()        {}
func (Text) isObject()        {}

func (o Cookie) Detach() Object { return Cookie{Value: strings.Clone(o.Value)} }

func (o FnRef) Detach() Object {
	return FnRef{Label: strings.Clone(o.Label), Definition: cloneOpt(o.Definition)}
}

func (o InlineCall) Detach() Object {
	return InlineCall{
		Name:         strings.Clone(o.Name),
		InsideHeader: cloneOpt(o.InsideHeader),
		Arguments:    strings.Clone(o.Arguments),
		EndHeader:    cloneOpt(o.EndHeader),
	}
}

func (o InlineSrc) Detach() Object {
	return InlineSrc{Lang: strings.Clone(o.Lang), Options: cloneOpt(o.Options), Body: strings.Clone(o.Body)}
}

func (o Link) Detach() Object {
	return Link{Path: strings.Clone(o.Path), Desc: cloneOpt(o.Desc)}
}

func (o Macro) Detach() Object {
	return Macro{Name: strings.Clone(o.Name), Arguments: cloneOpt(o.Arguments)}
}

func (o RadioTarget) Detach() Object { return RadioTarget{Target: strings.Clone(o.Target)} }
func (o Target) Detach() Object      { return Target{Target: strings.Clone(o.Target)} }

func (o Snippet) Detach() Object {
	return Snippet{Name: strings.Clone(o.Name), Value: strings.Clone(o.Value)}
}

func (o Bold) Detach() Object      { return o }
func (o Italic) Detach() Object    { return o }
func (o Strike) Detach() Object    { return o }
func (o Underline) Detach() Object { return o }
func (o Verbatim) Detach() Object  { return Verbatim(strings.Clone(string(o))) }
func (o Code) Detach() Object      { return Code(strings.Clone(string(o))) }
func (o Text) Detach() Object      { return Text(strings.Clone(string(o))) }

func cloneOpt(s *string) *string {
	if s == nil {
		return nil
	}
	c := strings.Clone(*s)
	return &c
}

// SpanEnd returns the closing-marker offset of a Bold, Italic, Strike or
// Underline object.
func SpanEnd(o Object) (int, bool) {
	switch o := o.(type) {
	case Bold:
		return o.End, true
	case Italic:
		return o.End, true
	case Strike:
		return o.End, true
	case Underline:
		return o.End, true
	}
	return 0, false
}
