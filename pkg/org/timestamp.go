package org

import (
	"fmt"
	"strings"
)

// TimestampKind distinguishes the timestamp syntaxes.
type TimestampKind uint8

// TimestampKind values.
const (
	TimestampActive TimestampKind = iota
	TimestampInactive
	TimestampActiveRange
	TimestampInactiveRange
	TimestampDiary
)

func (k TimestampKind) String() string {
	switch k {
	case TimestampActive:
		return "active"
	case TimestampInactive:
		return "inactive"
	case TimestampActiveRange:
		return "active-range"
	case TimestampInactiveRange:
		return "inactive-range"
	case TimestampDiary:
		return "diary"
	}
	return "unknown"
}

// Datetime is the date (and optional time of day) inside a timestamp.
type Datetime struct {
	Year    int    `json:"year" yaml:"year"`
	Month   int    `json:"month" yaml:"month"`
	Day     int    `json:"day" yaml:"day"`
	DayName string `json:"dayname,omitempty" yaml:"dayname,omitempty"`
	HasTime bool   `json:"-" yaml:"-"`
	Hour    int    `json:"hour,omitempty" yaml:"hour,omitempty"`
	Minute  int    `json:"minute,omitempty" yaml:"minute,omitempty"`
}

// Date formats the date part as YYYY-MM-DD.
func (d Datetime) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Timestamp is an Org timestamp such as <2003-09-16 Tue 09:39 +1w>.
type Timestamp struct {
	Kind  TimestampKind
	Start Datetime
	// End is set for ranges, including same-day "09:00-10:00" ranges.
	End      *Datetime
	Repeater string
	Delay    string
	// Sexp holds the expression of a diary timestamp.
	Sexp string
}

// IsActive reports whether the timestamp shows up in the agenda.
func (t *Timestamp) IsActive() bool {
	return t.Kind == TimestampActive || t.Kind == TimestampActiveRange || t.Kind == TimestampDiary
}

// String renders the timestamp back in Org syntax.
func (t *Timestamp) String() string {
	if t.Kind == TimestampDiary {
		return "<%%(" + t.Sexp + ")>"
	}
	open, closing := "<", ">"
	if t.Kind == TimestampInactive || t.Kind == TimestampInactiveRange {
		open, closing = "[", "]"
	}
	var b strings.Builder
	b.WriteString(open)
	writeDatetime(&b, t.Start)
	sameDay := t.End != nil && t.End.Year == t.Start.Year && t.End.Month == t.Start.Month &&
		t.End.Day == t.Start.Day && t.End.HasTime && t.Start.HasTime
	if sameDay {
		fmt.Fprintf(&b, "-%02d:%02d", t.End.Hour, t.End.Minute)
	}
	if t.Repeater != "" {
		b.WriteString(" " + t.Repeater)
	}
	if t.Delay != "" {
		b.WriteString(" " + t.Delay)
	}
	b.WriteString(closing)
	if t.End != nil && !sameDay {
		b.WriteString("--" + open)
		writeDatetime(&b, *t.End)
		b.WriteString(closing)
	}
	return b.String()
}

func writeDatetime(b *strings.Builder, d Datetime) {
	b.WriteString(d.Date())
	if d.DayName != "" {
		b.WriteString(" " + d.DayName)
	}
	if d.HasTime {
		fmt.Fprintf(b, " %02d:%02d", d.Hour, d.Minute)
	}
}

// parseTimestamp parses an active or inactive timestamp (or range) at the
// start of s and returns the number of bytes consumed.
func parseTimestamp(s string) (Timestamp, int, bool) {
	if strings.HasPrefix(s, "<%%(") {
		end := strings.Index(s, ")>")
		if end < 0 || strings.IndexByte(s[:end], '\n') >= 0 {
			return Timestamp{}, 0, false
		}
		return Timestamp{Kind: TimestampDiary, Sexp: s[4:end]}, end + 2, true
	}
	if s == "" || (s[0] != '<' && s[0] != '[') {
		return Timestamp{}, 0, false
	}
	active := s[0] == '<'
	ts, n, ok := parseTimestampBody(s)
	if !ok {
		return Timestamp{}, 0, false
	}
	if active {
		ts.Kind = TimestampActive
	} else {
		ts.Kind = TimestampInactive
	}

	// <a>--<b> range with matching delimiters.
	if strings.HasPrefix(s[n:], "--") && len(s) > n+2 && s[n+2] == s[0] {
		end, m, ok := parseTimestampBody(s[n+2:])
		if ok {
			ts.End = &end.Start
			n += 2 + m
		}
	}
	if ts.End != nil {
		if active {
			ts.Kind = TimestampActiveRange
		} else {
			ts.Kind = TimestampInactiveRange
		}
	}
	return ts, n, true
}

// parseTimestampBody parses one delimited timestamp. Kind is left for the
// caller; End is set for same-day time ranges.
func parseTimestampBody(s string) (Timestamp, int, bool) {
	closing := byte('>')
	if s[0] == '[' {
		closing = ']'
	}
	end := strings.IndexByte(s, closing)
	if end < 0 {
		return Timestamp{}, 0, false
	}
	inner := s[1:end]
	if strings.IndexByte(inner, '\n') >= 0 {
		return Timestamp{}, 0, false
	}

	var ts Timestamp
	date, rest, ok := parseDate(inner)
	if !ok {
		return Timestamp{}, 0, false
	}
	ts.Start = date

	for _, field := range strings.Fields(rest) {
		switch {
		case isTimeRange(field):
			startTime, endTime, _ := strings.Cut(field, "-")
			ts.Start.Hour, ts.Start.Minute, _ = parseClock(startTime)
			ts.Start.HasTime = true
			if endTime != "" {
				e := ts.Start
				e.Hour, e.Minute, _ = parseClock(endTime)
				ts.End = &e
			}
		case isRepeater(field):
			ts.Repeater = field
		case isDelay(field):
			ts.Delay = field
		case ts.Start.DayName == "" && !ts.Start.HasTime && isDayName(field):
			ts.Start.DayName = field
		default:
			return Timestamp{}, 0, false
		}
	}
	return ts, end + 1, true
}

func parseDate(s string) (Datetime, string, bool) {
	if len(s) < 10 || s[4] != '-' || s[7] != '-' {
		return Datetime{}, s, false
	}
	y, ok1 := atoi(s[0:4])
	m, ok2 := atoi(s[5:7])
	d, ok3 := atoi(s[8:10])
	if !ok1 || !ok2 || !ok3 || m < 1 || m > 12 || d < 1 || d > 31 {
		return Datetime{}, s, false
	}
	if len(s) > 10 && s[10] != ' ' && s[10] != '\t' {
		return Datetime{}, s, false
	}
	return Datetime{Year: y, Month: m, Day: d}, s[10:], true
}

func parseClock(s string) (hour, minute int, ok bool) {
	h, m, found := strings.Cut(s, ":")
	if !found || len(h) < 1 || len(h) > 2 || len(m) != 2 {
		return 0, 0, false
	}
	hour, ok1 := atoi(h)
	minute, ok2 := atoi(m)
	if !ok1 || !ok2 || hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func isTimeRange(s string) bool {
	start, end, found := strings.Cut(s, "-")
	if _, _, ok := parseClock(start); !ok {
		return false
	}
	if !found {
		return true
	}
	_, _, ok := parseClock(end)
	return ok
}

func isDayName(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isASCIIDigit(c) || c == '+' || c == '-' || c == ']' || c == '>' {
			return false
		}
	}
	return s != ""
}

func isRepeater(s string) bool {
	for _, p := range []string{".+", "++", "+"} {
		if rest, ok := strings.CutPrefix(s, p); ok {
			return isInterval(rest)
		}
	}
	return false
}

func isDelay(s string) bool {
	for _, p := range []string{"--", "-"} {
		if rest, ok := strings.CutPrefix(s, p); ok {
			return isInterval(rest)
		}
	}
	return false
}

// isInterval matches a positive count followed by one of h, d, w, m, y.
func isInterval(s string) bool {
	if len(s) < 2 || strings.IndexByte("hdwmy", s[len(s)-1]) < 0 {
		return false
	}
	_, ok := atoi(s[:len(s)-1])
	return ok
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if !isASCIIDigit(s[i]) {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}
