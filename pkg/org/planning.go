package org

import "strings"

// Planning is the SCHEDULED/DEADLINE/CLOSED line under a headline.
type Planning struct {
	Deadline  *Timestamp
	Scheduled *Timestamp
	Closed    *Timestamp
}

// Detach returns a copy that shares no memory with the parsed input.
func (p *Planning) Detach() *Planning {
	if p == nil {
		return nil
	}
	return &Planning{
		Deadline:  p.Deadline.detach(),
		Scheduled: p.Scheduled.detach(),
		Closed:    p.Closed.detach(),
	}
}

func (t *Timestamp) detach() *Timestamp {
	if t == nil {
		return nil
	}
	c := *t
	c.Start.DayName = strings.Clone(t.Start.DayName)
	c.Repeater = strings.Clone(t.Repeater)
	c.Delay = strings.Clone(t.Delay)
	c.Sexp = strings.Clone(t.Sexp)
	if t.End != nil {
		e := *t.End
		e.DayName = strings.Clone(t.End.DayName)
		c.End = &e
	}
	return &c
}

// parsePlanning parses a planning line at the start of s. Every keyword on the
// line must be followed by a timestamp, and at least one must be present.
func parsePlanning(s string) (rest string, p Planning, ok bool) {
	rest, ln, ok := line(s)
	if !ok {
		return s, Planning{}, false
	}
	ln = strings.TrimSpace(ln)
	for ln != "" {
		keyword, tail, found := strings.Cut(ln, " ")
		if !found {
			return s, Planning{}, false
		}
		ts, n, ok := parseTimestamp(strings.TrimLeft(tail, " \t"))
		if !ok {
			return s, Planning{}, false
		}
		switch keyword {
		case "DEADLINE:":
			p.Deadline = &ts
		case "SCHEDULED:":
			p.Scheduled = &ts
		case "CLOSED:":
			p.Closed = &ts
		default:
			return s, Planning{}, false
		}
		ln = strings.TrimLeft(strings.TrimLeft(tail, " \t")[n:], " \t")
	}
	if p.Deadline == nil && p.Scheduled == nil && p.Closed == nil {
		return s, Planning{}, false
	}
	return rest, p, true
}
