package org

import (
	"iter"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Property is one NAME/VALUE pair from a property drawer.
type Property struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// PropertiesMap is the ordered content of a property drawer.
//
// It is a sequence, not a map: duplicate names are kept in the order they were
// written and nothing is ever removed.
type PropertiesMap struct {
	Pairs []Property
}

// Len returns the number of pairs, duplicates included.
func (m PropertiesMap) Len() int { return len(m.Pairs) }

// IsEmpty reports whether the drawer held no properties.
func (m PropertiesMap) IsEmpty() bool { return len(m.Pairs) == 0 }

// All iterates over the pairs in insertion order.
func (m PropertiesMap) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, p := range m.Pairs {
			if !yield(p.Name, p.Value) {
				return
			}
		}
	}
}

// Get returns the value of the first pair named name.
func (m PropertiesMap) Get(name string) (string, bool) {
	for _, p := range m.Pairs {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// ToMap collapses duplicate names; the last value written wins.
func (m PropertiesMap) ToMap() map[string]string {
	out := make(map[string]string, len(m.Pairs))
	for _, p := range m.Pairs {
		out[p.Name] = p.Value
	}
	return out
}

// ToOrderedMap collapses duplicate names while keeping the position of each
// name's first occurrence. The value is the last one written.
func (m PropertiesMap) ToOrderedMap() *orderedmap.OrderedMap[string, string] {
	om := orderedmap.New[string, string](len(m.Pairs))
	for _, p := range m.Pairs {
		om.Set(p.Name, p.Value)
	}
	return om
}

// Detach returns a copy that shares no memory with the parsed input.
func (m PropertiesMap) Detach() PropertiesMap {
	if m.Pairs == nil {
		return PropertiesMap{}
	}
	pairs := make([]Property, len(m.Pairs))
	for i, p := range m.Pairs {
		pairs[i] = Property{Name: strings.Clone(p.Name), Value: strings.Clone(p.Value)}
	}
	return PropertiesMap{Pairs: pairs}
}

func (m *PropertiesMap) push(name, value string) {
	m.Pairs = append(m.Pairs, Property{Name: name, Value: value})
}

// parsePropertiesDrawer parses a :PROPERTIES: drawer at the start of s,
// ignoring leading whitespace.
func parsePropertiesDrawer(s string) (rest string, props PropertiesMap, ok bool) {
	rest, drawer, body, ok := parseDrawer(strings.TrimLeft(s, " \t\r\n"))
	if !ok || drawer.Name != "PROPERTIES" {
		return s, PropertiesMap{}, false
	}
	for {
		next, name, value, ok := parseNodeProperty(body)
		if !ok {
			break
		}
		props.push(name, value)
		body = next
	}
	return rest, props, true
}

// parseNodeProperty parses one ":NAME: VALUE" line.
func parseNodeProperty(s string) (rest, name, value string, ok bool) {
	s, _ = blankLines(s)
	s = strings.TrimLeft(s, " \t\r\n")
	if !strings.HasPrefix(s, ":") {
		return s, "", "", false
	}
	end := strings.IndexByte(s[1:], ':')
	if end < 0 {
		return s, "", "", false
	}
	name = strings.TrimSuffix(s[1:1+end], "+")
	rest, value, _ = line(s[end+2:])
	return rest, name, strings.TrimSpace(value), true
}
