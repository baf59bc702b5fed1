package permissions

import (
	"strconv"
	"strings"

	"rim/internal/document"
)

// Confidentials is the redaction descriptor for one caller and entity.
//
// Patterns combine as a union: a path is hidden as soon as any pattern
// matches it or one of its ancestors. No pattern can reveal what another
// one hides, so pattern order does not matter.
type Confidentials struct {
	Viewable bool     `json:"viewable"`
	Paths    []string `json:"paths"`

	matchers []matcher
}

// Full grants complete visibility.
func Full() Confidentials {
	return Confidentials{Viewable: true, Paths: []string{}}
}

// WithPaths builds a descriptor from explicit patterns.
func WithPaths(patterns ...string) Confidentials {
	c := Confidentials{Paths: patterns}
	for _, p := range patterns {
		c.matchers = append(c.matchers, compile(p))
	}
	return c
}

// Hides reports whether the concrete path (indices included) is redacted.
func (c Confidentials) Hides(path []string) bool {
	if c.Viewable {
		return false
	}
	for _, m := range c.matchers {
		if m.covers(path) {
			return true
		}
	}
	return false
}

func (c Confidentials) HidesPath(dotted string) bool {
	return c.Hides(strings.Split(dotted, "."))
}

// HidesBelow reports whether some pattern targets a strict descendant of
// path, which means a value stored at path may carry hidden content.
func (c Confidentials) HidesBelow(path []string) bool {
	if c.Viewable {
		return false
	}
	for _, m := range c.matchers {
		if len(m.segments) > len(path) && m.matchPrefix(path) {
			return true
		}
	}
	return false
}

// Restore puts the stored values of every hidden path back into updated, so
// a caller cannot write what it cannot see. Hidden values the caller sent are
// dropped, and hidden content under array items is restored index by index.
// updated must hold plain maps and slices; it is modified in place.
func (c Confidentials) Restore(stored, updated map[string]any) {
	if c.Viewable {
		return
	}
	c.restoreMap(stored, updated, nil)
}

func (c Confidentials) restoreMap(stored, updated map[string]any, path []string) {
	keys := make(map[string]bool, len(updated)+len(stored))
	for k := range updated {
		keys[k] = true
	}
	for k := range stored {
		keys[k] = true
	}

	for k := range keys {
		p := append(append(make([]string, 0, len(path)+1), path...), k)
		if c.Hides(p) {
			if v, ok := stored[k]; ok {
				updated[k] = document.Plain(v)
			} else {
				delete(updated, k)
			}
			continue
		}
		if v, ok := updated[k]; ok && c.HidesBelow(p) {
			updated[k] = c.restoreValue(stored[k], v, p)
		}
	}
}

func (c Confidentials) restoreValue(stored, updated any, path []string) any {
	switch u := updated.(type) {
	case map[string]any:
		sm, _ := document.AsMap(stored)
		c.restoreMap(sm, u, path)
	case []any:
		ss, _ := document.AsSlice(stored)
		for i := range u {
			var sv any
			if i < len(ss) {
				sv = ss[i]
			}
			p := append(append(make([]string, 0, len(path)+1), path...), strconv.Itoa(i))
			switch {
			case c.Hides(p):
				u[i] = document.Plain(sv)
			case c.HidesBelow(p):
				u[i] = c.restoreValue(sv, u[i], p)
			}
		}
	}
	return updated
}

type matcher struct {
	pattern  string
	segments []string
}

func compile(pattern string) matcher {
	return matcher{pattern: pattern, segments: strings.Split(pattern, ".")}
}

// covers is true when the pattern matches path or one of its ancestors.
func (m matcher) covers(path []string) bool {
	if len(m.segments) > len(path) {
		return false
	}
	return m.matchPrefix(path[:len(m.segments)])
}

// matchPrefix compares the leading segments of the pattern with path.
func (m matcher) matchPrefix(path []string) bool {
	if len(path) > len(m.segments) {
		return false
	}
	for i, seg := range path {
		if !segmentMatches(m.segments[i], seg) {
			return false
		}
	}
	return true
}

func segmentMatches(pattern, seg string) bool {
	if pattern == "*" {
		return true
	}
	return pattern == seg
}

// Values collects every value reached by a path whose "*" segments fan out
// over array items.
func Values(doc any, segments []string) []any {
	if len(segments) == 0 {
		if doc == nil {
			return nil
		}
		if items, ok := document.AsSlice(doc); ok {
			return items
		}
		return []any{doc}
	}

	seg := segments[0]
	if items, ok := document.AsSlice(doc); ok {
		if seg == "*" {
			var out []any
			for _, item := range items {
				out = append(out, Values(item, segments[1:])...)
			}
			return out
		}
		if i, err := strconv.Atoi(seg); err == nil && i >= 0 && i < len(items) {
			return Values(items[i], segments[1:])
		}
		return nil
	}

	m, ok := document.AsMap(doc)
	if !ok {
		return nil
	}
	return Values(m[seg], segments[1:])
}
