// Package document holds helpers shared by every component that walks
// persisted entity documents. Documents reach the engine in several shapes
// (bson.M, bson.D, plain maps decoded from JSON) and these helpers hide that.
package document

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// AsMap returns v as a map when it is any kind of document.
func AsMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case bson.M:
		return m, true
	case bson.D:
		out := make(map[string]any, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	case *bson.M:
		if m == nil {
			return nil, false
		}
		return *m, true
	}
	return nil, false
}

// AsSlice returns v as a slice when it is any kind of array.
func AsSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case bson.A:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	case []bson.M:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	}
	return nil, false
}

// Get follows a dotted path through nested documents.
func Get(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, key := range strings.Split(path, ".") {
		m, ok := AsMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// IsEmpty reports whether a value counts as absent: nil, "" or an empty array.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	if s, ok := AsSlice(v); ok {
		return len(s) == 0
	}
	return false
}

// IsTechnicalKey reports keys that never belong to entity content.
func IsTechnicalKey(key string) bool {
	return strings.HasPrefix(key, "_") || key == "opts"
}

// Plain returns a deep copy of v where every document is a map[string]any
// and every array a []any. Scalars are shared.
func Plain(v any) any {
	if m, ok := AsMap(v); ok {
		out := make(map[string]any, len(m))
		for k, x := range m {
			out[k] = Plain(x)
		}
		return out
	}
	if s, ok := AsSlice(v); ok {
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = Plain(x)
		}
		return out
	}
	return v
}

// PlainMap is Plain for a whole document. A nil document gives an empty map.
func PlainMap(doc map[string]any) map[string]any {
	if doc == nil {
		return map[string]any{}
	}
	return Plain(doc).(map[string]any)
}
