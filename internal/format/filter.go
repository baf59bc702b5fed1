package format

import (
	"strconv"

	"rim/internal/document"
	"rim/internal/permissions"
	"rim/internal/schema"
)

// FilterConfidentialFields returns a deep copy of instance with the hidden
// paths removed. Nothing else is transformed.
func (f *Formatter) FilterConfidentialFields(entity string, instance map[string]any, conf permissions.Confidentials) (map[string]any, error) {
	if _, err := f.schemas.Entity(entity); err != nil {
		return nil, err
	}

	out, _ := FilterAt(conf, nil, instance).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// FilterAt copies a value stored at path, dropping every hidden descendant.
// It returns nil when path itself is hidden.
func FilterAt(conf permissions.Confidentials, path []string, value any) any {
	if len(path) > 0 && conf.Hides(path) {
		return nil
	}

	if m, ok := document.AsMap(value); ok {
		out := make(map[string]any, len(m))
		for k, v := range m {
			p := append(clone(path), k)
			if conf.Hides(p) {
				continue
			}
			out[k] = FilterAt(conf, p, v)
		}
		return out
	}

	if items, ok := document.AsSlice(value); ok {
		out := make([]any, 0, len(items))
		for i, item := range items {
			p := append(clone(path), strconv.Itoa(i))
			if conf.Hides(p) {
				continue
			}
			out = append(out, FilterAt(conf, p, item))
		}
		return out
	}

	return value
}

// Entity exposes the compiled descriptor tree, mostly for callers that only
// hold a Formatter.
func (f *Formatter) Entity(name string) (*schema.Entity, error) {
	return f.schemas.Entity(name)
}
