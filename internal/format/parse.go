package format

import (
	"sort"
	"strconv"
	"strings"

	"rim/internal/document"
	"rim/internal/schema"
)

// Parse turns a client payload back into the persisted shape: dotted keys
// become nested documents, reference ids become ObjectIDs and "id" becomes
// "_id". Unknown fields are logged and dropped.
func (f *Formatter) Parse(entity string, payload map[string]any) (map[string]any, error) {
	e, err := f.schemas.Entity(entity)
	if err != nil {
		return nil, err
	}

	expanded := expandDotted(payload)

	out := f.parseFields(entity, e.Fields, expanded, nil)

	id, ok := expanded["_id"]
	if !ok {
		id, ok = expanded["id"]
	}
	if ok {
		if oid, ok := document.ObjectID(id); ok {
			out["_id"] = oid
		}
	}
	return out, nil
}

// Patch applies a client payload to a copy of doc. A top-level key replaces
// the stored field, a dotted key replaces only the sub-field it addresses and
// a null value removes what it addresses. doc itself is left untouched.
func (f *Formatter) Patch(entity string, doc map[string]any, payload map[string]any) (map[string]any, error) {
	e, err := f.schemas.Entity(entity)
	if err != nil {
		return nil, err
	}

	out := document.PlainMap(doc)

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := strings.Count(keys[i], "."), strings.Count(keys[j], ".")
		if di != dj {
			return di < dj
		}
		return keys[i] < keys[j]
	})

	for _, key := range keys {
		segments := strings.Split(key, ".")
		field := e.Lookup(segments)
		if field == nil {
			if !document.IsTechnicalKey(key) && key != "__v" && key != "id" {
				f.extraneous(entity, segments)
			}
			continue
		}

		value := payload[key]
		if value == nil {
			removePath(out, segments)
			continue
		}

		if isIndex(segments[len(segments)-1]) {
			value = f.parseOne(entity, field, value, segments)
		} else {
			value = f.parseValue(entity, field, value, segments)
		}
		setPath(out, segments, value)
	}
	return out, nil
}

func (f *Formatter) parseFields(entity string, fields []*schema.Field, doc map[string]any, path []string) map[string]any {
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		field := fieldByName(fields, key)
		if field == nil {
			if !document.IsTechnicalKey(key) && key != "__v" && !(path == nil && key == "id") {
				f.extraneous(entity, append(clone(path), key))
			}
			continue
		}
		out[key] = f.parseValue(entity, field, value, append(clone(path), key))
	}
	return out
}

func (f *Formatter) parseValue(entity string, field *schema.Field, value any, path []string) any {
	if !field.Multiple {
		return f.parseOne(entity, field, value, path)
	}
	items, ok := document.AsSlice(value)
	if !ok {
		return value
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = f.parseOne(entity, field, item, append(clone(path), strconv.Itoa(i)))
	}
	return out
}

func (f *Formatter) parseOne(entity string, field *schema.Field, value any, path []string) any {
	switch field.Kind {
	case schema.Document:
		if sub, ok := document.AsMap(value); ok {
			return f.parseFields(entity, field.Children, expandDotted(sub), path)
		}
	case schema.Reference:
		if value == nil || value == "" {
			return nil
		}
		if oid, ok := document.ObjectID(value); ok {
			return oid
		}
	}
	return value
}

func fieldByName(fields []*schema.Field, name string) *schema.Field {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// expandDotted nests "a.b.c" keys. Numeric segments address existing array
// items.
func expandDotted(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	var dotted []string
	for k, v := range doc {
		if strings.Contains(k, ".") {
			dotted = append(dotted, k)
			continue
		}
		out[k] = v
	}

	for _, k := range dotted {
		setPath(out, strings.Split(k, "."), doc[k])
	}
	return out
}

func setPath(doc map[string]any, segments []string, value any) {
	key := segments[0]
	if len(segments) == 1 {
		doc[key] = value
		return
	}

	next := segments[1]
	if items, ok := document.AsSlice(doc[key]); ok {
		i, err := strconv.Atoi(next)
		if err != nil || i < 0 || i >= len(items) {
			return
		}
		if len(segments) == 2 {
			items[i] = value
			return
		}
		child, ok := document.AsMap(items[i])
		if !ok {
			child = map[string]any{}
			items[i] = child
		}
		setPath(child, segments[2:], value)
		return
	}

	child, ok := document.AsMap(doc[key])
	if !ok {
		child = map[string]any{}
		doc[key] = child
	}
	setPath(child, segments[1:], value)
}

// removePath deletes the key or array item addressed by segments.
func removePath(doc map[string]any, segments []string) {
	last := segments[len(segments)-1]
	parent := segments[:len(segments)-1]

	var container any = doc
	for _, seg := range parent {
		switch c := container.(type) {
		case map[string]any:
			container = c[seg]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(c) {
				return
			}
			container = c[i]
		default:
			return
		}
	}

	switch c := container.(type) {
	case map[string]any:
		delete(c, last)
	case []any:
		i, err := strconv.Atoi(last)
		if err != nil || i < 0 || i >= len(c) {
			return
		}
		items := append(append([]any{}, c[:i]...), c[i+1:]...)
		setPath(doc, parent, items)
	}
}

func isIndex(seg string) bool {
	i, err := strconv.Atoi(seg)
	return err == nil && i >= 0
}
