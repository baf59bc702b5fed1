// Package format converts entity documents between their persisted shape,
// the redacted shape served to clients and the normalized shape compared by
// the edit-log diff.
package format

import (
	"strconv"
	"strings"

	"rim/internal/document"
	"rim/internal/permissions"
	"rim/internal/schema"

	"github.com/rs/zerolog"
)

type Formatter struct {
	schemas *schema.Registry
	log     zerolog.Logger
}

func New(schemas *schema.Registry, log zerolog.Logger) *Formatter {
	return &Formatter{
		schemas: schemas,
		log:     log.With().Str("component", "format").Logger(),
	}
}

// Format walks instance in schema order. Hidden paths are omitted, references
// are flattened to their id, technical keys are stripped and the root id is
// kept as an "id" string. Fields unknown to the schema are logged and dropped.
func (f *Formatter) Format(entity string, instance map[string]any, conf permissions.Confidentials) (map[string]any, error) {
	e, err := f.schemas.Entity(entity)
	if err != nil {
		return nil, err
	}

	w := &formatWalk{f: f, entity: entity, conf: conf}
	out := w.fields(e.Fields, instance, nil, true)

	if id, ok := rootID(instance); ok {
		out["id"] = id
	}
	return out, nil
}

func rootID(doc map[string]any) (string, bool) {
	if id, ok := document.RefID(doc["_id"]); ok {
		return id, true
	}
	return document.RefID(doc["id"])
}

type formatWalk struct {
	f      *Formatter
	entity string
	conf   permissions.Confidentials
}

func (w *formatWalk) fields(fields []*schema.Field, doc map[string]any, path []string, root bool) map[string]any {
	out := make(map[string]any, len(fields))

	known := make(map[string]bool, len(fields))
	for _, field := range fields {
		known[field.Name] = true
	}
	for key := range doc {
		if known[key] || document.IsTechnicalKey(key) || key == "__v" || (root && key == "id") {
			continue
		}
		w.f.extraneous(w.entity, append(clone(path), key))
	}

	for _, field := range fields {
		value, ok := doc[field.Name]
		if !ok {
			continue
		}
		p := append(clone(path), field.Name)
		if w.conf.Hides(p) {
			continue
		}
		out[field.Name] = w.value(field, value, p)
	}
	return out
}

func (w *formatWalk) value(field *schema.Field, value any, path []string) any {
	if !field.Multiple {
		return w.one(field, value, path)
	}

	items, ok := document.AsSlice(value)
	if !ok {
		return w.one(field, value, path)
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		p := append(clone(path), strconv.Itoa(i))
		if w.conf.Hides(p) {
			continue
		}
		out = append(out, w.one(field, item, p))
	}
	return out
}

func (w *formatWalk) one(field *schema.Field, value any, path []string) any {
	if value == nil {
		return nil
	}

	switch field.Kind {
	case schema.Document:
		sub, ok := document.AsMap(value)
		if !ok {
			return value
		}
		return w.fields(field.Children, sub, path, false)
	case schema.Reference:
		if id, ok := document.RefID(value); ok {
			return id
		}
	}
	return scalar(value)
}

func (f *Formatter) extraneous(entity string, path []string) {
	f.log.Warn().
		Str("entity", entity).
		Str("path", strings.Join(path, ".")).
		Msg("extraneous field dropped")
}

func clone(path []string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return out
}
