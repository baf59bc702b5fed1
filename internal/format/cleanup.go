package format

import (
	"encoding/hex"
	"time"

	"rim/internal/document"
	"rim/internal/schema"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cleanup returns the comparison view of doc used by the diff engine:
// technical and unknown keys are removed, references collapse to their id,
// ids and timestamps become strings and numbers become float64, so that a
// read-then-write cycle never shows up as a change.
func (f *Formatter) Cleanup(entity string, doc map[string]any) (map[string]any, error) {
	e, err := f.schemas.Entity(entity)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return map[string]any{}, nil
	}
	return cleanFields(e.Fields, doc), nil
}

func cleanFields(fields []*schema.Field, doc map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		value, ok := doc[field.Name]
		if !ok || value == nil {
			continue
		}
		out[field.Name] = cleanValue(field, value)
	}
	return out
}

func cleanValue(field *schema.Field, value any) any {
	if !field.Multiple {
		return cleanOne(field, value)
	}
	items, ok := document.AsSlice(value)
	if !ok {
		return cleanOne(field, value)
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = cleanOne(field, item)
	}
	return out
}

func cleanOne(field *schema.Field, value any) any {
	switch field.Kind {
	case schema.Document:
		if sub, ok := document.AsMap(value); ok {
			return cleanFields(field.Children, sub)
		}
	case schema.Reference:
		if id, ok := document.RefID(value); ok {
			return id
		}
	case schema.Number:
		if n, ok := number(value); ok {
			return n
		}
	}
	return cleanAny(value)
}

// cleanAny normalizes values that escape the schema walk.
func cleanAny(value any) any {
	if m, ok := document.AsMap(value); ok {
		out := make(map[string]any, len(m))
		for k, v := range m {
			if document.IsTechnicalKey(k) || k == "__v" {
				continue
			}
			out[k] = cleanAny(v)
		}
		return out
	}
	if items, ok := document.AsSlice(value); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = cleanAny(item)
		}
		return out
	}
	return scalar(value)
}

// scalar renders ids, binaries and timestamps as strings.
func scalar(value any) any {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.Binary:
		if id, ok := document.RefID(v); ok {
			return id
		}
		return hex.EncodeToString(v.Data)
	case primitive.DateTime:
		return v.Time().UTC().Format(time.RFC3339)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	}
	return value
}

func number(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
