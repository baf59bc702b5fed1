package schema

import (
	"fmt"
	"strconv"

	"rim/internal/document"
	"rim/internal/enums"
	"rim/internal/errmsg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StorageSchema validates and prepares documents before they are persisted.
type StorageSchema struct {
	Entity *Entity

	enums *enums.Registry
}

// Validate checks doc against the schema and returns a *errmsg.ValidationError
// listing every rejected field. Dates are canonicalized in place.
func (s *StorageSchema) Validate(doc map[string]any) error {
	v := &validator{enums: s.enums, errs: &errmsg.ValidationError{}}
	v.fields(s.Entity.Fields, doc, "", []map[string]any{doc})
	return v.errs.Err()
}

type validator struct {
	enums *enums.Registry
	errs  *errmsg.ValidationError
}

func (v *validator) fail(path string, value any, msg string) {
	v.errs.Add(errmsg.FieldError{Field: path, Value: value, Message: msg})
}

func (v *validator) fields(fields []*Field, doc map[string]any, prefix string, stack []map[string]any) {
	for _, f := range fields {
		path := prefix + f.Name
		value, present := doc[f.Name]

		if !present || value == nil {
			if f.Required {
				v.fail(path, nil, "is required")
			}
			continue
		}

		if !f.Multiple {
			if out, ok := v.value(f, value, path, stack); ok {
				doc[f.Name] = out
			}
			continue
		}

		items, ok := document.AsSlice(value)
		if !ok {
			v.fail(path, value, "expected an array")
			continue
		}
		if f.Required && len(items) == 0 {
			v.fail(path, value, "is required")
			continue
		}
		for i, item := range items {
			if out, ok := v.value(f, item, path+"."+strconv.Itoa(i), stack); ok {
				items[i] = out
			}
		}
	}
}

// value validates one occurrence of f. It returns the canonical value and
// whether it should replace the stored one.
func (v *validator) value(f *Field, value any, path string, stack []map[string]any) (any, bool) {
	if f.IsDocument() {
		sub, ok := document.AsMap(value)
		if !ok {
			v.fail(path, value, "expected an object")
			return nil, false
		}
		v.fields(f.Children, sub, path+".", push(stack, sub))
		return nil, false
	}

	if document.IsEmpty(value) {
		if f.Required {
			v.fail(path, value, "is required")
		}
		return nil, false
	}

	switch f.Kind {
	case String:
		s, ok := value.(string)
		if !ok {
			v.fail(path, value, "expected a string")
			return nil, false
		}
		if f.Regex != nil && !f.Regex.MatchString(s) {
			v.fail(path, value, fmt.Sprintf("does not match %s", f.Regex.String()))
		}
	case Enum:
		s, ok := value.(string)
		if !ok {
			v.fail(path, value, "expected a string")
			return nil, false
		}
		if !v.enums.Check(f.Enum, f.EnumPath, s, stack) {
			v.errs.Add(errmsg.FieldError{
				Field:   path,
				Value:   s,
				Enum:    f.Enum,
				Message: "invalid enum value",
			})
		}
	case Number:
		n, ok := toFloat(value)
		if !ok {
			v.fail(path, value, "expected a number")
			return nil, false
		}
		if f.Min != nil && n < *f.Min {
			v.fail(path, value, fmt.Sprintf("must be at least %v", *f.Min))
		}
		if f.Max != nil && n > *f.Max {
			v.fail(path, value, fmt.Sprintf("must be at most %v", *f.Max))
		}
	case Boolean:
		if _, ok := value.(bool); !ok {
			v.fail(path, value, "expected a boolean")
		}
	case Date:
		s, ok := value.(string)
		if !ok {
			v.fail(path, value, "expected a partial date string")
			return nil, false
		}
		canonical := CanonicalDate(s)
		if !ValidDate(canonical) {
			v.fail(path, value, "expected YYYY, YYYY-MM or YYYY-MM-DD")
			return nil, false
		}
		return canonical, canonical != s
	case Reference:
		if _, ok := document.ObjectID(value); !ok {
			v.fail(path, value, fmt.Sprintf("expected a %s reference", f.Ref))
		}
	}
	return nil, false
}

func push(stack []map[string]any, doc map[string]any) []map[string]any {
	out := make([]map[string]any, len(stack), len(stack)+1)
	copy(out, stack)
	return append(out, doc)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
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

// ApplyDefaults fills absent fields that declare a default, recursing into
// the sub-documents present in doc.
func (s *StorageSchema) ApplyDefaults(doc map[string]any) {
	applyDefaults(s.Entity.Fields, doc)
}

func applyDefaults(fields []*Field, doc map[string]any) {
	for _, f := range fields {
		value, present := doc[f.Name]
		if !present {
			if f.HasDefault() {
				doc[f.Name] = f.Default()
			}
			continue
		}
		if !f.IsDocument() {
			continue
		}
		if f.Multiple {
			items, _ := document.AsSlice(value)
			for _, item := range items {
				if sub, ok := document.AsMap(item); ok {
					applyDefaults(f.Children, sub)
				}
			}
			continue
		}
		if sub, ok := document.AsMap(value); ok {
			applyDefaults(f.Children, sub)
		}
	}
}

// Indexes returns the index models declared through "index" and "unique".
func (s *StorageSchema) Indexes() []mongo.IndexModel {
	var models []mongo.IndexModel
	var walk func(fields []*Field)
	walk = func(fields []*Field) {
		for _, f := range fields {
			if f.IsDocument() {
				walk(f.Children)
				continue
			}
			if !f.Index && !f.Unique {
				continue
			}
			opts := options.Index().SetName(s.Entity.Name + "_" + f.Path)
			if f.Unique {
				opts.SetUnique(true).SetSparse(true)
			}
			models = append(models, mongo.IndexModel{
				Keys:    bson.D{{Key: f.Path, Value: 1}},
				Options: opts,
			})
		}
	}
	walk(s.Entity.Fields)
	return models
}
