package schema

import (
	"regexp"
	"strconv"

	"rim/internal/definitions"
)

// Field is one compiled node of an entity schema.
type Field struct {
	Name string
	// Path is the dotted path from the entity root, without array indices.
	Path string
	Kind Kind

	Multiple bool
	Required bool
	// Requirement keeps the authored value ("mandatory", "recommended", ...).
	Requirement string

	Enum     string
	EnumPath string
	SoftEnum string
	Ref      string
	Regex    *regexp.Regexp
	Min      *float64
	Max      *float64

	Index  bool
	Unique bool

	AccessType       string
	Confidential     bool
	AccessMonitoring string

	Label       map[string]string
	Description map[string]string

	Children []*Field

	defaultValue *definitions.Node
	children     map[string]*Field
}

func (f *Field) IsDocument() bool {
	return f.Kind == Document
}

func (f *Field) HasDefault() bool {
	return f.defaultValue != nil
}

// Default returns a fresh copy of the default value on each call.
func (f *Field) Default() any {
	return f.defaultValue.Interface()
}

func (f *Field) Child(name string) *Field {
	if f == nil {
		return nil
	}
	return f.children[name]
}

// LabelIn returns the label in lang, or the field name when none is authored.
func (f *Field) LabelIn(lang string) string {
	if l, ok := f.Label[lang]; ok && l != "" {
		return l
	}
	return f.Name
}

// Entity is the compiled descriptor tree of one entity.
type Entity struct {
	Name   string
	Fields []*Field

	byName map[string]*Field
}

func (e *Entity) Field(name string) *Field {
	return e.byName[name]
}

// Lookup resolves a concrete path such as ["contacts", "2", "email"]. Index
// segments are accepted after a repeated field.
func (e *Entity) Lookup(segments []string) *Field {
	var current *Field
	fields := e.byName
	expectIndex := false

	for _, seg := range segments {
		if expectIndex {
			expectIndex = false
			if isIndex(seg) {
				continue
			}
		}
		f, ok := fields[seg]
		if !ok {
			return nil
		}
		current = f
		fields = f.children
		expectIndex = f.Multiple
	}
	return current
}

// ConfidentialPatterns lists the confidential paths of the entity, with "*"
// standing for any index of a repeated group.
func (e *Entity) ConfidentialPatterns() []string {
	var out []string
	var walk func(fields []*Field, prefix string)
	walk = func(fields []*Field, prefix string) {
		for _, f := range fields {
			path := prefix + f.Name
			if f.Confidential {
				out = append(out, path)
				continue
			}
			if f.IsDocument() {
				if f.Multiple {
					walk(f.Children, path+".*.")
				} else {
					walk(f.Children, path+".")
				}
			}
		}
	}
	walk(e.Fields, "")
	return out
}

func isIndex(seg string) bool {
	_, err := strconv.Atoi(seg)
	return err == nil
}

func index(fields []*Field) map[string]*Field {
	m := make(map[string]*Field, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return m
}
