package schema

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
)

// FrontSchema is the client facing view of an entity: technical keys are
// dropped and confidential fields are absent unless requested.
type FrontSchema struct {
	Entity              string
	IncludeConfidential bool
	Fields              []*FrontField

	byPath map[string]*FrontField
}

type FrontField struct {
	*Field
	Children []*FrontField
}

func newFrontSchema(entity *Entity, includeConfidential bool) *FrontSchema {
	fs := &FrontSchema{
		Entity:              entity.Name,
		IncludeConfidential: includeConfidential,
		byPath:              map[string]*FrontField{},
	}
	fs.Fields = fs.build(entity.Fields)
	return fs
}

func (fs *FrontSchema) build(fields []*Field) []*FrontField {
	out := make([]*FrontField, 0, len(fields))
	for _, f := range fields {
		if f.Confidential && !fs.IncludeConfidential {
			continue
		}
		ff := &FrontField{Field: f}
		if f.IsDocument() {
			ff.Children = fs.build(f.Children)
		}
		fs.byPath[f.Path] = ff
		out = append(out, ff)
	}
	return out
}

// Field finds a field by its dotted path (no array indices).
func (fs *FrontSchema) has(path string) bool {
	_, ok := fs.byPath[path]
	return ok
}

func (fs *FrontSchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeFields(&buf, fs.Fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFields(buf *bytes.Buffer, fields []*FrontField) error {
	buf.WriteByte('{')
	for i, ff := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(buf, ff.Name); err != nil {
			return err
		}
		if err := writeField(buf, ff); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeField(buf *bytes.Buffer, ff *FrontField) error {
	w := &objectWriter{buf: buf}
	buf.WriteByte('{')

	if ff.IsDocument() {
		w.entry("type", "object")
	} else {
		w.entry("type", frontType(ff.Kind))
		w.optional("ref", ff.Ref)
		w.optional("enum", ff.Enum)
		w.optional("enumPath", ff.EnumPath)
		w.optional("softenum", ff.SoftEnum)
		if ff.HasDefault() {
			w.entry("default", ff.Default())
		}
		if ff.Min != nil {
			w.entry("min", *ff.Min)
		}
		if ff.Max != nil {
			w.entry("max", *ff.Max)
		}
	}

	w.optional("requirement", ff.Requirement)
	w.optional("accessType", ff.AccessType)
	w.optional("accessMonitoring", ff.AccessMonitoring)
	if ff.Multiple {
		w.entry("multiple", true)
	}
	if len(ff.Label) > 0 {
		w.entry("label", ff.Label)
	}
	if len(ff.Description) > 0 {
		w.entry("description", ff.Description)
	}

	for _, child := range ff.Children {
		w.sep()
		if w.err == nil {
			w.err = writeKey(buf, child.Name)
		}
		if w.err == nil {
			w.err = writeField(buf, child)
		}
	}

	buf.WriteByte('}')
	return w.err
}

func frontType(k Kind) string {
	if k == Enum {
		return String.String()
	}
	return k.String()
}

type objectWriter struct {
	buf   *bytes.Buffer
	count int
	err   error
}

func (w *objectWriter) sep() {
	if w.count > 0 {
		w.buf.WriteByte(',')
	}
	w.count++
}

func (w *objectWriter) entry(key string, value any) {
	if w.err != nil {
		return
	}
	w.sep()
	if w.err = writeKey(w.buf, key); w.err != nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		w.err = err
		return
	}
	w.buf.Write(data)
}

func (w *objectWriter) optional(key string, value string) {
	if strings.TrimSpace(value) != "" {
		w.entry(key, value)
	}
}

func writeKey(buf *bytes.Buffer, key string) error {
	data, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(data)
	buf.WriteByte(':')
	return nil
}
