package schema

import (
	"regexp"

	"rim/internal/definitions"
	"rim/internal/enums"
)

var reserved = map[string]bool{
	"type":             true,
	"enum":             true,
	"softenum":         true,
	"enumPath":         true,
	"ref":              true,
	"regex":            true,
	"requirement":      true,
	"default":          true,
	"min":              true,
	"max":              true,
	"accessType":       true,
	"accessMonitoring": true,
	"multiple":         true,
	"label":            true,
	"description":      true,
	"index":            true,
	"unique":           true,
}

// Keys a document node may carry next to its sub-fields.
var decorative = map[string]bool{
	"label":            true,
	"description":      true,
	"accessType":       true,
	"accessMonitoring": true,
	"requirement":      true,
}

var leafMarkers = []string{"type", "ref", "enum", "softenum"}

type compiler struct {
	entity string
	enums  *enums.Registry
	errs   *CompileError
}

func (c *compiler) fields(node *definitions.Node, prefix string) []*Field {
	var out []*Field
	for _, name := range node.Keys() {
		if reserved[name] {
			continue
		}
		child, _ := node.Get(name)
		if f := c.field(name, prefix+name, child); f != nil {
			out = append(out, f)
		}
	}
	return out
}

func (c *compiler) field(name, path string, node *definitions.Node) *Field {
	multiple := false
	if node.Kind == definitions.List {
		if len(node.Items) != 1 {
			c.errs.add(c.entity, path, "an array node must wrap exactly one descriptor")
			return nil
		}
		multiple = true
		node = node.Items[0]
	}

	if node.Kind != definitions.Object {
		c.errs.add(c.entity, path, "expected a descriptor object")
		return nil
	}

	var subFields, leafKeys, otherReserved []string
	for _, key := range node.Keys() {
		switch {
		case !reserved[key]:
			subFields = append(subFields, key)
		case isLeafMarker(key):
			leafKeys = append(leafKeys, key)
		case !decorative[key] && key != "multiple":
			otherReserved = append(otherReserved, key)
		}
	}

	f := &Field{Name: name, Path: path, Multiple: multiple}
	c.common(f, node)

	switch {
	case len(leafKeys) > 0 && len(subFields) > 0:
		c.errs.add(c.entity, path, "node mixes leaf keys %v with sub-fields %v", leafKeys, subFields)
		return nil
	case len(leafKeys) > 0:
		c.leaf(f, node)
	case len(subFields) > 0:
		if len(otherReserved) > 0 {
			c.errs.add(c.entity, path, "document node carries leaf keys %v", otherReserved)
			return nil
		}
		f.Kind = Document
		f.Children = c.fields(node, path+".")
		f.children = index(f.Children)
	default:
		c.errs.add(c.entity, path, "node has neither a type nor sub-fields")
		return nil
	}

	return f
}

func isLeafMarker(key string) bool {
	for _, m := range leafMarkers {
		if m == key {
			return true
		}
	}
	return false
}

func (c *compiler) common(f *Field, node *definitions.Node) {
	f.Requirement = str(node, "requirement")
	f.Required = f.Requirement == "mandatory"
	f.AccessType = str(node, "accessType")
	f.Confidential = f.AccessType == "confidential"
	f.AccessMonitoring = str(node, "accessMonitoring")
	f.Label = langMap(node, "label")
	f.Description = langMap(node, "description")
	if m, ok := node.Get("multiple"); ok {
		if b, _ := m.Bool(); b {
			f.Multiple = true
		}
	}
}

func (c *compiler) leaf(f *Field, node *definitions.Node) {
	typ := str(node, "type")
	f.Ref = str(node, "ref")
	f.Enum = str(node, "enum")
	f.EnumPath = str(node, "enumPath")
	f.SoftEnum = str(node, "softenum")

	switch {
	case typ != "":
		kind, ok := kindOf(typ)
		if !ok {
			c.errs.add(c.entity, f.Path, "unknown type %q", typ)
			return
		}
		f.Kind = kind
	case f.Ref != "":
		f.Kind = Reference
	default:
		f.Kind = String
	}

	if f.Ref != "" && f.Kind != Reference {
		c.errs.add(c.entity, f.Path, "ref %q declared on type %s", f.Ref, f.Kind)
	}
	if f.Kind == Reference && f.Ref == "" {
		c.errs.add(c.entity, f.Path, "reference without a ref target")
	}

	if f.Enum != "" {
		if f.Kind != String {
			c.errs.add(c.entity, f.Path, "enum %q declared on type %s", f.Enum, f.Kind)
		}
		f.Kind = Enum
		switch {
		case !c.enums.Exists(f.Enum):
			c.errs.add(c.entity, f.Path, "unknown enum %q", f.Enum)
		case c.enums.IsNested(f.Enum) && f.EnumPath == "":
			c.errs.add(c.entity, f.Path, "nested enum %q requires an enumPath", f.Enum)
		}
	}

	if pattern := str(node, "regex"); pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			c.errs.add(c.entity, f.Path, "invalid regex: %v", err)
		}
		f.Regex = re
	}

	f.Min = c.number(f, node, "min")
	f.Max = c.number(f, node, "max")

	if def, ok := node.Get("default"); ok {
		f.defaultValue = def
	}
	if i, ok := node.Get("index"); ok {
		f.Index, _ = i.Bool()
	}
	if u, ok := node.Get("unique"); ok {
		f.Unique, _ = u.Bool()
	}
}

func (c *compiler) number(f *Field, node *definitions.Node, key string) *float64 {
	n, ok := node.Get(key)
	if !ok {
		return nil
	}
	v, ok := n.Float()
	if !ok {
		c.errs.add(c.entity, f.Path, "%s must be a number", key)
		return nil
	}
	return &v
}

func str(node *definitions.Node, key string) string {
	n, ok := node.Get(key)
	if !ok {
		return ""
	}
	s, _ := n.String()
	return s
}

func langMap(node *definitions.Node, key string) map[string]string {
	n, ok := node.Get(key)
	if !ok {
		return nil
	}
	if s, ok := n.String(); ok {
		return map[string]string{"fr": s, "en": s}
	}
	out := map[string]string{}
	for _, lang := range n.Keys() {
		v, _ := n.Get(lang)
		if s, ok := v.String(); ok {
			out[lang] = s
		}
	}
	return out
}
