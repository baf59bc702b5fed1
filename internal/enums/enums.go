// Package enums loads enumeration tables and answers membership and label
// queries for the schema compiler and the HTTP surface.
package enums

import (
	"fmt"
	"sync"

	"rim/internal/definitions"
)

type Value struct {
	Value string            `json:"value"`
	Label map[string]string `json:"label"`
}

// join describes a registry built from a code list and a reference table.
type join struct {
	table    string
	labelKey string
}

var joins = map[string]join{
	"countries":     {table: "countries", labelKey: "label"},
	"nationalities": {table: "countries", labelKey: "nationality"},
	"currencies":    {table: "currencies", labelKey: "label"},
	"languages":     {table: "languages", labelKey: "label"},
}

// Registry is built once at startup. Joined registries are resolved on first
// lookup and kept for the process lifetime.
type Registry struct {
	src    definitions.Source
	simple map[string][]Value
	nested map[string]map[string][]Value

	mu     sync.Mutex
	joined map[string][]Value
}

func New(src definitions.Source) (*Registry, error) {
	r := &Registry{
		src:    src,
		simple: map[string][]Value{},
		nested: map[string]map[string][]Value{},
		joined: map[string][]Value{},
	}

	names, err := src.Names(definitions.Enums)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if _, special := joins[name]; special {
			continue
		}

		node, err := src.Load(definitions.Enums, name)
		if err != nil {
			return nil, err
		}

		switch node.Kind {
		case definitions.List:
			values, err := parseValues(node)
			if err != nil {
				return nil, fmt.Errorf("enum %s: %w", name, err)
			}
			r.simple[name] = values
		case definitions.Object:
			buckets := make(map[string][]Value, len(node.Keys()))
			for _, parent := range node.Keys() {
				child, _ := node.Get(parent)
				values, err := parseValues(child)
				if err != nil {
					return nil, fmt.Errorf("enum %s.%s: %w", name, parent, err)
				}
				buckets[parent] = values
			}
			r.nested[name] = buckets
		default:
			return nil, fmt.Errorf("enum %s: expected a list or an object", name)
		}
	}

	return r, nil
}

func parseValues(node *definitions.Node) ([]Value, error) {
	if node.Kind != definitions.List {
		return nil, fmt.Errorf("expected a list of values")
	}

	values := make([]Value, 0, len(node.Items))
	for i, item := range node.Items {
		if s, ok := item.String(); ok {
			values = append(values, Value{Value: s, Label: map[string]string{}})
			continue
		}

		raw, ok := item.Get("value")
		if !ok {
			return nil, fmt.Errorf("[%d]: missing value", i)
		}
		s, ok := raw.String()
		if !ok {
			return nil, fmt.Errorf("[%d]: value must be a scalar", i)
		}
		label, _ := item.Get("label")
		values = append(values, Value{Value: s, Label: labels(label)})
	}
	return values, nil
}

func labels(node *definitions.Node) map[string]string {
	out := map[string]string{}
	if s, ok := node.String(); ok {
		out["en"] = s
		return out
	}
	for _, lang := range node.Keys() {
		v, _ := node.Get(lang)
		if s, ok := v.String(); ok {
			out[lang] = s
		}
	}
	return out
}

// Values returns the ordered values of a simple enum, nil for unknown names.
func (r *Registry) Values(name string) []Value {
	if values, ok := r.simple[name]; ok {
		return values
	}
	if _, ok := joins[name]; ok {
		return r.joinedValues(name)
	}
	return nil
}

// NestedValues returns the buckets of a nested enum, nil for unknown names.
func (r *Registry) NestedValues(name string) map[string][]Value {
	return r.nested[name]
}

func (r *Registry) IsNested(name string) bool {
	_, ok := r.nested[name]
	return ok
}

func (r *Registry) Exists(name string) bool {
	if _, ok := r.simple[name]; ok {
		return true
	}
	if _, ok := r.nested[name]; ok {
		return true
	}
	_, ok := joins[name]
	return ok
}

func (r *Registry) Contains(name string, value string) bool {
	return indexOf(r.Values(name), value) >= 0
}

// ContainsNested checks value against the bucket selected by context.
// An unknown bucket accepts nothing.
func (r *Registry) ContainsNested(name string, context string, value string) bool {
	buckets := r.nested[name]
	if buckets == nil {
		return false
	}
	return indexOf(buckets[context], value) >= 0
}

// Label returns the label of value in lang, falling back to the value itself.
func (r *Registry) Label(name string, value string, lang string) string {
	values := r.Values(name)
	if values == nil {
		for _, bucket := range r.nested[name] {
			if i := indexOf(bucket, value); i >= 0 {
				values = bucket
				break
			}
		}
	}

	if i := indexOf(values, value); i >= 0 {
		if label, ok := values[i].Label[lang]; ok && label != "" {
			return label
		}
	}
	return value
}

func indexOf(values []Value, value string) int {
	for i, v := range values {
		if v.Value == value {
			return i
		}
	}
	return -1
}
