// Package definitions reads the static definition files (schemas, layouts,
// enums, reference tables, permission scopes) that drive the engine.
//
// Files may be JSON or YAML. JSON is read through a token stream and YAML
// through the yaml.v3 node API so that mapping keys keep their authored
// order: field order in a schema file is the order used by front schemas and
// derived layouts.
package definitions

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Kind int

const (
	Scalar Kind = iota
	Object
	List
)

// Node is an order-preserving view of a parsed definition document.
type Node struct {
	Kind  Kind
	Value any
	Items []*Node

	keys   []string
	fields map[string]*Node
}

func NewObject() *Node {
	return &Node{Kind: Object, fields: map[string]*Node{}}
}

// Set adds or replaces a key, keeping the original position on replace.
func (n *Node) Set(key string, value *Node) {
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = value
}

// Keys returns the mapping keys in authored order.
func (n *Node) Keys() []string {
	if n == nil || n.Kind != Object {
		return nil
	}
	return n.keys
}

func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != Object {
		return nil, false
	}
	v, ok := n.fields[key]
	return v, ok
}

func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// String returns the scalar as a string. Numbers and booleans are rendered.
func (n *Node) String() (string, bool) {
	if n == nil || n.Kind != Scalar || n.Value == nil {
		return "", false
	}
	switch v := n.Value.(type) {
	case string:
		return v, true
	case int:
		return strconv.Itoa(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return fmt.Sprint(n.Value), true
}

func (n *Node) Float() (float64, bool) {
	if n == nil || n.Kind != Scalar {
		return 0, false
	}
	switch v := n.Value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func (n *Node) Bool() (bool, bool) {
	if n == nil || n.Kind != Scalar {
		return false, false
	}
	b, ok := n.Value.(bool)
	return b, ok
}

// Interface converts the node into plain Go values
// (map[string]any, []any and scalars). Key order is lost.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case Object:
		out := make(map[string]any, len(n.keys))
		for _, k := range n.keys {
			out[k] = n.fields[k].Interface()
		}
		return out
	case List:
		out := make([]any, len(n.Items))
		for i, item := range n.Items {
			out[i] = item.Interface()
		}
		return out
	default:
		return n.Value
	}
}

// Parse decodes a JSON or YAML document.
func Parse(data []byte) (*Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return parseJSON(trimmed)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return &Node{Kind: Scalar}, nil
	}
	return fromYAML(doc.Content[0])
}

func fromYAML(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return &Node{Kind: Scalar}, nil
		}
		return fromYAML(y.Content[0])
	case yaml.AliasNode:
		return fromYAML(y.Alias)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(y.Content); i += 2 {
			key := y.Content[i].Value
			value, err := fromYAML(y.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			obj.Set(key, value)
		}
		return obj, nil
	case yaml.SequenceNode:
		list := &Node{Kind: List, Items: make([]*Node, 0, len(y.Content))}
		for i, c := range y.Content {
			item, err := fromYAML(c)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list.Items = append(list.Items, item)
		}
		return list, nil
	case yaml.ScalarNode:
		var v any
		if err := y.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", y.Line, err)
		}
		return &Node{Kind: Scalar, Value: v}, nil
	}
	return nil, fmt.Errorf("line %d: unsupported node kind %d", y.Line, y.Kind)
}
