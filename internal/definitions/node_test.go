package definitions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKeepsKeyOrder(t *testing.T) {
	node, err := Parse([]byte(`{"zeta": {"type": "string"}, "alpha": {"type": "number"}, "mid": [{"a": 1}]}`))
	require.NoError(t, err)
	require.Equal(t, Object, node.Kind)
	require.Equal(t, []string{"zeta", "alpha", "mid"}, node.Keys())

	mid, ok := node.Get("mid")
	require.True(t, ok)
	require.Equal(t, List, mid.Kind)
	require.Len(t, mid.Items, 1)

	a, ok := mid.Items[0].Get("a")
	require.True(t, ok)
	f, ok := a.Float()
	require.True(t, ok)
	require.Equal(t, 1.0, f)
}

func TestParseYAML(t *testing.T) {
	node, err := Parse([]byte("name:\n  type: string\n  requirement: mandatory\nactive:\n  type: boolean\n  default: true\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"name", "active"}, node.Keys())

	active, _ := node.Get("active")
	def, _ := active.Get("default")
	b, ok := def.Bool()
	require.True(t, ok)
	require.True(t, b)
}

func TestMemorySource(t *testing.T) {
	src := Memory{
		"schemas/people": `{"name": {"type": "string"}}`,
		"schemas/orgs":   `{"name": {"type": "string"}}`,
		"permissions":    `{"scopes": {}}`,
	}

	names, err := src.Names(Schemas)
	require.NoError(t, err)
	require.Equal(t, []string{"orgs", "people"}, names)

	_, err = src.Load(Schemas, "missing")
	require.True(t, errors.Is(err, ErrNotFound))

	perms, err := src.Load("", PermissionsFile)
	require.NoError(t, err)
	require.True(t, perms.Has("scopes"))
}

func TestInterface(t *testing.T) {
	node, err := Parse([]byte(`{"a": [1, "x", {"b": null}]}`))
	require.NoError(t, err)

	v := node.Interface().(map[string]any)
	list := v["a"].([]any)
	require.Equal(t, 1, list[0])
	require.Equal(t, "x", list[1])
	require.Equal(t, map[string]any{"b": nil}, list[2])
}

func TestParseJSONWithTabs(t *testing.T) {
	node, err := Parse([]byte("{\n\t\"b\": {\n\t\t\"min\": 1.5\n\t},\n\t\"a\": true\n}"))
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, node.Keys())

	b, _ := node.Get("b")
	min, _ := b.Get("min")
	f, ok := min.Float()
	require.True(t, ok)
	require.Equal(t, 1.5, f)
}
