package editlogs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestDiffArrayInsertion(t *testing.T) {
	before := map[string]any{"name": "X", "tags": map[string]any{"free": []any{"a"}}}
	after := map[string]any{"name": "X", "tags": map[string]any{"free": []any{"a", "b"}}}

	changes := Diff(before, after)
	require.Len(t, changes, 1)

	c := changes[0]
	require.Equal(t, Array, c.Kind)
	require.Equal(t, "tags.free", c.Path.String())
	require.NotNil(t, c.Index)
	require.Equal(t, 1, *c.Index)
	require.Equal(t, &Change{Kind: New, RHS: "b"}, c.Item)
}

func TestDiffKinds(t *testing.T) {
	before := map[string]any{
		"name":     "Lovelace",
		"gender":   "female",
		"contacts": []any{map[string]any{"kind": "work"}, map[string]any{"kind": "home"}},
		"year":     int32(1840),
	}
	after := map[string]any{
		"name":     "King",
		"active":   true,
		"contacts": []any{map[string]any{"kind": "office"}},
		"year":     1840.0,
	}

	changes := Diff(before, after)

	var got []string
	for _, c := range changes {
		got = append(got, string(c.Kind)+" "+c.Path.String())
	}
	require.Equal(t, []string{
		"E contacts.0.kind",
		"A contacts",
		"D gender",
		"E name",
		"N active",
	}, got)

	require.Equal(t, 1, *changes[1].Index)
	require.Equal(t, Deleted, changes[1].Item.Kind)
	require.Equal(t, map[string]any{"kind": "home"}, changes[1].Item.LHS)
}

func TestDiffEqualDocuments(t *testing.T) {
	doc := map[string]any{"a": []any{1, map[string]any{"b": "c"}}}
	require.Empty(t, Diff(doc, doc))
}

func TestOnlyTouches(t *testing.T) {
	require.True(t, OnlyTouches([]Change{{Kind: Edited, Path: Path{Key(ActorField)}}}, ActorField))
	require.True(t, OnlyTouches(nil, ActorField))
	require.False(t, OnlyTouches([]Change{
		{Kind: Edited, Path: Path{Key(ActorField)}},
		{Kind: Edited, Path: Path{Key("name")}},
	}, ActorField))
}

func TestEntryBSONKeepsPathShape(t *testing.T) {
	index := 2
	entry := Entry{
		Model:  "people",
		Action: ActionUpdate,
		Diff: []Change{
			{Kind: Edited, Path: Path{Key("contacts"), Index(0), Key("kind")}, LHS: "work", RHS: "home"},
			{Kind: Array, Path: Path{Key("tags"), Key("free")}, Index: &index, Item: &Change{Kind: New, RHS: "b"}},
		},
		Who: Who{ID: "u1", Name: "Ada", Roles: []string{"admin"}},
	}

	raw, err := bson.Marshal(entry)
	require.NoError(t, err)

	var generic bson.M
	require.NoError(t, bson.Unmarshal(raw, &generic))
	first := generic["diff"].(bson.A)[0].(bson.M)
	require.Equal(t, bson.A{"contacts", int32(0), "kind"}, first["path"])

	var decoded Entry
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	require.Equal(t, entry.Diff[0].Path, decoded.Diff[0].Path)
	require.Equal(t, 2, *decoded.Diff[1].Index)
	require.Equal(t, New, decoded.Diff[1].Item.Kind)
	require.Equal(t, "b", decoded.Diff[1].Item.RHS)
}
