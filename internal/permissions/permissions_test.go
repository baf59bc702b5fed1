package permissions

import (
	"testing"

	"rim/internal/definitions"
	"rim/internal/enums"
	"rim/internal/schema"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newFilter(t *testing.T) *Filter {
	t.Helper()

	src := definitions.NewDir("../../definitions")
	enumRegistry, err := enums.New(src)
	require.NoError(t, err)
	schemas, err := schema.NewRegistry(src, enumRegistry)
	require.NoError(t, err)

	f, err := New(src, schemas)
	require.NoError(t, err)
	return f
}

func TestNewPermissionsDefinition(t *testing.T) {
	f, err := New(definitions.Memory{}, nil)
	require.NoError(t, err)
	require.Empty(t, f.scopes)

	_, err = New(definitions.Memory{"permissions": "{not json"}, nil)
	require.Error(t, err)

	_, err = New(definitions.Memory{"permissions": `{"scopes": ["people"]}`}, nil)
	require.ErrorContains(t, err, "scopes must be an object")

	_, err = New(definitions.Memory{"permissions": `{"scopes": {"people": "birthDate"}}`}, nil)
	require.ErrorContains(t, err, "scopes.people must be a list")

	f, err = New(definitions.Memory{"permissions": `{"scopes": {"people": ["birthDate"]}}`}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"birthDate"}, f.scopes["people"])
}

func TestCentralCallersSeeEverything(t *testing.T) {
	f := newFilter(t)

	for _, role := range []string{CentralAdmin, CentralReader} {
		conf, err := f.Confidentials(Caller{ID: "u", CentralRole: role}, "people")
		require.NoError(t, err)
		require.True(t, conf.Viewable)
		require.Empty(t, conf.Paths)
		require.False(t, conf.HidesPath("birthDate"))
	}
}

func TestScopedCallersAreRedacted(t *testing.T) {
	f := newFilter(t)

	conf, err := f.Confidentials(Caller{ID: "u"}, "people")
	require.NoError(t, err)
	require.False(t, conf.Viewable)
	require.Equal(t, []string{"birthDate", "contacts.*.email", "salaries"}, conf.Paths)

	require.True(t, conf.HidesPath("birthDate"))
	require.True(t, conf.HidesPath("contacts.2.email"))
	require.True(t, conf.HidesPath("salaries"))
	require.True(t, conf.HidesPath("salaries.0.amount"))
	require.False(t, conf.HidesPath("contacts.2.kind"))
	require.False(t, conf.HidesPath("contacts"))
	require.False(t, conf.HidesPath("name"))

	require.True(t, conf.HidesBelow([]string{"contacts"}))
	require.True(t, conf.HidesBelow([]string{"contacts", "0"}))
	require.False(t, conf.HidesBelow([]string{"name"}))

	_, err = f.Confidentials(Caller{ID: "u"}, "unknown")
	require.ErrorIs(t, err, schema.ErrUnknownEntity)
}

func TestOverlappingPatternsAreAUnion(t *testing.T) {
	a := WithPaths("contacts.*.email", "contacts.1")
	b := WithPaths("contacts.1", "contacts.*.email")

	for _, conf := range []Confidentials{a, b} {
		require.True(t, conf.HidesPath("contacts.1"))
		require.True(t, conf.HidesPath("contacts.1.kind"))
		require.True(t, conf.HidesPath("contacts.1.email"))
		require.True(t, conf.HidesPath("contacts.0.email"))
		require.False(t, conf.HidesPath("contacts.0.kind"))
	}

	require.False(t, Full().HidesPath("contacts.1"))
}

func TestEditable(t *testing.T) {
	f := newFilter(t)

	lab := primitive.NewObjectID()
	other := primitive.NewObjectID()

	person := bson.M{
		"_id":  primitive.NewObjectID(),
		"name": "Lovelace",
		"academicMemberships": bson.A{
			bson.M{"organization": other},
			bson.M{"organization": bson.M{"_id": lab, "name": "Lab"}},
		},
	}

	require.True(t, f.Editable(Caller{CentralRole: CentralAdmin}, "people", person))
	require.False(t, f.Editable(Caller{CentralRole: CentralReader}, "people", person))

	member := Caller{ID: "m", OrganizationRoles: map[string]string{lab.Hex(): OrganizationMember}}
	require.True(t, f.Editable(member, "people", person))

	outsider := Caller{ID: "o", OrganizationRoles: map[string]string{primitive.NewObjectID().Hex(): OrganizationAdmin}}
	require.False(t, f.Editable(outsider, "people", person))

	reader := Caller{ID: "r", OrganizationRoles: map[string]string{lab.Hex(): "reader"}}
	require.False(t, f.Editable(reader, "people", person))

	org := bson.M{"_id": lab, "name": "Lab"}
	require.True(t, f.Editable(member, "organizations", org))

	activity := bson.M{"organizations": bson.A{other.Hex(), lab.Hex()}}
	require.True(t, f.Editable(member, "activities", activity))
}

func TestOpts(t *testing.T) {
	f := newFilter(t)

	id := primitive.NewObjectID()
	opts, err := f.Opts(Caller{ID: "u"}, "people", bson.M{"_id": id})
	require.NoError(t, err)
	require.False(t, opts.Editable)
	require.Equal(t, "/people/"+id.Hex(), opts.Path)
	require.Equal(t, []string{"birthDate", "contacts.*.email", "salaries"}, opts.RestrictedFields)

	opts, err = f.Opts(Caller{ID: "a", CentralRole: CentralAdmin}, "people", bson.M{"_id": id})
	require.NoError(t, err)
	require.True(t, opts.Editable)
	require.Empty(t, opts.RestrictedFields)
}

func TestCallerRoles(t *testing.T) {
	c := Caller{CentralRole: CentralReader, OrganizationRoles: map[string]string{"b": "member", "a": "admin"}}
	require.Equal(t, []string{"reader", "admin@a", "member@b"}, c.Roles())
	require.Equal(t, []string{}, Caller{}.Roles())
}

func TestValues(t *testing.T) {
	doc := bson.M{"a": bson.A{bson.M{"b": 1}, bson.M{"b": 2}, bson.M{"c": 3}}}
	require.Equal(t, []any{1, 2}, Values(doc, []string{"a", "*", "b"}))
	require.Equal(t, []any{2}, Values(doc, []string{"a", "1", "b"}))
	require.Len(t, Values(doc, []string{"a"}), 3)
	require.Nil(t, Values(doc, []string{"x"}))
}

func TestRestoreKeepsHiddenValues(t *testing.T) {
	conf := WithPaths("birthDate", "contacts.*.email", "salaries")

	stored := bson.M{
		"name":      "Lovelace",
		"birthDate": "1815-12-10",
		"contacts": bson.A{
			bson.M{"kind": "work", "email": "ada@example.org"},
		},
		"salaries": bson.A{bson.M{"year": int32(1840)}},
	}
	updated := map[string]any{
		"name":      "King",
		"birthDate": "2000",
		"contacts": []any{
			map[string]any{"kind": "office"},
			map[string]any{"kind": "home", "email": "new@example.org"},
		},
	}

	conf.Restore(stored, updated)

	require.Equal(t, map[string]any{
		"name":      "King",
		"birthDate": "1815-12-10",
		"contacts": []any{
			map[string]any{"kind": "office", "email": "ada@example.org"},
			map[string]any{"kind": "home"},
		},
		"salaries": []any{map[string]any{"year": int32(1840)}},
	}, updated)
}

func TestRestoreStripsHiddenOnCreate(t *testing.T) {
	conf := WithPaths("birthDate")
	updated := map[string]any{"name": "Lovelace", "birthDate": "1815"}

	conf.Restore(nil, updated)
	require.Equal(t, map[string]any{"name": "Lovelace"}, updated)

	full := map[string]any{"birthDate": "1815"}
	Full().Restore(nil, full)
	require.Equal(t, map[string]any{"birthDate": "1815"}, full)
}
