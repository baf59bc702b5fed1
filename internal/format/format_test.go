package format

import (
	"bytes"
	"testing"

	"rim/internal/definitions"
	"rim/internal/enums"
	"rim/internal/logger"
	"rim/internal/permissions"
	"rim/internal/schema"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newFormatter(t *testing.T) (*Formatter, *bytes.Buffer) {
	t.Helper()

	src := definitions.NewDir("../../definitions")
	enumRegistry, err := enums.New(src)
	require.NoError(t, err)
	schemas, err := schema.NewRegistry(src, enumRegistry)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	log, err := logger.New().FromBuffer(buf).Make()
	require.NoError(t, err)

	return New(schemas, log), buf
}

func samplePerson(lab primitive.ObjectID) bson.M {
	return bson.M{
		"_id":       primitive.NewObjectID(),
		"__v":       int32(3),
		"_private":  "internal",
		"opts":      bson.M{"editable": true},
		"firstName": "Ada",
		"name":      "Lovelace",
		"birthDate": "1815-12-10",
		"tags":      bson.M{"free": bson.A{"maths", "poetry"}},
		"contacts": bson.A{
			bson.M{"kind": "work", "email": "ada@example.org", "_id": primitive.NewObjectID()},
			bson.M{"kind": "home", "email": "ada@home.example"},
		},
		"academicMemberships": bson.A{
			bson.M{"organization": bson.M{"_id": lab, "name": "Analytical Engines Lab"}, "startDate": "1833"},
			bson.M{"organization": lab.Hex()},
			bson.M{"organization": lab},
		},
		"salaries":      bson.A{bson.M{"year": int32(1840), "amount": 10.5, "currency": "GBP"}},
		"lastUpdatedBy": primitive.NewObjectID(),
	}
}

func TestFormatFlattensAndStrips(t *testing.T) {
	f, _ := newFormatter(t)
	lab := primitive.NewObjectID()
	person := samplePerson(lab)

	out, err := f.Format("people", person, permissions.Full())
	require.NoError(t, err)

	require.Equal(t, person["_id"].(primitive.ObjectID).Hex(), out["id"])
	require.NotContains(t, out, "_id")
	require.NotContains(t, out, "__v")
	require.NotContains(t, out, "_private")
	require.NotContains(t, out, "opts")
	require.Equal(t, "1815-12-10", out["birthDate"])

	memberships := out["academicMemberships"].([]any)
	require.Len(t, memberships, 3)
	for _, m := range memberships {
		require.Equal(t, lab.Hex(), m.(map[string]any)["organization"])
	}

	contacts := out["contacts"].([]any)
	require.Equal(t, map[string]any{"kind": "work", "email": "ada@example.org"}, contacts[0])
	require.Equal(t, person["lastUpdatedBy"].(primitive.ObjectID).Hex(), out["lastUpdatedBy"])
}

func TestFormatIsIdempotent(t *testing.T) {
	f, _ := newFormatter(t)
	person := samplePerson(primitive.NewObjectID())

	once, err := f.Format("people", person, permissions.Full())
	require.NoError(t, err)
	twice, err := f.Format("people", once, permissions.Full())
	require.NoError(t, err)
	require.Equal(t, once, twice)
}

func TestFormatOmitsConfidentialFields(t *testing.T) {
	f, _ := newFormatter(t)
	person := samplePerson(primitive.NewObjectID())

	conf := permissions.WithPaths("birthDate", "contacts.*.email", "salaries")
	out, err := f.Format("people", person, conf)
	require.NoError(t, err)

	require.NotContains(t, out, "birthDate")
	require.NotContains(t, out, "salaries")
	for _, c := range out["contacts"].([]any) {
		require.NotContains(t, c.(map[string]any), "email")
		require.Contains(t, c.(map[string]any), "kind")
	}
}

func TestFormatReferenceRoundTrip(t *testing.T) {
	f, _ := newFormatter(t)
	org := primitive.NewObjectID()

	populated := bson.M{"name": "X", "parentOrganizations": bson.A{bson.M{"_id": org, "name": "Parent", "acronym": "P"}}}
	out, err := f.Format("organizations", populated, permissions.Full())
	require.NoError(t, err)
	require.Equal(t, []any{org.Hex()}, out["parentOrganizations"])

	bare := bson.M{"name": "X", "parentOrganizations": bson.A{org.Hex()}}
	out, err = f.Format("organizations", bare, permissions.Full())
	require.NoError(t, err)
	require.Equal(t, []any{org.Hex()}, out["parentOrganizations"])
}

func TestFormatLogsExtraneousFields(t *testing.T) {
	f, buf := newFormatter(t)

	out, err := f.Format("organizations", bson.M{
		"name":    "Lab",
		"legacy":  "old value",
		"address": bson.M{"city": "Paris", "region": "IDF"},
	}, permissions.Full())
	require.NoError(t, err)

	require.NotContains(t, out, "legacy")
	require.Equal(t, map[string]any{"city": "Paris"}, out["address"])
	require.Contains(t, buf.String(), `"path":"legacy"`)
	require.Contains(t, buf.String(), `"path":"address.region"`)
	require.Contains(t, buf.String(), "extraneous field dropped")
}

func TestFilterConfidentialFields(t *testing.T) {
	f, _ := newFormatter(t)
	lab := primitive.NewObjectID()
	person := samplePerson(lab)

	conf := permissions.WithPaths("birthDate", "contacts.*.email", "salaries")
	out, err := f.FilterConfidentialFields("people", person, conf)
	require.NoError(t, err)

	require.Equal(t, person["_id"], out["_id"])
	require.Equal(t, int32(3), out["__v"])
	require.NotContains(t, out, "birthDate")
	require.NotContains(t, out, "salaries")

	contacts := out["contacts"].([]any)
	require.NotContains(t, contacts[0].(map[string]any), "email")

	first := out["academicMemberships"].([]any)[0].(map[string]any)
	require.Equal(t, lab, first["organization"].(map[string]any)["_id"])

	// the input is untouched
	require.Equal(t, "1815-12-10", person["birthDate"])
	require.Equal(t, "ada@example.org", person["contacts"].(bson.A)[0].(bson.M)["email"])
}

func TestParse(t *testing.T) {
	f, buf := newFormatter(t)
	id := primitive.NewObjectID()
	parent := primitive.NewObjectID()

	out, err := f.Parse("organizations", map[string]any{
		"id":                  id.Hex(),
		"name":                "Lab",
		"address.city":        "Paris",
		"address.country":     "FRA",
		"parentOrganizations": []any{parent.Hex(), map[string]any{"id": parent.Hex(), "name": "P"}},
		"unknown":             true,
	})
	require.NoError(t, err)

	require.Equal(t, id, out["_id"])
	require.Equal(t, map[string]any{"city": "Paris", "country": "FRA"}, out["address"])
	require.Equal(t, []any{parent, parent}, out["parentOrganizations"])
	require.NotContains(t, out, "unknown")
	require.NotContains(t, out, "id")
	require.Contains(t, buf.String(), `"path":"unknown"`)
}

func TestPatchKeepsSiblings(t *testing.T) {
	f, buf := newFormatter(t)
	parent := primitive.NewObjectID()

	stored := bson.M{
		"_id":                 primitive.NewObjectID(),
		"name":                "Lab",
		"address":             bson.M{"street": "27 rue Saint-Guillaume", "city": "Lyon"},
		"parentOrganizations": bson.A{primitive.NewObjectID(), primitive.NewObjectID()},
	}

	out, err := f.Patch("organizations", stored, map[string]any{
		"address.city":          "Paris",
		"parentOrganizations.1": parent.Hex(),
		"name":                  "Lab B",
		"bogus.path":            1,
	})
	require.NoError(t, err)

	require.Equal(t, map[string]any{"street": "27 rue Saint-Guillaume", "city": "Paris"}, out["address"])
	require.Equal(t, parent, out["parentOrganizations"].([]any)[1])
	require.Equal(t, "Lab B", out["name"])
	require.Contains(t, buf.String(), `"path":"bogus.path"`)

	// the stored document is untouched
	require.Equal(t, "Lyon", stored["address"].(bson.M)["city"])
	require.Equal(t, "Lab", stored["name"])
}

func TestPatchRemoves(t *testing.T) {
	f, _ := newFormatter(t)
	first, second := primitive.NewObjectID(), primitive.NewObjectID()

	out, err := f.Patch("organizations", bson.M{
		"name":                "Lab",
		"address":             bson.M{"street": "27 rue Saint-Guillaume", "city": "Lyon"},
		"parentOrganizations": bson.A{first, second},
	}, map[string]any{
		"address.street":        nil,
		"parentOrganizations.0": nil,
	})
	require.NoError(t, err)

	require.Equal(t, map[string]any{"city": "Lyon"}, out["address"])
	require.Equal(t, []any{second}, out["parentOrganizations"])

	out, err = f.Patch("organizations", out, map[string]any{"address": nil})
	require.NoError(t, err)
	require.NotContains(t, out, "address")
}

func TestCleanup(t *testing.T) {
	f, _ := newFormatter(t)
	lab := primitive.NewObjectID()

	a, err := f.Cleanup("people", bson.M{
		"_id":  primitive.NewObjectID(),
		"__v":  int32(1),
		"name": "Lovelace",
		"academicMemberships": bson.A{
			bson.M{"organization": bson.M{"_id": lab, "name": "Lab"}, "_id": primitive.NewObjectID()},
		},
		"salaries": bson.A{bson.M{"year": int32(1840)}},
		"stale":    "x",
	})
	require.NoError(t, err)

	b, err := f.Cleanup("people", map[string]any{
		"name": "Lovelace",
		"academicMemberships": []any{
			map[string]any{"organization": primitive.Binary{Data: lab[:]}},
		},
		"salaries": []any{map[string]any{"year": 1840.0}},
	})
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Equal(t, lab.Hex(), a["academicMemberships"].([]any)[0].(map[string]any)["organization"])
}
