package entities

import (
	"context"
	"errors"
	"testing"

	"rim/internal/definitions"
	"rim/internal/editlogs"
	"rim/internal/enums"
	"rim/internal/errmsg"
	"rim/internal/format"
	"rim/internal/permissions"
	"rim/internal/schema"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type noUsers struct{}

func (noUsers) FindWho(context.Context, string) (editlogs.Who, error) {
	return editlogs.Who{}, editlogs.ErrUserNotFound
}

type fixture struct {
	store  *Store
	logs   *editlogs.MemoryStore
	writer *editlogs.Writer
	colls  Collections
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	src := definitions.NewDir("../../definitions")
	enumRegistry, err := enums.New(src)
	require.NoError(t, err)
	schemas, err := schema.NewRegistry(src, enumRegistry)
	require.NoError(t, err)
	perms, err := permissions.New(src, schemas)
	require.NoError(t, err)

	log := zerolog.Nop()
	formatter := format.New(schemas, log)

	logs := editlogs.NewMemoryStore()
	seq := editlogs.NewSequencer(context.Background(), nil, 0, log)
	writer := editlogs.NewWriter(logs, seq, nil, log, "test")
	t.Cleanup(writer.Close)
	engine := editlogs.NewEngine(formatter, noUsers{}, writer, logs, log)

	colls := MemoryCollections()
	return &fixture{
		store:  NewStore(schemas, formatter, perms, engine, colls, log),
		logs:   logs,
		writer: writer,
		colls:  colls,
	}
}

var admin = permissions.Caller{ID: primitive.NewObjectID().Hex(), Name: "Admin", CentralRole: permissions.CentralAdmin}

func TestCreateUpdateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, admin, "people", map[string]any{
		"firstName": "Ada",
		"name":      "Byron",
		"gender":    "f",
		"birthDate": "1815-12-1",
	})
	require.NoError(t, err)
	require.Equal(t, true, created.Doc["active"])
	require.Equal(t, "1815-12-01", created.Doc["birthDate"])
	require.Equal(t, admin.ID, created.Doc[editlogs.ActorField].(primitive.ObjectID).Hex())

	updated, err := f.store.Update(ctx, admin, "people", created.ID, map[string]any{"name": "Lovelace", "gender": nil})
	require.NoError(t, err)
	require.Equal(t, "Lovelace", updated.Doc["name"])
	require.NotContains(t, updated.Doc, "gender")

	_, err = f.store.Update(ctx, admin, "people", created.ID, map[string]any{"name": "Lovelace"})
	require.NoError(t, err)

	require.NoError(t, f.store.Delete(ctx, admin, "people", created.ID))
	_, err = f.store.Load(ctx, "people", created.ID)
	require.ErrorIs(t, err, ErrNotFound)

	f.writer.Close()
	entries := f.logs.All()
	require.Len(t, entries, 3)
	require.Equal(t, editlogs.ActionCreate, entries[0].Action)
	require.Equal(t, editlogs.ActionUpdate, entries[1].Action)
	require.Len(t, entries[1].Diff, 2)
	require.Equal(t, "gender", entries[1].Diff[0].Path.String())
	require.Equal(t, editlogs.Deleted, entries[1].Diff[0].Kind)
	require.Equal(t, "name", entries[1].Diff[1].Path.String())
	require.Equal(t, editlogs.ActionDelete, entries[2].Action)
	require.Equal(t, "Lovelace", entries[2].Data["name"])
}

func TestCreateRejectsInvalidEnum(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Create(context.Background(), admin, "people", map[string]any{
		"firstName": "Ada",
		"name":      "Lovelace",
		"gender":    "x",
	})
	require.ErrorIs(t, err, errmsg.ErrValidation)

	var verr *errmsg.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []errmsg.FieldError{{Field: "gender", Value: "x", Enum: "genders", Message: "invalid enum value"}}, verr.Errors)

	docs, err := f.colls("people").Find(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Empty(t, docs)

	f.writer.Close()
	require.Empty(t, f.logs.All())
}

func TestNestedEnumFollowsSibling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Create(ctx, admin, "people", map[string]any{
		"firstName": "Ada",
		"name":      "Lovelace",
		"personalActivities": []any{
			map[string]any{"personalActivityType": "teaching", "personalActivitySubtype": "course"},
		},
	})
	require.NoError(t, err)

	_, err = f.store.Create(ctx, admin, "people", map[string]any{
		"firstName": "Ada",
		"name":      "Lovelace",
		"personalActivities": []any{
			map[string]any{"personalActivityType": "teaching", "personalActivitySubtype": "peerReview"},
		},
	})
	var verr *errmsg.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	require.Equal(t, "personalActivities.0.personalActivitySubtype", verr.Errors[0].Field)
	require.Equal(t, "personalActivitySubtypes", verr.Errors[0].Enum)
}

func TestScopedEditing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lab := primitive.NewObjectID()
	other := primitive.NewObjectID()
	member := permissions.Caller{
		ID:                primitive.NewObjectID().Hex(),
		OrganizationRoles: map[string]string{lab.Hex(): permissions.OrganizationMember},
	}

	inScope, err := f.store.Create(ctx, member, "people", map[string]any{
		"firstName":           "Ada",
		"name":                "Lovelace",
		"academicMemberships": []any{map[string]any{"organization": lab.Hex()}},
	})
	require.NoError(t, err)

	_, err = f.store.Create(ctx, member, "people", map[string]any{
		"firstName":           "Charles",
		"name":                "Babbage",
		"academicMemberships": []any{map[string]any{"organization": other.Hex()}},
	})
	require.ErrorIs(t, err, ErrForbidden)

	reader := permissions.Caller{ID: primitive.NewObjectID().Hex(), CentralRole: permissions.CentralReader}
	_, err = f.store.Update(ctx, reader, "people", inScope.ID, map[string]any{"name": "King"})
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, f.store.Delete(ctx, reader, "people", inScope.ID), ErrForbidden)
}

func TestScopedCallerCannotWriteHiddenFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lab := primitive.NewObjectID()
	member := permissions.Caller{
		ID:                primitive.NewObjectID().Hex(),
		OrganizationRoles: map[string]string{lab.Hex(): permissions.OrganizationMember},
	}

	created, err := f.store.Create(ctx, admin, "people", map[string]any{
		"firstName":           "Ada",
		"name":                "Lovelace",
		"birthDate":           "1815-12-10",
		"contacts":            []any{map[string]any{"kind": "work", "email": "ada@example.org"}},
		"academicMemberships": []any{map[string]any{"organization": lab.Hex()}},
	})
	require.NoError(t, err)

	// the member saves back the redacted view it was given
	updated, err := f.store.Update(ctx, member, "people", created.ID, map[string]any{
		"contacts":  []any{map[string]any{"kind": "office"}},
		"birthDate": "2000",
	})
	require.NoError(t, err)

	stored, err := f.store.Load(ctx, "people", created.ID)
	require.NoError(t, err)
	require.Equal(t, "1815-12-10", stored.Doc["birthDate"])
	contact := stored.Doc["contacts"].([]any)[0].(map[string]any)
	require.Equal(t, "office", contact["kind"])
	require.Equal(t, "ada@example.org", contact["email"])
	require.Equal(t, updated.Doc["contacts"], stored.Doc["contacts"])

	// hidden values sent on create are dropped
	fresh, err := f.store.Create(ctx, member, "people", map[string]any{
		"firstName":           "Charles",
		"name":                "Babbage",
		"birthDate":           "1791-12-26",
		"academicMemberships": []any{map[string]any{"organization": lab.Hex()}},
	})
	require.NoError(t, err)
	require.NotContains(t, fresh.Doc, "birthDate")

	f.writer.Close()
	for _, entry := range f.logs.All() {
		for _, change := range entry.Diff {
			require.NotEqual(t, "birthDate", change.Path.String())
			require.NotEqual(t, "contacts.0.email", change.Path.String())
		}
	}
}

func TestDottedUpdateKeepsSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, admin, "organizations", map[string]any{
		"name":    "Sciences Po",
		"address": map[string]any{"street": "27 rue Saint-Guillaume", "city": "Lyon"},
	})
	require.NoError(t, err)

	_, err = f.store.Update(ctx, admin, "organizations", created.ID, map[string]any{"address.city": "Paris"})
	require.NoError(t, err)

	stored, err := f.store.Load(ctx, "organizations", created.ID)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"street": "27 rue Saint-Guillaume", "city": "Paris"}, stored.Doc["address"])

	f.writer.Close()
	entries := f.logs.All()
	require.Len(t, entries, 2)
	require.Len(t, entries[1].Diff, 1)
	require.Equal(t, "address.city", entries[1].Diff[0].Path.String())
	require.Equal(t, editlogs.Edited, entries[1].Diff[0].Kind)
}

func TestOriginalSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, admin, "people", map[string]any{"firstName": "Ada", "name": "Byron"})
	require.NoError(t, err)

	inst, err := f.store.Load(ctx, "people", created.ID)
	require.NoError(t, err)
	inst.Doc["name"] = "Lovelace"
	require.Equal(t, "Byron", inst.Original()["name"])
}

func TestEnsureIndexes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.EnsureIndexes(context.Background()))

	people := f.colls("people").(*MemoryCollection)
	require.NotEmpty(t, people.Indexes)
}

func TestUnknownModel(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Load(context.Background(), "nope", primitive.NewObjectID())
	require.ErrorIs(t, err, schema.ErrUnknownEntity)
}
