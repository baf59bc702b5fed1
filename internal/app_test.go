package internal

import (
	"context"
	"net/http"
	"testing"
	"time"

	"rim/internal/auth"
	"rim/internal/definitions"
	"rim/internal/editlogs"
	"rim/internal/entities"
	"rim/internal/env"
	"rim/internal/errmsg"
	"rim/internal/models"
	"rim/internal/permissions"
	"rim/test/helpers"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct horse"

var testLab = primitive.NewObjectID()

type testApp struct {
	app    *fiber.App
	logs   *editlogs.MemoryStore
	admin  string
	member string
	reader string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	env.JWT_SECRET = []byte("test-secret")
	env.VERSION = "0.0.0-test"

	core, err := LoadCore(definitions.NewDir("../definitions"), zerolog.Nop())
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	users := auth.NewMemoryUsers(
		models.User{Username: "admin", Password: string(hash), Name: "Admin", CentralRole: permissions.CentralAdmin},
		models.User{Username: "member", Password: string(hash), Name: "Member", OrganizationRoles: map[string]string{testLab.Hex(): permissions.OrganizationMember}},
		models.User{Username: "reader", Password: string(hash), Name: "Reader", CentralRole: permissions.CentralReader},
	)

	logStore := editlogs.NewMemoryStore()
	hub := editlogs.NewHub()
	seq := editlogs.NewSequencer(context.Background(), nil, 0, zerolog.Nop())
	writer := editlogs.NewWriter(logStore, seq, hub, zerolog.Nop(), "test")
	t.Cleanup(writer.Close)

	deps := core.Deps(users, logStore, writer, hub, entities.MemoryCollections(), zerolog.Nop())
	app := NewApp(deps)

	return &testApp{
		app:    app,
		logs:   logStore,
		admin:  helpers.Token(t, app, "admin", testPassword),
		member: helpers.Token(t, app, "member", testPassword),
		reader: helpers.Token(t, app, "reader", testPassword),
	}
}

func TestPingAndVersion(t *testing.T) {
	ta := newTestApp(t)

	body, statusCode := helpers.RequestRunner(t, ta.app, "GET", "/rim/ping", nil, nil)
	require.Equal(t, http.StatusOK, statusCode)
	require.Equal(t, "PONG", string(body))

	body, statusCode = helpers.RequestRunner(t, ta.app, "GET", "/rim/version", nil, nil)
	require.Equal(t, http.StatusOK, statusCode)
	require.Equal(t, "v0.0.0-test", string(body))
}

func TestLogin(t *testing.T) {
	ta := newTestApp(t)

	body, statusCode := helpers.API_Login(t, ta.app, "admin", testPassword)
	require.Equal(t, http.StatusOK, statusCode)

	payload := helpers.Decode[struct {
		Token string `json:"token"`
		User  struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"user"`
	}](t, body)
	require.NotEmpty(t, payload.Token)
	require.Equal(t, "admin", payload.User.Username)
	require.Empty(t, payload.User.Password)

	body, statusCode = helpers.API_Login(t, ta.app, "admin", "wrong")
	helpers.ResponseErrorCheck(t, ta.app, errmsg.UserWrongPassword, body, statusCode)

	body, statusCode = helpers.API_Login(t, ta.app, "ghost", testPassword)
	helpers.ResponseErrorCheck(t, ta.app, errmsg.UserNotExists, body, statusCode)

	body, statusCode = helpers.API_Login(t, ta.app, "", "")
	helpers.ResponseErrorCheck(t, ta.app, errmsg.UserInvalidPayload, body, statusCode)
}

func TestMe(t *testing.T) {
	ta := newTestApp(t)

	body, statusCode := helpers.API_Me(t, ta.app, nil)
	helpers.ResponseErrorCheck(t, ta.app, errmsg.UserNoToken, body, statusCode)

	bogus := "not-a-token"
	body, statusCode = helpers.API_Me(t, ta.app, &bogus)
	helpers.ResponseErrorCheck(t, ta.app, errmsg.UserInvalidToken, body, statusCode)

	body, statusCode = helpers.API_Me(t, ta.app, &ta.member)
	require.Equal(t, http.StatusOK, statusCode)
	caller := helpers.Decode[permissions.Caller](t, body)
	require.Equal(t, "Member", caller.Name)
	require.Equal(t, permissions.OrganizationMember, caller.OrganizationRoles[testLab.Hex()])
}

func TestSchemaRedaction(t *testing.T) {
	ta := newTestApp(t)

	body, statusCode := helpers.API_GetSchema(t, ta.app, ta.admin, "people")
	require.Equal(t, http.StatusOK, statusCode)
	full := helpers.Decode[map[string]any](t, body)
	require.Contains(t, full, "birthDate")
	require.Contains(t, full, "salaries")
	require.NotContains(t, full["ldapUid"], "regex")

	body, statusCode = helpers.API_GetSchema(t, ta.app, ta.member, "people")
	require.Equal(t, http.StatusOK, statusCode)
	redacted := helpers.Decode[map[string]any](t, body)
	require.NotContains(t, redacted, "birthDate")
	require.NotContains(t, redacted, "salaries")
	require.Contains(t, redacted, "name")

	body, statusCode = helpers.API_GetSchema(t, ta.app, ta.admin, "nope")
	helpers.ResponseErrorCheck(t, ta.app, errmsg.ModelNotExists, body, statusCode)
}

func TestLayoutAndEnums(t *testing.T) {
	ta := newTestApp(t)

	body, statusCode := helpers.API_GetLayout(t, ta.app, ta.admin, "people")
	require.Equal(t, http.StatusOK, statusCode)
	rows := helpers.Decode[[]map[string]any](t, body)
	require.NotEmpty(t, rows)

	body, statusCode = helpers.API_GetEnum(t, ta.app, ta.admin, "genders")
	require.Equal(t, http.StatusOK, statusCode)
	genders := helpers.Decode[[]struct {
		Value string `json:"value"`
	}](t, body)
	require.Len(t, genders, 3)
	require.Equal(t, "m", genders[0].Value)

	body, statusCode = helpers.API_GetEnum(t, ta.app, ta.admin, "personalActivitySubtypes/teaching")
	require.Equal(t, http.StatusOK, statusCode)
	require.Len(t, helpers.Decode[[]map[string]any](t, body), 2)

	body, statusCode = helpers.API_GetEnum(t, ta.app, ta.admin, "nope")
	helpers.ResponseErrorCheck(t, ta.app, errmsg.EnumNotExists, body, statusCode)
}

type formatted struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	BirthDate string           `json:"birthDate"`
	Opts      permissions.Opts `json:"opts"`
}

func TestEntityLifecycle(t *testing.T) {
	ta := newTestApp(t)

	body, statusCode := helpers.API_CreateEntity(t, ta.app, ta.admin, "people", map[string]any{
		"firstName":           "Ada",
		"name":                "Byron",
		"birthDate":           "1815-12-10",
		"academicMemberships": []any{map[string]any{"organization": testLab.Hex()}},
	})
	require.Equal(t, http.StatusCreated, statusCode, string(body))
	created := helpers.Decode[formatted](t, body)
	require.NotEmpty(t, created.ID)
	require.True(t, created.Opts.Editable)
	require.Equal(t, "/people/"+created.ID, created.Opts.Path)

	body, statusCode = helpers.API_GetEntity(t, ta.app, ta.member, "people", created.ID)
	require.Equal(t, http.StatusOK, statusCode)
	asMember := helpers.Decode[formatted](t, body)
	require.Empty(t, asMember.BirthDate)
	require.True(t, asMember.Opts.Editable)
	require.Contains(t, asMember.Opts.RestrictedFields, "birthDate")

	body, statusCode = helpers.API_UpdateEntity(t, ta.app, ta.member, "people", created.ID, map[string]any{"name": "Lovelace"})
	require.Equal(t, http.StatusOK, statusCode, string(body))
	require.Equal(t, "Lovelace", helpers.Decode[formatted](t, body).Name)

	body, statusCode = helpers.API_UpdateEntity(t, ta.app, ta.reader, "people", created.ID, map[string]any{"name": "King"})
	helpers.ResponseErrorCheck(t, ta.app, errmsg.UserForbidden, body, statusCode)

	body, statusCode = helpers.API_ListEntities(t, ta.app, ta.reader, "people", "?skip=0&limit=10")
	require.Equal(t, http.StatusOK, statusCode)
	require.Len(t, helpers.Decode[struct {
		Items []formatted `json:"items"`
	}](t, body).Items, 1)

	body, statusCode = helpers.API_ListEntities(t, ta.app, ta.reader, "people", "?limit=-1")
	helpers.ResponseErrorCheck(t, ta.app, errmsg.InvalidPagination, body, statusCode)

	_, statusCode = helpers.API_DeleteEntity(t, ta.app, ta.admin, "people", created.ID)
	require.Equal(t, http.StatusNoContent, statusCode)

	body, statusCode = helpers.API_GetEntity(t, ta.app, ta.admin, "people", created.ID)
	helpers.ResponseErrorCheck(t, ta.app, errmsg.EntityNotExists, body, statusCode)

	body, statusCode = helpers.API_GetEntity(t, ta.app, ta.admin, "people", "not-an-id")
	helpers.ResponseErrorCheck(t, ta.app, errmsg.EntityInvalidID, body, statusCode)

	require.Eventually(t, func() bool { return len(ta.logs.All()) == 3 }, 2*time.Second, 20*time.Millisecond)

	body, statusCode = helpers.API_ListEditLogs(t, ta.app, ta.member, "people", created.ID)
	require.Equal(t, http.StatusOK, statusCode)
	views := helpers.Decode[struct {
		Entries []struct {
			Action string `json:"action"`
			Who    struct {
				Name string `json:"name"`
			} `json:"who"`
			Diff []editlogs.FieldChange `json:"diff"`
		} `json:"entries"`
	}](t, body).Entries

	require.Len(t, views, 3)
	require.Equal(t, "delete", views[0].Action)
	require.Equal(t, "update", views[1].Action)
	require.Equal(t, "Member", views[1].Who.Name)
	require.Contains(t, views[1].Diff, editlogs.FieldChange{Path: "name", ValueBefore: "Byron", ValueAfter: "Lovelace", EditType: editlogs.EditUpdate})
	require.Equal(t, "create", views[2].Action)
	for _, change := range views[2].Diff {
		require.NotEqual(t, "birthDate", change.Path)
	}
}

func TestValidationErrorResponse(t *testing.T) {
	ta := newTestApp(t)

	body, statusCode := helpers.API_CreateEntity(t, ta.app, ta.admin, "people", map[string]any{
		"firstName": "Ada",
		"name":      "Lovelace",
		"gender":    "x",
	})
	require.Equal(t, http.StatusBadRequest, statusCode)

	payload := helpers.Decode[struct {
		Message string              `json:"message"`
		Errors  []errmsg.FieldError `json:"errors"`
	}](t, body)
	require.Len(t, payload.Errors, 1)
	require.Equal(t, "gender", payload.Errors[0].Field)
	require.Equal(t, "genders", payload.Errors[0].Enum)
}

func TestSwaggerDoc(t *testing.T) {
	ta := newTestApp(t)

	body, statusCode := helpers.RequestRunner(t, ta.app, "GET", "/rim/docs/doc.json", nil, nil)
	require.Equal(t, http.StatusOK, statusCode)

	doc := helpers.Decode[struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}](t, body)
	require.Equal(t, "0.0.0-test", doc.Info.Version)
	require.Contains(t, doc.Paths, "/rim/entities/{model}")
}
