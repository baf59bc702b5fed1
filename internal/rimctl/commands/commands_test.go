package commands

import (
	"bytes"
	"testing"

	"rim/internal/permissions"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSchemaCommand(t *testing.T) {
	out, err := run(t, "schema", "people", "--definitions", "../../../definitions")
	require.NoError(t, err)

	var front map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &front))
	require.Contains(t, front, "name")
	require.NotContains(t, front, "birthDate")

	out, err = run(t, "schema", "people", "--confidential", "--definitions", "../../../definitions")
	require.NoError(t, err)
	require.Contains(t, out, `"birthDate"`)
}

func TestLayoutCommand(t *testing.T) {
	out, err := run(t, "layout", "people", "--definitions", "../../../definitions")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.NotEmpty(t, rows)
}

func TestUnknownModel(t *testing.T) {
	_, err := run(t, "schema", "nope", "--definitions", "../../../definitions")
	require.Error(t, err)
}

func TestBuildUser(t *testing.T) {
	u, err := buildUser(" ada ", "", "secret", permissions.CentralReader, []string{"5f0000000000000000000001=member"})
	require.NoError(t, err)
	require.Equal(t, "ada", u.Username)
	require.Equal(t, "ada", u.Name)
	require.Equal(t, map[string]string{"5f0000000000000000000001": permissions.OrganizationMember}, u.OrganizationRoles)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("secret")))

	_, err = buildUser("ada", "", "", "", nil)
	require.Error(t, err)

	_, err = buildUser("ada", "", "secret", "owner", nil)
	require.Error(t, err)

	_, err = buildUser("ada", "", "secret", "", []string{"lab"})
	require.Error(t, err)

	_, err = buildUser("ada", "", "secret", "", []string{"lab=owner"})
	require.Error(t, err)
}
