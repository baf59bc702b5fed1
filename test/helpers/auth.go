package helpers

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
)

func API_Login(
	t *testing.T,
	app *fiber.App,
	username string,
	password string,
) (bodyBytes []byte, statusCode int) {
	// payload for login request
	payload := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{
		Username: username,
		Password: password,
	}

	// marshalling the payload into JSON
	sendBytes, err := json.Marshal(payload)
	require.NoError(t, err)

	return RequestRunner(t, app,
		"POST",
		"/rim/auth/login",
		sendBytes,
		nil,
	)
}

// Token logs in and returns the bearer token, failing the test otherwise.
func Token(t *testing.T, app *fiber.App, username string, password string) string {
	t.Helper()

	body, statusCode := API_Login(t, app, username, password)
	require.Equal(t, 200, statusCode, string(body))

	return Decode[struct {
		Token string `json:"token"`
	}](t, body).Token
}

func API_Me(
	t *testing.T,
	app *fiber.App,
	token *string,
) (bodyBytes []byte, statusCode int) {
	return RequestRunner(t, app,
		"GET",
		"/rim/auth/me",
		nil,
		token,
	)
}
