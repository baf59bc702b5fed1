package helpers

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
)

func API_GetSchema(
	t *testing.T,
	app *fiber.App,
	token string,
	model string,
) (bodyBytes []byte, statusCode int) {
	return RequestRunner(t, app,
		"GET",
		"/rim/schemas/"+model,
		nil,
		&token,
	)
}

func API_GetLayout(
	t *testing.T,
	app *fiber.App,
	token string,
	model string,
) (bodyBytes []byte, statusCode int) {
	return RequestRunner(t, app,
		"GET",
		"/rim/layouts/"+model,
		nil,
		&token,
	)
}

func API_GetEnum(
	t *testing.T,
	app *fiber.App,
	token string,
	path string,
) (bodyBytes []byte, statusCode int) {
	return RequestRunner(t, app,
		"GET",
		"/rim/enums/"+path,
		nil,
		&token,
	)
}

func API_CreateEntity(
	t *testing.T,
	app *fiber.App,
	token string,
	model string,
	payload map[string]any,
) (bodyBytes []byte, statusCode int) {
	sendBytes, err := json.Marshal(payload)
	require.NoError(t, err)

	return RequestRunner(t, app,
		"POST",
		"/rim/entities/"+model,
		sendBytes,
		&token,
	)
}

func API_GetEntity(
	t *testing.T,
	app *fiber.App,
	token string,
	model string,
	id string,
) (bodyBytes []byte, statusCode int) {
	return RequestRunner(t, app,
		"GET",
		"/rim/entities/"+model+"/"+id,
		nil,
		&token,
	)
}

func API_ListEntities(
	t *testing.T,
	app *fiber.App,
	token string,
	model string,
	query string,
) (bodyBytes []byte, statusCode int) {
	return RequestRunner(t, app,
		"GET",
		"/rim/entities/"+model+query,
		nil,
		&token,
	)
}

func API_UpdateEntity(
	t *testing.T,
	app *fiber.App,
	token string,
	model string,
	id string,
	payload map[string]any,
) (bodyBytes []byte, statusCode int) {
	sendBytes, err := json.Marshal(payload)
	require.NoError(t, err)

	return RequestRunner(t, app,
		"PATCH",
		"/rim/entities/"+model+"/"+id,
		sendBytes,
		&token,
	)
}

func API_DeleteEntity(
	t *testing.T,
	app *fiber.App,
	token string,
	model string,
	id string,
) (bodyBytes []byte, statusCode int) {
	return RequestRunner(t, app,
		"DELETE",
		"/rim/entities/"+model+"/"+id,
		nil,
		&token,
	)
}

func API_ListEditLogs(
	t *testing.T,
	app *fiber.App,
	token string,
	model string,
	id string,
) (bodyBytes []byte, statusCode int) {
	path := "/rim/editlogs/" + model
	if id != "" {
		path += "/" + id
	}

	return RequestRunner(t, app,
		"GET",
		path,
		nil,
		&token,
	)
}
