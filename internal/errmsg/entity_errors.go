package errmsg

import "net/http"

var (
	ModelNotExists = NewStatusError(
		http.StatusNotFound,
		"model does not exist",
	)
	EntityNotExists = NewStatusError(
		http.StatusNotFound,
		"entity does not exist",
	)
	EntityInvalidID = NewStatusError(
		http.StatusBadRequest,
		"entity id is not a valid object id",
	)
	EnumNotExists = NewStatusError(
		http.StatusNotFound,
		"enum does not exist",
	)
)

type _ModelNotExists struct {
	StatusCode int    `json:"statusCode" example:"404"`
	Message    string `json:"message" example:"model does not exist"`
}

type _EntityNotExists struct {
	StatusCode int    `json:"statusCode" example:"404"`
	Message    string `json:"message" example:"entity does not exist"`
}

type _EntityInvalidID struct {
	StatusCode int    `json:"statusCode" example:"400"`
	Message    string `json:"message" example:"entity id is not a valid object id"`
}

type _EnumNotExists struct {
	StatusCode int    `json:"statusCode" example:"404"`
	Message    string `json:"message" example:"enum does not exist"`
}
