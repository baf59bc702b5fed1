package errmsg

import "net/http"

func InternalServerError(err error) StatusError {
	return NewStatusError(
		http.StatusInternalServerError,
		"internal server error: "+err.Error(),
	)
}

var (
	InvalidPayload = NewStatusError(
		http.StatusBadRequest,
		"request body is not valid json",
	)
	InvalidPagination = NewStatusError(
		http.StatusBadRequest,
		"skip and limit must be non-negative integers",
	)
)

type _InvalidPayload struct {
	StatusCode int    `json:"statusCode" example:"400"`
	Message    string `json:"message" example:"request body is not valid json"`
}

type _InternalServerError struct {
	StatusCode int    `json:"statusCode" example:"500"`
	Message    string `json:"message" example:"internal server error: ..."`
}
