package errmsg

import "net/http"

var (
	UserNotExists = NewStatusError(
		http.StatusNotFound,
		"user does not exist",
	)
	UserNoToken = NewStatusError(
		http.StatusUnauthorized,
		"no token has been provided",
	)
	UserInvalidToken = NewStatusError(
		http.StatusUnauthorized,
		"token is invalid or expired",
	)
	UserWrongPassword = NewStatusError(
		http.StatusUnauthorized,
		"username or password is incorrect",
	)
	UserInvalidPayload = NewStatusError(
		http.StatusBadRequest,
		"username and password must be provided",
	)
	UserForbidden = NewStatusError(
		http.StatusForbidden,
		"you are not allowed to edit this record",
	)
)

type _UserNotExists struct {
	StatusCode int    `json:"statusCode" example:"404"`
	Message    string `json:"message" example:"user does not exist"`
}

type _UserNoToken struct {
	StatusCode int    `json:"statusCode" example:"401"`
	Message    string `json:"message" example:"no token has been provided"`
}

type _UserWrongPassword struct {
	StatusCode int    `json:"statusCode" example:"401"`
	Message    string `json:"message" example:"username or password is incorrect"`
}

type _UserInvalidPayload struct {
	StatusCode int    `json:"statusCode" example:"400"`
	Message    string `json:"message" example:"username and password must be provided"`
}

type _UserForbidden struct {
	StatusCode int    `json:"statusCode" example:"403"`
	Message    string `json:"message" example:"you are not allowed to edit this record"`
}
