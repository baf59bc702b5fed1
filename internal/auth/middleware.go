package auth

import (
	"errors"
	"strings"

	"rim/internal/errmsg"
	"rim/internal/models"
	"rim/internal/permissions"
	"rim/internal/utils"

	"github.com/gofiber/fiber/v3"
)

const callerLocal = "caller"

// Middleware authenticates the request and stores the caller in locals.
// Browsers cannot set headers on websocket upgrades, so the token is also
// accepted as the authorization query parameter.
func Middleware(users Users) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := bearer(c.Get("Authorization"))
		if token == "" {
			token = strings.TrimSpace(c.Query("authorization"))
		}
		if token == "" {
			return utils.StatusError(c, errmsg.UserNoToken)
		}

		var u models.User
		if err := u.ParseToken(token); err != nil {
			return utils.StatusError(c, errmsg.UserInvalidToken)
		}

		user, err := users.ByID(c.Context(), u.ID)
		if errors.Is(err, ErrUserNotFound) {
			return utils.StatusError(c, errmsg.UserInvalidToken)
		}
		if err != nil {
			return utils.StatusError(c, errmsg.InternalServerError(err))
		}

		utils.SetLocals(c, callerLocal, user.Caller())

		return c.Next()
	}
}

func bearer(header string) string {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "Bearer") {
		return ""
	}

	tokens := strings.Fields(header)
	if len(tokens) != 2 {
		return ""
	}
	return tokens[1]
}

// CallerFrom returns the caller stored by Middleware.
func CallerFrom(c fiber.Ctx) permissions.Caller {
	var caller permissions.Caller
	utils.GetLocals(c, callerLocal, &caller)
	return caller
}
