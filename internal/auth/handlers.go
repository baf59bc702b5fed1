package auth

import (
	"errors"
	"strings"

	"rim/internal/errmsg"
	"rim/internal/models"
	"rim/internal/utils"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"golang.org/x/crypto/bcrypt"
)

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type handlers struct {
	users Users
}

// loginHandler checks the credentials and returns a token with the user profile.
// @Summary Log in
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body loginBody true "Credentials"
// @Success 200 {object} loginResponse
// @Failure 400 {object} errmsg._UserInvalidPayload
// @Failure 401 {object} errmsg._UserWrongPassword
// @Failure 404 {object} errmsg._UserNotExists
// @Router /rim/auth/login [post]
func (h *handlers) loginHandler(c fiber.Ctx) error {
	var body loginBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return utils.StatusError(c, errmsg.UserInvalidPayload)
	}

	body.Username = strings.TrimSpace(body.Username)
	body.Password = strings.TrimSpace(body.Password)
	if body.Username == "" || body.Password == "" {
		return utils.StatusError(c, errmsg.UserInvalidPayload)
	}

	u, err := h.users.ByUsername(c.Context(), body.Username)
	if errors.Is(err, ErrUserNotFound) {
		return utils.StatusError(c, errmsg.UserNotExists)
	}
	if err != nil {
		return utils.StatusError(c, errmsg.InternalServerError(err))
	}

	if bcrypt.CompareHashAndPassword(
		[]byte(u.Password),
		[]byte(body.Password),
	) != nil {
		return utils.StatusError(c, errmsg.UserWrongPassword)
	}

	token := u.GenToken()

	u.Password = ""

	return c.JSON(loginResponse{
		Token: token,
		User:  u,
	})
}

// meHandler returns the authenticated caller.
// @Summary Current caller
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} permissions.Caller
// @Failure 401 {object} errmsg._UserNoToken
// @Router /rim/auth/me [get]
func (h *handlers) meHandler(c fiber.Ctx) error {
	return c.JSON(CallerFrom(c))
}
