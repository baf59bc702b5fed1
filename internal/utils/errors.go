package utils

import (
	"errors"
	"net/http"

	"rim/internal/errmsg"

	"github.com/gofiber/fiber/v3"
)

func Error(c fiber.Ctx, statusCode int, err error) error {
	return c.Status(statusCode).JSON(map[string]string{
		"message": err.Error(),
	})
}

func StatusError(c fiber.Ctx, se errmsg.StatusError) error {
	return c.Status(se.StatusCode).JSON(map[string]string{
		"message": se.Message,
	})
}

// ValidationError renders the rejected fields next to the message.
func ValidationError(c fiber.Ctx, err error) error {
	var verr *errmsg.ValidationError
	if !errors.As(err, &verr) {
		return StatusError(c, errmsg.InternalServerError(err))
	}

	return c.Status(http.StatusBadRequest).JSON(map[string]any{
		"message": verr.Error(),
		"errors":  verr.Errors,
	})
}
