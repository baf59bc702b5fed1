// Package api exposes the engine over HTTP: compiled definitions, formatted
// entity reads, minimal mutations and the edit-log trail.
package api

import (
	"errors"
	"strconv"

	"rim/internal/auth"
	"rim/internal/editlogs"
	"rim/internal/entities"
	"rim/internal/enums"
	"rim/internal/errmsg"
	"rim/internal/format"
	"rim/internal/layouts"
	"rim/internal/permissions"
	"rim/internal/schema"
	"rim/internal/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

// Deps are the services the handlers work with.
type Deps struct {
	Schemas   *schema.Registry
	Enums     *enums.Registry
	Layouts   *layouts.Deriver
	Perms     *permissions.Filter
	Formatter *format.Formatter
	Entities  *entities.Store
	EditLogs  *editlogs.Engine
	Hub       *editlogs.Hub
	Users     auth.Users
	Log       zerolog.Logger
}

type handlers struct {
	*Deps
}

func Routes(app fiber.Router, d *Deps) {
	h := &handlers{Deps: d}
	secured := auth.Middleware(d.Users)

	definitions := app.Group("", secured)
	definitions.Get("/schemas/:model", h.getSchemaHandler)
	definitions.Get("/layouts/:model", h.getLayoutHandler)
	definitions.Get("/enums/:name", h.getEnumHandler)
	definitions.Get("/enums/:name/:context", h.getNestedEnumHandler)

	records := app.Group("/entities", secured)
	records.Get("/:model", h.listEntitiesHandler)
	records.Post("/:model", h.createEntityHandler)
	records.Get("/:model/:id", h.getEntityHandler)
	records.Patch("/:model/:id", h.updateEntityHandler)
	records.Delete("/:model/:id", h.deleteEntityHandler)

	logs := app.Group("/editlogs", secured)
	logs.Get("/:model", h.listEditLogsHandler)
	logs.Get("/:model/:id", h.listEditLogsHandler)

	app.Get("/ws/editlogs/:model", secured, h.streamEditLogsHandler)
}

// fail maps engine errors onto the status catalogue.
func fail(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, schema.ErrUnknownEntity):
		return utils.StatusError(c, errmsg.ModelNotExists)
	case errors.Is(err, entities.ErrNotFound):
		return utils.StatusError(c, errmsg.EntityNotExists)
	case errors.Is(err, entities.ErrForbidden):
		return utils.StatusError(c, errmsg.UserForbidden)
	case errors.Is(err, errmsg.ErrValidation):
		return utils.ValidationError(c, err)
	default:
		return utils.StatusError(c, errmsg.InternalServerError(err))
	}
}

func pagination(c fiber.Ctx) (skip, limit int64, ok bool) {
	parse := func(key string, def int64) (int64, bool) {
		raw := c.Query(key)
		if raw == "" {
			return def, true
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		return n, err == nil && n >= 0
	}

	skip, okSkip := parse("skip", 0)
	limit, okLimit := parse("limit", 50)
	return skip, limit, okSkip && okLimit
}
