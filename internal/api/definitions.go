package api

import (
	"rim/internal/auth"
	"rim/internal/errmsg"
	"rim/internal/utils"

	"github.com/gofiber/fiber/v3"
)

// getSchemaHandler returns the front schema of a model for the caller.
// @Summary Front schema
// @Description Compiled front schema, with confidential fields only when the caller may view them.
// @Tags Definitions
// @Security BearerAuth
// @Produce json
// @Param model path string true "Model name"
// @Success 200 {object} map[string]any
// @Failure 401 {object} errmsg._UserNoToken
// @Failure 404 {object} errmsg._ModelNotExists
// @Router /rim/schemas/{model} [get]
func (h *handlers) getSchemaHandler(c fiber.Ctx) error {
	model := c.Params("model")

	conf, err := h.Perms.Confidentials(auth.CallerFrom(c), model)
	if err != nil {
		return fail(c, err)
	}

	front, err := h.Schemas.CompileFront(model, conf.Viewable)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(front)
}

// getLayoutHandler returns the derived layout of a model for the caller.
// @Summary Layout
// @Tags Definitions
// @Security BearerAuth
// @Produce json
// @Param model path string true "Model name"
// @Success 200 {array} layouts.Row
// @Failure 404 {object} errmsg._ModelNotExists
// @Router /rim/layouts/{model} [get]
func (h *handlers) getLayoutHandler(c fiber.Ctx) error {
	model := c.Params("model")

	conf, err := h.Perms.Confidentials(auth.CallerFrom(c), model)
	if err != nil {
		return fail(c, err)
	}

	rows, err := h.Layouts.Derive(model, conf.Viewable)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(rows)
}

// getEnumHandler returns an enumeration table. Nested tables are returned
// whole, keyed by the value of the field they depend on.
// @Summary Enum values
// @Tags Definitions
// @Security BearerAuth
// @Produce json
// @Param name path string true "Enum name"
// @Success 200 {array} enums.Value
// @Failure 404 {object} errmsg._EnumNotExists
// @Router /rim/enums/{name} [get]
func (h *handlers) getEnumHandler(c fiber.Ctx) error {
	name := c.Params("name")
	if !h.Enums.Exists(name) {
		return utils.StatusError(c, errmsg.EnumNotExists)
	}

	if h.Enums.IsNested(name) {
		return c.JSON(h.Enums.NestedValues(name))
	}
	return c.JSON(h.Enums.Values(name))
}

// getNestedEnumHandler returns one bucket of a nested enumeration table.
// @Summary Nested enum bucket
// @Tags Definitions
// @Security BearerAuth
// @Produce json
// @Param name path string true "Enum name"
// @Param context path string true "Value of the field the enum depends on"
// @Success 200 {array} enums.Value
// @Failure 404 {object} errmsg._EnumNotExists
// @Router /rim/enums/{name}/{context} [get]
func (h *handlers) getNestedEnumHandler(c fiber.Ctx) error {
	name := c.Params("name")
	if !h.Enums.IsNested(name) {
		return utils.StatusError(c, errmsg.EnumNotExists)
	}

	values, ok := h.Enums.NestedValues(name)[c.Params("context")]
	if !ok {
		return utils.StatusError(c, errmsg.EnumNotExists)
	}
	return c.JSON(values)
}
