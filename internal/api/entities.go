package api

import (
	"net/http"

	"rim/internal/auth"
	"rim/internal/entities"
	"rim/internal/errmsg"
	"rim/internal/permissions"
	"rim/internal/utils"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listEntitiesResponse struct {
	Items []map[string]any `json:"items"`
}

// present formats an instance for caller and attaches its opts envelope.
func (h *handlers) present(caller permissions.Caller, conf permissions.Confidentials, inst *entities.Instance) (map[string]any, error) {
	out, err := h.Formatter.Format(inst.Model, inst.Doc, conf)
	if err != nil {
		return nil, err
	}

	opts, err := h.Perms.Opts(caller, inst.Model, inst.Doc)
	if err != nil {
		return nil, err
	}
	out["opts"] = opts
	return out, nil
}

func entityID(c fiber.Ctx) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	return id, err == nil
}

func payload(c fiber.Ctx) (map[string]any, bool) {
	var body map[string]any
	if err := json.Unmarshal(c.Body(), &body); err != nil || body == nil {
		return nil, false
	}
	return body, true
}

// listEntitiesHandler returns a page of formatted records.
// @Summary List records
// @Tags Entities
// @Security BearerAuth
// @Produce json
// @Param model path string true "Model name"
// @Param skip query int false "Records to skip"
// @Param limit query int false "Page size (default 50)"
// @Success 200 {object} listEntitiesResponse
// @Failure 400 {object} errmsg._InvalidPayload
// @Failure 404 {object} errmsg._ModelNotExists
// @Router /rim/entities/{model} [get]
func (h *handlers) listEntitiesHandler(c fiber.Ctx) error {
	model := c.Params("model")
	caller := auth.CallerFrom(c)

	skip, limit, ok := pagination(c)
	if !ok {
		return utils.StatusError(c, errmsg.InvalidPagination)
	}

	conf, err := h.Perms.Confidentials(caller, model)
	if err != nil {
		return fail(c, err)
	}

	instances, err := h.Entities.List(c.Context(), model, skip, limit)
	if err != nil {
		return fail(c, err)
	}

	items := make([]map[string]any, 0, len(instances))
	for _, inst := range instances {
		out, err := h.present(caller, conf, inst)
		if err != nil {
			return fail(c, err)
		}
		items = append(items, out)
	}

	return c.JSON(listEntitiesResponse{Items: items})
}

// getEntityHandler returns one formatted record with its opts envelope.
// @Summary Get record
// @Tags Entities
// @Security BearerAuth
// @Produce json
// @Param model path string true "Model name"
// @Param id path string true "Record id"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errmsg._EntityInvalidID
// @Failure 404 {object} errmsg._EntityNotExists
// @Router /rim/entities/{model}/{id} [get]
func (h *handlers) getEntityHandler(c fiber.Ctx) error {
	model := c.Params("model")
	caller := auth.CallerFrom(c)

	id, ok := entityID(c)
	if !ok {
		return utils.StatusError(c, errmsg.EntityInvalidID)
	}

	conf, err := h.Perms.Confidentials(caller, model)
	if err != nil {
		return fail(c, err)
	}

	inst, err := h.Entities.Load(c.Context(), model, id)
	if err != nil {
		return fail(c, err)
	}

	out, err := h.present(caller, conf, inst)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// createEntityHandler validates and stores a new record.
// @Summary Create record
// @Tags Entities
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param model path string true "Model name"
// @Param payload body map[string]any true "Record fields, dotted keys allowed"
// @Success 201 {object} map[string]any
// @Failure 400 {object} errmsg._ValidationError
// @Failure 403 {object} errmsg._UserForbidden
// @Failure 404 {object} errmsg._ModelNotExists
// @Router /rim/entities/{model} [post]
func (h *handlers) createEntityHandler(c fiber.Ctx) error {
	model := c.Params("model")
	caller := auth.CallerFrom(c)

	body, ok := payload(c)
	if !ok {
		return utils.StatusError(c, errmsg.InvalidPayload)
	}

	conf, err := h.Perms.Confidentials(caller, model)
	if err != nil {
		return fail(c, err)
	}

	inst, err := h.Entities.Create(c.Context(), caller, model, body)
	if err != nil {
		return fail(c, err)
	}

	out, err := h.present(caller, conf, inst)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(out)
}

// updateEntityHandler merges the given top-level fields into a record.
// @Summary Update record
// @Description Top-level fields of the payload replace the stored ones; null removes a field.
// @Tags Entities
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param model path string true "Model name"
// @Param id path string true "Record id"
// @Param payload body map[string]any true "Fields to change"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errmsg._ValidationError
// @Failure 403 {object} errmsg._UserForbidden
// @Failure 404 {object} errmsg._EntityNotExists
// @Router /rim/entities/{model}/{id} [patch]
func (h *handlers) updateEntityHandler(c fiber.Ctx) error {
	model := c.Params("model")
	caller := auth.CallerFrom(c)

	id, ok := entityID(c)
	if !ok {
		return utils.StatusError(c, errmsg.EntityInvalidID)
	}

	body, ok := payload(c)
	if !ok {
		return utils.StatusError(c, errmsg.InvalidPayload)
	}

	conf, err := h.Perms.Confidentials(caller, model)
	if err != nil {
		return fail(c, err)
	}

	inst, err := h.Entities.Update(c.Context(), caller, model, id, body)
	if err != nil {
		return fail(c, err)
	}

	out, err := h.present(caller, conf, inst)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// deleteEntityHandler removes a record.
// @Summary Delete record
// @Tags Entities
// @Security BearerAuth
// @Param model path string true "Model name"
// @Param id path string true "Record id"
// @Success 204
// @Failure 403 {object} errmsg._UserForbidden
// @Failure 404 {object} errmsg._EntityNotExists
// @Router /rim/entities/{model}/{id} [delete]
func (h *handlers) deleteEntityHandler(c fiber.Ctx) error {
	id, ok := entityID(c)
	if !ok {
		return utils.StatusError(c, errmsg.EntityInvalidID)
	}

	if err := h.Entities.Delete(c.Context(), auth.CallerFrom(c), c.Params("model"), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}
