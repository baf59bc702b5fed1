package api

import (
	"context"

	"rim/internal/auth"
	"rim/internal/editlogs"
	"rim/internal/errmsg"
	"rim/internal/permissions"
	"rim/internal/utils"
	"rim/internal/ws"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listEditLogsResponse struct {
	Entries []editlogs.View `json:"entries"`
}

// listEditLogsHandler returns the edit history of a model or of one record.
// @Summary Edit history
// @Description Most recent first. Changes below confidential paths are removed for callers without viewing rights.
// @Tags Edit Logs
// @Security BearerAuth
// @Produce json
// @Param model path string true "Model name"
// @Param id path string false "Record id"
// @Param skip query int false "Entries to skip"
// @Param limit query int false "Page size (default 50)"
// @Success 200 {object} listEditLogsResponse
// @Failure 400 {object} errmsg._EntityInvalidID
// @Failure 404 {object} errmsg._ModelNotExists
// @Router /rim/editlogs/{model}/{id} [get]
func (h *handlers) listEditLogsHandler(c fiber.Ctx) error {
	model := c.Params("model")

	skip, limit, ok := pagination(c)
	if !ok {
		return utils.StatusError(c, errmsg.InvalidPagination)
	}

	q := editlogs.Query{Model: model, Skip: skip, Limit: limit}
	if raw := c.Params("id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return utils.StatusError(c, errmsg.EntityInvalidID)
		}
		q.Item = &id
	}

	conf, err := h.Perms.Confidentials(auth.CallerFrom(c), model)
	if err != nil {
		return fail(c, err)
	}

	views, err := h.EditLogs.List(c.Context(), q, conf)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(listEditLogsResponse{Entries: views})
}

// streamEditLogsHandler pushes new entries of a model over a websocket.
// @Summary Live edit history
// @Description Upgrades to a websocket; the token may be passed as the authorization query parameter.
// @Tags Edit Logs
// @Security BearerAuth
// @Param model path string true "Model name"
// @Param authorization query string false "Bearer token for browsers"
// @Success 101
// @Failure 404 {object} errmsg._ModelNotExists
// @Router /rim/ws/editlogs/{model} [get]
func (h *handlers) streamEditLogsHandler(c fiber.Ctx) error {
	model := c.Params("model")

	conf, err := h.Perms.Confidentials(auth.CallerFrom(c), model)
	if err != nil {
		return fail(c, err)
	}

	return ws.StreamWebSocket(c, func(ctx context.Context, stream *ws.Stream) error {
		entries, release := h.Hub.Subscribe(model)
		defer release()

		stream.WriteStatus("info", "listening for "+model+" edits")
		return relayEntries(ctx, entries, conf, stream.Send)
	})
}

// relayEntries reshapes every entry for conf and sends it until ctx ends or
// the subscription closes.
func relayEntries(ctx context.Context, entries <-chan editlogs.Entry, conf permissions.Confidentials, send func(kind string, data any) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			if err := send("entry", editlogs.Reshape(entry, conf)); err != nil {
				return err
			}
		}
	}
}
