package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/attest/pkg/handlers"
	"github.com/JaimeStill/attest/pkg/routes"
	"github.com/JaimeStill/attest/pkg/storage"
)

var errInvalidRunID = errors.New("invalid run id")

// reportsHandler serves archived validation reports by run id.
type reportsHandler struct {
	store   storage.System
	logger  *slog.Logger
	prefix  string
	maxSize int64
}

func newReportsHandler(store storage.System, logger *slog.Logger, prefix string, maxSize int64) *reportsHandler {
	return &reportsHandler{
		store:   store,
		logger:  logger.With("handler", "reports"),
		prefix:  prefix,
		maxSize: maxSize,
	}
}

func (h *reportsHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/reports",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{id}", Handler: h.find},
		},
	}
}

func (h *reportsHandler) find(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, storage.ErrNotConfigured)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidRunID)
		return
	}

	obj, err := h.store.Read(r.Context(), h.prefix+id.String()+".json", h.maxSize)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, json.RawMessage(obj.Data))
}
