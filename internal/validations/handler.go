package validations

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/attest/internal/workflow"
	"github.com/JaimeStill/attest/pkg/formatting"
	"github.com/JaimeStill/attest/pkg/handlers"
	"github.com/JaimeStill/attest/pkg/routes"
)

// Handler provides HTTP endpoints for validation operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, logger, and upload size limit.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "validations"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for validation endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/validations", Handler: h.Validate},
			{Method: "POST", Pattern: "/validations/stored", Handler: h.ValidateStored},
			{Method: "POST", Pattern: "/marks", Handler: h.Marks},
		},
	}
}

// Validate processes a multipart upload with a file, the asserted person
// and an optional reference date and organization.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	doc, err := h.readDocument(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	reference, err := parseReferenceDate(r.FormValue("reference_date"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	doc.ReferenceDate = reference
	doc.Organization = strings.TrimSpace(r.FormValue("organization"))

	result, err := h.sys.Validate(r.Context(), ValidateCommand{
		Document: doc,
		Person:   r.FormValue("person"),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// ValidateStored accepts a JSON body naming a blob key and validates the stored document.
func (h *Handler) ValidateStored(w http.ResponseWriter, r *http.Request) {
	var cmd StoredCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	result, err := h.sys.ValidateStored(r.Context(), cmd)
	if err != nil {
		h.respondError(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Marks runs mark detection only over an uploaded document.
func (h *Handler) Marks(w http.ResponseWriter, r *http.Request) {
	doc, err := h.readDocument(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	report, err := h.sys.DetectMarks(r.Context(), doc)
	if err != nil {
		h.respondError(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// respondError renders pipeline errors with the failed stages and the unit
// verdicts gathered before the failure; other errors render as {"error": msg}.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := MapHTTPStatus(err)

	var pe *workflow.PipelineError
	if errors.As(err, &pe) {
		h.logger.Error("validation run failed", "status", status, "run_id", pe.RunID, "error", err)
		handlers.RespondJSON(w, status, NewFailure(pe))
		return
	}

	handlers.RespondError(w, h.logger, status, err)
}

func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) (workflow.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return workflow.Document{}, fmt.Errorf("%w: limit is %s", ErrFileTooLarge, formatting.FormatBytes(tooLarge.Limit))
		}
		return workflow.Document{}, ErrInvalidRequest
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return workflow.Document{}, ErrInvalidFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return workflow.Document{}, ErrInvalidFile
	}

	doc := workflow.Document{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}

	if workflow.ContentType(doc) == "application/pdf" {
		count, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			h.logger.Warn("unreadable pdf upload", "filename", header.Filename, "error", err)
			return workflow.Document{}, ErrInvalidFile
		}
		h.logger.Info("pdf upload received", "filename", header.Filename, "pages", count)
	}

	return doc, nil
}
