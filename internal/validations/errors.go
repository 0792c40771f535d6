package validations

import (
	"context"
	"errors"
	"net/http"

	"github.com/JaimeStill/attest/internal/workflow"
	"github.com/JaimeStill/attest/pkg/rules"
	"github.com/JaimeStill/attest/pkg/storage"
)

// Domain errors for validation requests.
var (
	ErrInvalidRequest    = errors.New("invalid validation request")
	ErrInvalidFile       = errors.New("invalid file")
	ErrFileTooLarge      = errors.New("file exceeds maximum upload size")
	ErrAgentsUnavailable = errors.New("validation agents are not configured")
)

// MapHTTPStatus maps validation, workflow and storage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidFile),
		errors.Is(err, workflow.ErrEmptyDocument),
		errors.Is(err, workflow.ErrInvalidPerson),
		errors.Is(err, rules.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge), errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, workflow.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, workflow.ErrRenderFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrAgentsUnavailable):
		return http.StatusServiceUnavailable
	}

	if status := storage.MapHTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}

	var pe *workflow.PipelineError
	if errors.As(err, &pe) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
