package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/client-registry/internal/domain"
)

const internalErrorMessage = "An unexpected error occurred. Please try again."

// statusFor maps a service error to its HTTP status by error kind.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err as a failure envelope. Server-side failures
// are logged and replaced with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(op, "error", err, "method", r.Method, "path", r.URL.Path)
		writeError(w, status, internalErrorMessage)
		return
	}
	writeError(w, status, err.Error())
}
