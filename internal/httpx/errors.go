package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"libraryapi/internal/usecase"
)

// WriteError maps a use-case error onto a status code and error envelope.
// Unrecognised errors are logged and reported as INTERNAL_ERROR without
// leaking their text.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		JSONError(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, usecase.ErrConflict):
		JSONError(w, r, http.StatusConflict, "ALREADY_EXISTS", err.Error(), nil)
	case errors.Is(err, usecase.ErrInvalidState):
		JSONError(w, r, http.StatusBadRequest, "INVALID_STATE", err.Error(), nil)
	case errors.Is(err, usecase.ErrInvalidInput):
		JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, usecase.ErrStoreUnavailable):
		slog.WarnContext(r.Context(), "store unavailable", "request_id", RequestIDFrom(r), "error", err)
		JSONError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage is temporarily unavailable", nil)
	case errors.As(err, &maxBytesErr):
		JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
	default:
		slog.ErrorContext(r.Context(), "request failed", "request_id", RequestIDFrom(r), "error", err)
		JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
