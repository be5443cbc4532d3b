package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"libraryapi/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"not found", fmt.Errorf("book 7: %w", usecase.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"no book to return", usecase.ErrNoBookToReturn, http.StatusNotFound, "NOT_FOUND"},
		{"conflict", usecase.ErrConflict, http.StatusConflict, "ALREADY_EXISTS"},
		{"book issued", usecase.ErrBookAlreadyIssued, http.StatusBadRequest, "INVALID_STATE"},
		{"user holds book", usecase.ErrUserHoldsBook, http.StatusBadRequest, "INVALID_STATE"},
		{"invalid role", usecase.ErrInvalidRole, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"store down", usecase.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantCode, w.Code)

			var body ErrorResponse
			require.NoError(t, DecodeJSON(w.Body, &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantBody, body.Error.Code)
		})
	}
}

func TestWriteError_HidesInternalText(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("password=hunter2"))
	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestJSONSuccess_IncludesRequestID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(ContextWithRequestID(r.Context(), "abc"))
	w := httptest.NewRecorder()

	JSONSuccess(w, r, map[string]string{"k": "v"}, nil)

	var body SuccessResponse
	require.NoError(t, DecodeJSON(w.Body, &body))
	assert.True(t, body.Success)
	assert.Equal(t, map[string]any{"request_id": "abc"}, body.Meta)
}
