package http

import (
	"fmt"
	"net/http"
	"testing"

	"libraryapi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_Create(t *testing.T) {
	lib := testutil.NewLibrary()
	lib.MustAddUser(t, "alice")
	router := newTestRouter(lib)

	tests := []struct {
		name           string
		body           any
		expectedStatus int
	}{
		{
			name:           "success - valid registration",
			body:           map[string]string{"username": "bob", "password": "hunter2"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - invalid JSON",
			body:           "invalid json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - missing password",
			body:           map[string]string{"username": "carol"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "conflict - username already exists",
			body:           map[string]string{"username": "alice", "password": "pw"},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(router, testutil.NewRequest(http.MethodPost, "/users", tt.body))
			assert.Equal(t, tt.expectedStatus, resp.Code)
		})
	}
}

func TestUserHandler_CreateHidesPassword(t *testing.T) {
	router := newTestRouter(testutil.NewLibrary())

	resp := serve(router, testutil.NewRequest(http.MethodPost, "/users",
		map[string]string{"username": "bob", "password": "hunter2"}))

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "USER", resp.Data()["role"])
	assert.NotContains(t, resp.Data(), "password")
}

func TestUserHandler_GetShowsIssuedBook(t *testing.T) {
	lib := testutil.NewLibrary()
	book := lib.MustAddBook(t, "Dune", "Frank Herbert")
	user := lib.MustAddUser(t, "alice")
	lib.MustIssue(t, user.ID, book.ID)
	router := newTestRouter(lib)

	resp := serve(router, testutil.NewRequest(http.MethodGet, "/users/alice", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Dune", resp.Data()["issued_book"])

	resp = serve(router, testutil.NewRequest(http.MethodGet, "/users/nobody", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = serve(router, testutil.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	data, _ := resp.Body["data"].([]any)
	assert.Len(t, data, 1)
}

func TestUserHandler_GetByID(t *testing.T) {
	lib := testutil.NewLibrary()
	book := lib.MustAddBook(t, "Dune", "Frank Herbert")
	user := lib.MustAddUser(t, "alice")
	lib.MustIssue(t, user.ID, book.ID)
	router := newTestRouter(lib)

	resp := serve(router, testutil.NewRequest(http.MethodGet, fmt.Sprintf("/users/id/%d", user.ID), nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "alice", resp.Data()["username"])
	assert.Equal(t, "Dune", resp.Data()["issued_book"])

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"not found", "/users/id/999", http.StatusNotFound},
		{"zero id", "/users/id/0", http.StatusBadRequest},
		{"not a number", "/users/id/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(router, testutil.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.expectedStatus, resp.Code)
		})
	}
}

func TestUserHandler_UpdateByAdmin(t *testing.T) {
	lib := testutil.NewLibrary()
	lib.MustAddUser(t, "alice")
	lib.MustAddUser(t, "bob")
	router := newTestRouter(lib)

	tests := []struct {
		name           string
		path           string
		body           map[string]string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "missing user wins over bad role",
			path:           "/users/nobody/admin",
			body:           map[string]string{"username": "nobody", "role": "LIBRARIAN"},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name:           "taken username wins over bad role",
			path:           "/users/alice/admin",
			body:           map[string]string{"username": "bob", "role": "LIBRARIAN"},
			expectedStatus: http.StatusConflict,
			expectedCode:   "ALREADY_EXISTS",
		},
		{
			name:           "bad role",
			path:           "/users/alice/admin",
			body:           map[string]string{"username": "alice", "role": "LIBRARIAN"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "promote and rename",
			path:           "/users/alice/admin",
			body:           map[string]string{"username": "alicia", "role": "ADMIN"},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(router, testutil.NewRequest(http.MethodPatch, tt.path, tt.body))
			assert.Equal(t, tt.expectedStatus, resp.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, resp.ErrorCode())
			}
		})
	}

	u, err := lib.Patron.GetUserByUsername(t.Context(), "alicia")
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", string(u.Role))
}

func TestUserHandler_UpdateBySelf(t *testing.T) {
	lib := testutil.NewLibrary()
	lib.MustAddUser(t, "alice")
	router := newTestRouter(lib)

	resp := serve(router, testutil.NewRequest(http.MethodPatch, "/users/alice",
		map[string]string{"username": "alice2", "password": "newpass"}))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "alice2", resp.Data()["username"])

	resp = serve(router, testutil.NewRequest(http.MethodPatch, "/users/alice",
		map[string]string{"username": "alice3", "password": "newpass"}))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUserHandler_DeleteReleasesBook(t *testing.T) {
	lib := testutil.NewLibrary()
	book := lib.MustAddBook(t, "Dune", "Frank Herbert")
	user := lib.MustAddUser(t, "alice")
	lib.MustIssue(t, user.ID, book.ID)
	router := newTestRouter(lib)

	resp := serve(router, testutil.NewRequest(http.MethodDelete, "/users/alice", nil))
	require.Equal(t, http.StatusNoContent, resp.Code)
	lib.CheckConsistency(t)

	resp = serve(router, testutil.NewRequest(http.MethodGet, "/books/Dune", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, false, resp.Data()["is_issued"])

	resp = serve(router, testutil.NewRequest(http.MethodDelete, "/users/alice", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
