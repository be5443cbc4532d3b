package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"libraryapi/internal/entity"
	"libraryapi/internal/store/mocks"
	"libraryapi/internal/testutil"
	"libraryapi/internal/usecase"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(lib *testutil.Library) http.Handler {
	return NewRouter(lib.Store, lib.Catalog, lib.Patron, lib.Lending)
}

func serve(h http.Handler, r *http.Request) testutil.RecordResponse {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return testutil.RecordHTTPResponse(w)
}

func TestBookHandler_Create(t *testing.T) {
	lib := testutil.NewLibrary()
	lib.MustAddBook(t, "Dune", "Frank Herbert")
	router := newTestRouter(lib)

	tests := []struct {
		name           string
		body           any
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "success",
			body:           map[string]string{"title": "Emma", "author": "Jane Austen"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - invalid JSON",
			body:           "invalid json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:           "bad request - blank title",
			body:           map[string]string{"title": "  ", "author": "x"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "conflict - duplicate title",
			body:           map[string]string{"title": "Dune", "author": "someone else"},
			expectedStatus: http.StatusConflict,
			expectedCode:   "ALREADY_EXISTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(router, testutil.NewRequest(http.MethodPost, "/books", tt.body))

			assert.Equal(t, tt.expectedStatus, resp.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, resp.ErrorCode())
			}
		})
	}
}

func TestBookHandler_GetAndList(t *testing.T) {
	lib := testutil.NewLibrary()
	book := lib.MustAddBook(t, "Dune", "Frank Herbert")
	user := lib.MustAddUser(t, "alice")
	lib.MustIssue(t, user.ID, book.ID)
	router := newTestRouter(lib)

	t.Run("by title shows holder", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodGet, "/books/Dune", nil))
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Dune", resp.Data()["title"])
		assert.Equal(t, true, resp.Data()["is_issued"])
		assert.Equal(t, "alice", resp.Data()["username"])
	})

	t.Run("title with spaces", func(t *testing.T) {
		lib.MustAddBook(t, "War and Peace", "Leo Tolstoy")
		resp := serve(router, testutil.NewRequest(http.MethodGet, "/books/War%20and%20Peace", nil))
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("by id", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodGet, fmt.Sprintf("/books/id/%d", book.ID), nil))
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Dune", resp.Data()["title"])
	})

	t.Run("bad id", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodGet, "/books/id/abc", nil))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("missing title", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodGet, "/books/Missing", nil))
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "NOT_FOUND", resp.ErrorCode())
	})

	t.Run("list", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodGet, "/books", nil))
		require.Equal(t, http.StatusOK, resp.Code)
		data, _ := resp.Body["data"].([]any)
		assert.Len(t, data, 2)
	})
}

func TestBookHandler_Update(t *testing.T) {
	lib := testutil.NewLibrary()
	lib.MustAddBook(t, "Dune", "Frank Herbert")
	other := lib.MustAddBook(t, "Emma", "Jane Austen")
	alice := lib.MustAddUser(t, "alice")
	bob := lib.MustAddUser(t, "bob")
	lib.MustIssue(t, bob.ID, other.ID)
	router := newTestRouter(lib)

	t.Run("assign holder", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodPut, "/books/Dune",
			map[string]string{"title": "Dune", "author": "Frank Herbert", "username": "alice"}))
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "alice", resp.Data()["username"])
		lib.CheckConsistency(t)
	})

	t.Run("holder already holds another book", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodPut, "/books/Dune",
			map[string]string{"title": "Dune", "author": "Frank Herbert", "username": "bob"}))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "INVALID_STATE", resp.ErrorCode())
	})

	t.Run("unknown holder", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodPut, "/books/Dune",
			map[string]string{"title": "Dune", "username": "nobody"}))
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("rename onto existing title", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodPut, "/books/Dune",
			map[string]string{"title": "Emma"}))
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("clear holder", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodPut, "/books/Dune",
			map[string]string{"title": "Dune II", "author": "Frank Herbert"}))
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, false, resp.Data()["is_issued"])
		assert.Nil(t, resp.Data()["username"])
		lib.CheckConsistency(t)

		u, err := lib.Patron.GetUserByID(t.Context(), alice.ID)
		require.NoError(t, err)
		assert.Nil(t, u.HeldBookID)
	})
}

func TestBookHandler_Delete(t *testing.T) {
	lib := testutil.NewLibrary()
	book := lib.MustAddBook(t, "Dune", "Frank Herbert")
	lib.MustAddBook(t, "Emma", "Jane Austen")
	user := lib.MustAddUser(t, "alice")
	lib.MustIssue(t, user.ID, book.ID)
	router := newTestRouter(lib)

	resp := serve(router, testutil.NewRequest(http.MethodDelete, fmt.Sprintf("/books/id/%d", book.ID), nil))
	assert.Equal(t, http.StatusNoContent, resp.Code)
	lib.CheckConsistency(t)

	resp = serve(router, testutil.NewRequest(http.MethodDelete, "/books/Emma", nil))
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = serve(router, testutil.NewRequest(http.MethodDelete, "/books/Emma", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestBookHandler_StoreUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockStore := mocks.NewMockStore(ctrl)

	mockStore.EXPECT().
		ListBooks(gomock.Any()).
		Return(nil, fmt.Errorf("%w: connection refused", usecase.ErrStoreUnavailable))

	lending := usecase.NewLendingUsecase(mockStore, testutil.DiscardLogger())
	handler := NewBookHandler(usecase.NewCatalogUsecase(mockStore, lending))

	w := httptest.NewRecorder()
	handler.List(w, testutil.NewRequest(http.MethodGet, "/books", nil))

	resp := testutil.RecordHTTPResponse(w)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", resp.ErrorCode())
}

func TestBookHandler_GetByTitle_Mocked(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockStore := mocks.NewMockStore(ctrl)

	mockStore.EXPECT().
		GetBookByTitle(gomock.Any(), "Dune").
		Return(entity.Book{ID: 1, Title: "Dune", Author: "Frank Herbert"}, nil)

	lending := usecase.NewLendingUsecase(mockStore, testutil.DiscardLogger())
	router := NewRouter(mockStore, usecase.NewCatalogUsecase(mockStore, lending), nil, lending)

	resp := serve(router, testutil.NewRequest(http.MethodGet, "/books/Dune", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Frank Herbert", resp.Data()["author"])
}
