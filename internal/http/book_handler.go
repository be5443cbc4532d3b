package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"libraryapi/internal/httpx"
	"libraryapi/internal/usecase"
)

type BookHandler struct {
	catalog *usecase.CatalogUsecase
}

func NewBookHandler(catalog *usecase.CatalogUsecase) *BookHandler {
	return &BookHandler{catalog: catalog}
}

type createBookReq struct {
	Title  string `json:"title" validate:"notblank,max=255"`
	Author string `json:"author" validate:"max=255"`
}

type updateBookReq struct {
	Title    string `json:"title" validate:"notblank,max=255"`
	Author   string `json:"author" validate:"max=255"`
	Username string `json:"username"`
}

// @Summary Add book
// @Tags books
// @Accept json
// @Produce json
// @Param book body createBookReq true "Book"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /books [post]
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookReq
	if !decodeAndValidate(w, r, &req) {
		return
	}

	book, err := h.catalog.AddBook(r.Context(), strings.TrimSpace(req.Title), strings.TrimSpace(req.Author))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, book)
}

// @Summary List books
// @Tags books
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /books [get]
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.ListBooks(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, books, map[string]any{"total": len(books)})
}

// @Summary Get book by title
// @Tags books
// @Produce json
// @Param title path string true "Book title"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{title} [get]
func (h *BookHandler) GetByTitle(w http.ResponseWriter, r *http.Request) {
	book, err := h.catalog.GetBookByTitle(r.Context(), r.PathValue("title"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, book, nil)
}

func (h *BookHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	book, err := h.catalog.GetBookByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, book, nil)
}

// @Summary Replace book
// @Description Replaces title, author and holder. An empty username returns the book.
// @Tags books
// @Accept json
// @Produce json
// @Param title path string true "Current title"
// @Param book body updateBookReq true "Book"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /books/{title} [put]
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateBookReq
	if !decodeAndValidate(w, r, &req) {
		return
	}

	book, err := h.catalog.UpdateBook(r.Context(), r.PathValue("title"), usecase.BookUpdate{
		Title:  strings.TrimSpace(req.Title),
		Author: strings.TrimSpace(req.Author),
		Holder: strings.TrimSpace(req.Username),
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, book, nil)
}

func (h *BookHandler) DeleteByTitle(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteBookByTitle(r.Context(), r.PathValue("title")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

func (h *BookHandler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.catalog.DeleteBookByID(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

// decodeAndValidate writes a 400 and returns false when the body is not
// valid JSON or fails struct validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r.Body, dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			httpx.WriteError(w, r, err)
			return false
		}
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return false
	}
	if details := ValidateStruct(dst); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
