package http

import (
	"net/http"
	"strconv"

	"libraryapi/internal/entity"
	"libraryapi/internal/httpx"
	"libraryapi/internal/usecase"
)

type OrderHandler struct {
	lending *usecase.LendingUsecase
}

func NewOrderHandler(lending *usecase.LendingUsecase) *OrderHandler {
	return &OrderHandler{lending: lending}
}

type issueReq struct {
	UserID int64 `json:"user_id" validate:"gt=0"`
	BookID int64 `json:"book_id" validate:"gt=0"`
}

type returnReq struct {
	UserID int64 `json:"user_id" validate:"gt=0"`
}

// @Summary Issue a book
// @Tags orders
// @Accept json
// @Produce json
// @Param order body issueReq true "Issue request"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueReq
	if !decodeAndValidate(w, r, &req) {
		return
	}

	order, err := h.lending.Issue(r.Context(), req.UserID, req.BookID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, order)
}

// @Summary Return a book
// @Tags orders
// @Accept json
// @Produce json
// @Param order body returnReq true "Return request"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /orders/return [post]
func (h *OrderHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req returnReq
	if !decodeAndValidate(w, r, &req) {
		return
	}

	order, err := h.lending.Return(r.Context(), req.UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, order)
}

// List returns the audit trail, optionally filtered by ?user_id=. Results are
// paged with ?limit= and the opaque ?cursor= from the previous page's meta.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	var orders []entity.Order
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil || userID <= 0 {
			httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id must be a positive integer", nil)
			return
		}
		orders, err = h.lending.ListOrdersByUser(r.Context(), userID)
	} else {
		orders, err = h.lending.ListOrders(r.Context())
	}
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	total := len(orders)
	orders, next := paginateOrders(orders, p)
	if orders == nil {
		orders = []entity.Order{}
	}
	meta := map[string]any{"total": total, "limit": p.limit}
	if next != "" {
		meta["next_cursor"] = next
	}
	httpx.JSONSuccess(w, r, orders, meta)
}
