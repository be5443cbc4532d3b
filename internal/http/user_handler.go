package http

import (
	"net/http"
	"strings"

	"libraryapi/internal/entity"
	"libraryapi/internal/httpx"
	"libraryapi/internal/usecase"
)

type UserHandler struct {
	patron *usecase.PatronUsecase
}

func NewUserHandler(patron *usecase.PatronUsecase) *UserHandler {
	return &UserHandler{patron: patron}
}

type createUserReq struct {
	Username string `json:"username" validate:"notblank,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

type adminUpdateUserReq struct {
	Username string `json:"username" validate:"notblank,max=50"`
	Role     string `json:"role" validate:"required"`
}

type selfUpdateUserReq struct {
	Username string `json:"username" validate:"notblank,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

// @Summary Register user
// @Description Creates a user with the USER role
// @Tags users
// @Accept json
// @Produce json
// @Param user body createUserReq true "User"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /users [post]
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserReq
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.patron.AddUser(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, user)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.patron.ListUsers(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, users, map[string]any{"total": len(users)})
}

func (h *UserHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := h.patron.GetUserByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, user, nil)
}

// @Summary Get user by id
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/id/{id} [get]
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.patron.GetUserByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, user, nil)
}

// @Summary Update user as admin
// @Description Renames a user and sets their role
// @Tags users
// @Accept json
// @Produce json
// @Param username path string true "Current username"
// @Param user body adminUpdateUserReq true "User"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /users/{username}/admin [patch]
func (h *UserHandler) UpdateByAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminUpdateUserReq
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.patron.UpdateUserByAdmin(r.Context(), r.PathValue("username"),
		strings.TrimSpace(req.Username), entity.Role(req.Role))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, user, nil)
}

func (h *UserHandler) UpdateBySelf(w http.ResponseWriter, r *http.Request) {
	var req selfUpdateUserReq
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.patron.UpdateUserBySelf(r.Context(), r.PathValue("username"),
		strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, user, nil)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.patron.DeleteUserByUsername(r.Context(), r.PathValue("username")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}
