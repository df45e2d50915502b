package handlers

import (
	"net/http"
	"strings"

	"studieo/internal/app"
	"studieo/internal/common"
	"studieo/internal/domain/user"
	"studieo/internal/http/middleware"
	"studieo/internal/http/response"
)

type UserHandler struct {
	users *app.UserService
}

func NewUserHandler(users *app.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type ensureAccountRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func (h *UserHandler) UpsertMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req ensureAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	account, err := h.users.EnsureAccount(r.Context(), userID, req.Email, req.FullName)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, account)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	account, err := h.users.Get(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, account)
}

func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req setRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if strings.TrimSpace(req.Role) == "" {
		response.Error(w, common.NewError(common.CodeValidation, "role is required", nil))
		return
	}
	if err := h.users.SetRole(r.Context(), userID, user.Role(req.Role)); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}
