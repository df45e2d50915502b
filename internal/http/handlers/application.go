package handlers

import (
	"net/http"
	"strings"
	"time"

	"studieo/internal/app"
	"studieo/internal/common"
	"studieo/internal/domain/application"
	"studieo/internal/domain/user"
	"studieo/internal/http/middleware"
	"studieo/internal/http/response"
)

type ApplicationHandler struct {
	applications *app.ApplicationService
	limiter      middleware.Limiter
}

func NewApplicationHandler(applications *app.ApplicationService, limiter middleware.Limiter) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, limiter: limiter}
}

type createApplicationRequest struct {
	ProjectID    string   `json:"project_id"`
	MemberIDs    []string `json:"member_ids"`
	DesignDocURL string   `json:"design_doc_url"`
}

func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req createApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"project_id": "project_id is required"}))
		return
	}
	projectID, err := common.ParseUUID(req.ProjectID)
	if err != nil {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"project_id": "invalid uuid"}))
		return
	}
	memberIDs := make([]common.UUID, 0, len(req.MemberIDs))
	for _, raw := range req.MemberIDs {
		parsed, err := common.ParseUUID(raw)
		if err != nil {
			response.Error(w, common.NewValidationError("invalid request", map[string]string{"member_ids": "invalid uuid " + raw}))
			return
		}
		memberIDs = append(memberIDs, parsed)
	}
	if !h.allow("apply:"+projectID.String()+":"+studentID.String(), 3, time.Minute) {
		response.Error(w, common.NewError(common.CodeRateLimited, "apply rate limit exceeded", nil))
		return
	}
	created, err := h.applications.Create(r.Context(), studentID, app.CreateApplicationInput{
		ProjectID:    projectID,
		MemberIDs:    memberIDs,
		DesignDocURL: strings.TrimSpace(req.DesignDocURL),
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	role, _ := middleware.ActiveRoleFromContext(r.Context())
	applicationID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	item, err := h.applications.Get(r.Context(), applicationID, callerID, role)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *ApplicationHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	applicationID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	members, err := h.applications.ListMembers(r.Context(), applicationID, callerID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, members)
}

func (h *ApplicationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	applicationID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	if !h.allow("confirm:"+studentID.String(), 10, time.Minute) {
		response.Error(w, common.NewError(common.CodeRateLimited, "confirm rate limit exceeded", nil))
		return
	}
	member, err := h.applications.ConfirmMembership(r.Context(), applicationID, studentID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, member)
}

func (h *ApplicationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	applicationID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	if !h.allow("decline:"+studentID.String(), 10, time.Minute) {
		response.Error(w, common.NewError(common.CodeRateLimited, "decline rate limit exceeded", nil))
		return
	}
	if err := h.applications.DeclineMembership(r.Context(), applicationID, studentID); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	applicationID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	if !h.allow("submit:"+studentID.String(), 5, time.Minute) {
		response.Error(w, common.NewError(common.CodeRateLimited, "submit rate limit exceeded", nil))
		return
	}
	submitted, err := h.applications.Submit(r.Context(), applicationID, studentID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, submitted)
}

func (h *ApplicationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	applicationID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.applications.Withdraw(r.Context(), applicationID, studentID); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

type decisionRequest struct {
	Status string `json:"status"`
}

func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	companyID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	applicationID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if !h.allow("decide:"+companyID.String(), 10, time.Minute) {
		response.Error(w, common.NewError(common.CodeRateLimited, "decision rate limit exceeded", nil))
		return
	}
	var updated *application.Application
	switch application.Status(strings.ToLower(strings.TrimSpace(req.Status))) {
	case application.StatusAccepted:
		updated, err = h.applications.Accept(r.Context(), applicationID, companyID)
	case application.StatusRejected:
		updated, err = h.applications.Reject(r.Context(), applicationID, companyID)
	default:
		response.Error(w, common.NewValidationError("invalid status", map[string]string{"status": "status must be accepted or rejected"}))
		return
	}
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *ApplicationHandler) ListStudent(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	items, err := h.applications.ListByStudent(r.Context(), studentID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *ApplicationHandler) ListCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	items, err := h.applications.ListByCompany(r.Context(), companyID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	activeRole, ok := middleware.ActiveRoleFromContext(r.Context())
	if !ok || activeRole == "" {
		response.Error(w, common.NewError(common.CodeForbidden, "role not selected", nil))
		return
	}
	switch activeRole {
	case user.RoleStudent:
		h.ListStudent(w, r)
	case user.RoleCompany:
		h.ListCompany(w, r)
	default:
		response.Error(w, common.NewError(common.CodeForbidden, "insufficient role", nil))
	}
}

func (h *ApplicationHandler) allow(key string, limit int, window time.Duration) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(key, limit, window)
}
