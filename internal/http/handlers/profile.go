package handlers

import (
	"net/http"

	"studieo/internal/app"
	"studieo/internal/domain/profile"
	"studieo/internal/http/middleware"
	"studieo/internal/http/response"
)

type ProfileHandler struct {
	profiles *app.ProfileService
}

func NewProfileHandler(profiles *app.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type studentProfileRequest struct {
	University string   `json:"university"`
	Program    string   `json:"program"`
	Skills     []string `json:"skills"`
	ResumeURL  string   `json:"resume_url"`
	Bio        string   `json:"bio"`
}

type companyProfileRequest struct {
	CompanyName  string `json:"company_name"`
	Website      string `json:"website"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactRole  string `json:"contact_role"`
}

func (h *ProfileHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	item, err := h.profiles.GetStudent(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *ProfileHandler) UpsertStudent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req studentProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	saved, err := h.profiles.SaveStudent(r.Context(), profile.StudentProfile{
		UserID:     userID,
		University: req.University,
		Program:    req.Program,
		Skills:     req.Skills,
		ResumeURL:  req.ResumeURL,
		Bio:        req.Bio,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, saved)
}

func (h *ProfileHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	item, err := h.profiles.GetCompany(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *ProfileHandler) UpsertCompany(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req companyProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	saved, err := h.profiles.SaveCompany(r.Context(), profile.CompanyProfile{
		UserID:       userID,
		CompanyName:  req.CompanyName,
		Website:      req.Website,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactRole:  req.ContactRole,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, saved)
}
