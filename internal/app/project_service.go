package app

import (
	"context"
	"fmt"
	"strings"

	"studieo/internal/common"
	"studieo/internal/domain/analytics"
	"studieo/internal/domain/profile"
	"studieo/internal/domain/project"
)

type ProjectService struct {
	repo      project.Repository
	companies profile.CompanyRepository
	analytics analytics.Repository
}

func NewProjectService(repo project.Repository, companies profile.CompanyRepository, analytics analytics.Repository) *ProjectService {
	return &ProjectService{repo: repo, companies: companies, analytics: analytics}
}

func (s *ProjectService) Create(ctx context.Context, p project.Project) (*project.Project, error) {
	if p.Status == "" {
		p.Status = project.StatusDraft
	}
	normalized, err := normalizeProjectStatus(p.Status)
	if err != nil {
		return nil, err
	}
	p.Status = normalized
	if err := validateProject(p); err != nil {
		return nil, err
	}
	if p.Status == project.StatusAccepting {
		if err := s.ensureAcceptable(ctx, p.CompanyID); err != nil {
			return nil, err
		}
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "project.created", UserID: &p.CompanyID, Payload: analyticsPayload(ctx, map[string]string{"project_id": created.ID.String()})})
	return created, nil
}

func (s *ProjectService) Update(ctx context.Context, p project.Project) (*project.Project, error) {
	current, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if current.CompanyID != p.CompanyID {
		return nil, common.NewError(common.CodeForbidden, "project belongs to another company", nil)
	}
	if p.Status == "" {
		p.Status = current.Status
	}
	normalized, err := normalizeProjectStatus(p.Status)
	if err != nil {
		return nil, err
	}
	p.Status = normalized
	if err := validateProject(p); err != nil {
		return nil, err
	}
	if p.Status == project.StatusAccepting && current.Status != project.StatusAccepting {
		if err := s.ensureAcceptable(ctx, p.CompanyID); err != nil {
			return nil, err
		}
	}
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, err
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "project.updated", UserID: &p.CompanyID, Payload: analyticsPayload(ctx, map[string]string{"project_id": updated.ID.String()})})
	return updated, nil
}

func (s *ProjectService) UpdateStatus(ctx context.Context, companyID, projectID common.UUID, status project.Status) (*project.Project, error) {
	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.CompanyID != companyID {
		return nil, common.NewError(common.CodeForbidden, "project belongs to another company", nil)
	}
	normalized, err := normalizeProjectStatus(status)
	if err != nil {
		return nil, err
	}
	if normalized == project.StatusAccepting && p.Status != project.StatusAccepting {
		if err := s.ensureAcceptable(ctx, companyID); err != nil {
			return nil, err
		}
	}
	p.Status = normalized
	updated, err := s.repo.Update(ctx, *p)
	if err != nil {
		return nil, err
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "project.status_changed", UserID: &companyID, Payload: analyticsPayload(ctx, map[string]string{"project_id": updated.ID.String(), "status": string(normalized)})})
	return updated, nil
}

func (s *ProjectService) Get(ctx context.Context, id common.UUID) (*project.Project, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == project.StatusDraft {
		return nil, common.NewError(common.CodeNotFound, "project not found", nil)
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "project.viewed", Payload: analyticsPayload(ctx, map[string]string{"project_id": item.ID.String()})})
	return item, nil
}

func (s *ProjectService) GetByCompany(ctx context.Context, companyID, projectID common.UUID) (*project.Project, error) {
	item, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if item.CompanyID != companyID {
		return nil, common.NewError(common.CodeForbidden, "project belongs to another company", nil)
	}
	return item, nil
}

func (s *ProjectService) ListAccepting(ctx context.Context, limit, offset int) ([]project.Project, error) {
	items, err := s.repo.ListAccepting(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "project.listed", Payload: analyticsPayload(ctx, map[string]string{"count": fmt.Sprintf("%d", len(items))})})
	return items, nil
}

func (s *ProjectService) ListByCompany(ctx context.Context, companyID common.UUID) ([]project.Project, error) {
	return s.repo.ListByCompany(ctx, companyID)
}

func (s *ProjectService) ensureAcceptable(ctx context.Context, companyID common.UUID) error {
	companyProfile, err := s.companies.GetByUserID(ctx, companyID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return common.NewError(common.CodeValidation, "company profile is required", nil)
		}
		return err
	}
	if !IsCompanyProfileComplete(*companyProfile) {
		return common.NewError(common.CodeValidation, "company profile is incomplete", nil)
	}
	return nil
}

func validateProject(p project.Project) error {
	fields := map[string]string{}
	if p.Title == "" {
		fields["title"] = "title is required"
	} else if len(p.Title) < 4 || len(p.Title) > 120 {
		fields["title"] = "title must be between 4 and 120 characters"
	}
	if p.Description == "" {
		fields["description"] = "description is required"
	}
	if len(p.Skills) == 0 {
		fields["skills"] = "at least one skill is required"
	}
	for i, skill := range p.Skills {
		if len(skill) < 2 {
			fields[fmt.Sprintf("skills[%d]", i)] = "skill must be at least 2 characters"
		}
	}
	if p.DurationWeeks <= 0 {
		fields["duration_weeks"] = "duration must be at least 1 week"
	}
	if p.TeamSize <= 0 {
		fields["team_size"] = "team size must be at least 1"
	}
	if len(fields) > 0 {
		return common.NewValidationError("invalid project", fields)
	}
	return nil
}

func normalizeProjectStatus(status project.Status) (project.Status, error) {
	normalized := project.Status(strings.ToLower(strings.TrimSpace(string(status))))
	switch normalized {
	case project.StatusDraft, project.StatusAccepting, project.StatusClosed:
		return normalized, nil
	default:
		return "", common.NewValidationError("invalid project status", map[string]string{"status": "status must be draft, accepting, or closed"})
	}
}
