package app

import (
	"context"
	"strings"

	"studieo/internal/common"
	"studieo/internal/domain/analytics"
	"studieo/internal/domain/profile"
)

type ProfileService struct {
	students  profile.StudentRepository
	companies profile.CompanyRepository
	analytics analytics.Repository
}

func NewProfileService(students profile.StudentRepository, companies profile.CompanyRepository, analytics analytics.Repository) *ProfileService {
	return &ProfileService{students: students, companies: companies, analytics: analytics}
}

func (s *ProfileService) GetStudent(ctx context.Context, userID common.UUID) (*profile.StudentProfile, error) {
	return s.students.GetByUserID(ctx, userID)
}

func (s *ProfileService) SaveStudent(ctx context.Context, p profile.StudentProfile) (*profile.StudentProfile, error) {
	if err := validateStudentProfile(p); err != nil {
		return nil, err
	}
	saved, err := s.students.Upsert(ctx, p)
	if err != nil {
		return nil, err
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "profile.student_saved", UserID: &p.UserID, Payload: analyticsPayload(ctx, nil)})
	return saved, nil
}

func (s *ProfileService) GetCompany(ctx context.Context, userID common.UUID) (*profile.CompanyProfile, error) {
	return s.companies.GetByUserID(ctx, userID)
}

func (s *ProfileService) SaveCompany(ctx context.Context, p profile.CompanyProfile) (*profile.CompanyProfile, error) {
	if err := validateCompanyProfile(p); err != nil {
		return nil, err
	}
	saved, err := s.companies.Upsert(ctx, p)
	if err != nil {
		return nil, err
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "profile.company_saved", UserID: &p.UserID, Payload: analyticsPayload(ctx, nil)})
	return saved, nil
}

func validateStudentProfile(p profile.StudentProfile) error {
	fields := map[string]string{}
	if strings.TrimSpace(p.University) == "" {
		fields["university"] = "university is required"
	}
	if strings.TrimSpace(p.Program) == "" {
		fields["program"] = "program is required"
	}
	if len(p.Skills) == 0 {
		fields["skills"] = "at least one skill is required"
	}
	if len(fields) > 0 {
		return common.NewValidationError("invalid student profile", fields)
	}
	return nil
}

func validateCompanyProfile(p profile.CompanyProfile) error {
	fields := map[string]string{}
	if strings.TrimSpace(p.CompanyName) == "" {
		fields["company_name"] = "company name is required"
	}
	if strings.TrimSpace(p.ContactName) == "" {
		fields["contact_name"] = "contact name is required"
	}
	if strings.TrimSpace(p.ContactEmail) == "" {
		fields["contact_email"] = "contact email is required"
	}
	if strings.TrimSpace(p.ContactRole) == "" {
		fields["contact_role"] = "contact role is required"
	}
	if len(fields) > 0 {
		return common.NewValidationError("invalid company profile", fields)
	}
	return nil
}

// IsStudentProfileComplete reports whether the profile carries everything a
// team application needs.
func IsStudentProfileComplete(p profile.StudentProfile) bool {
	return strings.TrimSpace(p.University) != "" &&
		strings.TrimSpace(p.Program) != "" &&
		len(p.Skills) > 0
}

// IsCompanyProfileComplete reports whether the profile carries everything an
// accepting project needs, including the contact handed to accepted teams.
func IsCompanyProfileComplete(p profile.CompanyProfile) bool {
	return strings.TrimSpace(p.CompanyName) != "" &&
		strings.TrimSpace(p.ContactName) != "" &&
		strings.TrimSpace(p.ContactEmail) != "" &&
		strings.TrimSpace(p.ContactRole) != ""
}
