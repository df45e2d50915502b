package profile

import (
	"context"
	"time"

	"studieo/internal/common"
)

type StudentProfile struct {
	UserID     common.UUID `json:"user_id"`
	University string      `json:"university"`
	Program    string      `json:"program"`
	Skills     []string    `json:"skills"`
	ResumeURL  string      `json:"resume_url,omitempty"`
	Bio        string      `json:"bio,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type CompanyProfile struct {
	UserID       common.UUID `json:"user_id"`
	CompanyName  string      `json:"company_name"`
	Website      string      `json:"website,omitempty"`
	ContactName  string      `json:"contact_name"`
	ContactEmail string      `json:"contact_email"`
	ContactRole  string      `json:"contact_role"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type StudentRepository interface {
	GetByUserID(ctx context.Context, userID common.UUID) (*StudentProfile, error)
	Upsert(ctx context.Context, p StudentProfile) (*StudentProfile, error)
}

type CompanyRepository interface {
	GetByUserID(ctx context.Context, userID common.UUID) (*CompanyProfile, error)
	Upsert(ctx context.Context, p CompanyProfile) (*CompanyProfile, error)
}
