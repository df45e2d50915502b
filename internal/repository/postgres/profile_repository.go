package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"studieo/internal/common"
	"studieo/internal/domain/profile"
)

type StudentProfileRepository struct {
	db *sql.DB
}

func NewStudentProfileRepository(db *sql.DB) *StudentProfileRepository {
	return &StudentProfileRepository{db: db}
}

func (r *StudentProfileRepository) GetByUserID(ctx context.Context, userID common.UUID) (*profile.StudentProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT user_id, university, program, skills, resume_url, bio, updated_at
		FROM student_profiles WHERE user_id = $1`, userID)
	var p profile.StudentProfile
	if err := row.Scan(&p.UserID, &p.University, &p.Program, pq.Array(&p.Skills), &p.ResumeURL, &p.Bio, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "student profile not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load student profile", err)
	}
	return &p, nil
}

func (r *StudentProfileRepository) Upsert(ctx context.Context, p profile.StudentProfile) (*profile.StudentProfile, error) {
	p.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `INSERT INTO student_profiles (user_id, university, program, skills, resume_url, bio, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET university = $2, program = $3, skills = $4, resume_url = $5, bio = $6, updated_at = $7`,
		p.UserID, p.University, p.Program, pq.Array(p.Skills), p.ResumeURL, p.Bio, p.UpdatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to save student profile", err)
	}
	return &p, nil
}

type CompanyProfileRepository struct {
	db *sql.DB
}

func NewCompanyProfileRepository(db *sql.DB) *CompanyProfileRepository {
	return &CompanyProfileRepository{db: db}
}

func (r *CompanyProfileRepository) GetByUserID(ctx context.Context, userID common.UUID) (*profile.CompanyProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT user_id, company_name, website, contact_name, contact_email, contact_role, updated_at
		FROM company_profiles WHERE user_id = $1`, userID)
	var p profile.CompanyProfile
	if err := row.Scan(&p.UserID, &p.CompanyName, &p.Website, &p.ContactName, &p.ContactEmail, &p.ContactRole, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "company profile not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load company profile", err)
	}
	return &p, nil
}

func (r *CompanyProfileRepository) Upsert(ctx context.Context, p profile.CompanyProfile) (*profile.CompanyProfile, error) {
	p.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `INSERT INTO company_profiles (user_id, company_name, website, contact_name, contact_email, contact_role, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET company_name = $2, website = $3, contact_name = $4, contact_email = $5, contact_role = $6, updated_at = $7`,
		p.UserID, p.CompanyName, p.Website, p.ContactName, p.ContactEmail, p.ContactRole, p.UpdatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to save company profile", err)
	}
	return &p, nil
}
