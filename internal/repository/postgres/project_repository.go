package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"studieo/internal/common"
	"studieo/internal/domain/project"
)

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, company_id, title, description, skills, duration_weeks, team_size, status, created_at, updated_at`

func (r *ProjectRepository) Create(ctx context.Context, p project.Project) (*project.Project, error) {
	p.ID = common.NewUUID()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO projects (id, company_id, title, description, skills, duration_weeks, team_size, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.CompanyID, p.Title, p.Description, pq.Array(p.Skills), p.DurationWeeks, p.TeamSize, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to create project", err)
	}
	return &p, nil
}

func (r *ProjectRepository) Update(ctx context.Context, p project.Project) (*project.Project, error) {
	p.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `UPDATE projects SET title = $1, description = $2, skills = $3, duration_weeks = $4, team_size = $5, status = $6, updated_at = $7
		WHERE id = $8 AND company_id = $9`,
		p.Title, p.Description, pq.Array(p.Skills), p.DurationWeeks, p.TeamSize, p.Status, p.UpdatedAt, p.ID, p.CompanyID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to update project", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, common.NewError(common.CodeNotFound, "project not found", sql.ErrNoRows)
	}
	return &p, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id common.UUID) (*project.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	var p project.Project
	if err := row.Scan(&p.ID, &p.CompanyID, &p.Title, &p.Description, pq.Array(&p.Skills), &p.DurationWeeks, &p.TeamSize, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "project not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load project", err)
	}
	return &p, nil
}

func (r *ProjectRepository) ListAccepting(ctx context.Context, limit, offset int) ([]project.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+projectColumns+`
		FROM projects WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		project.StatusAccepting, limit, offset)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list projects", err)
	}
	return scanProjects(rows)
}

func (r *ProjectRepository) ListByCompany(ctx context.Context, companyID common.UUID) ([]project.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+projectColumns+`
		FROM projects WHERE company_id = $1 ORDER BY created_at DESC`, companyID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list company projects", err)
	}
	return scanProjects(rows)
}

func scanProjects(rows *sql.Rows) ([]project.Project, error) {
	defer rows.Close()
	var items []project.Project
	for rows.Next() {
		var p project.Project
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Title, &p.Description, pq.Array(&p.Skills), &p.DurationWeeks, &p.TeamSize, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan project", err)
		}
		items = append(items, p)
	}
	return items, nil
}
