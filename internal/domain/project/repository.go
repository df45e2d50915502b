package project

import (
	"context"

	"studieo/internal/common"
)

type Repository interface {
	Create(ctx context.Context, p Project) (*Project, error)
	Update(ctx context.Context, p Project) (*Project, error)
	GetByID(ctx context.Context, id common.UUID) (*Project, error)
	ListAccepting(ctx context.Context, limit, offset int) ([]Project, error)
	ListByCompany(ctx context.Context, companyID common.UUID) ([]Project, error)
}
