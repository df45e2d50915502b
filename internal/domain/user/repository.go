package user

import (
	"context"

	"studieo/internal/common"
)

type Repository interface {
	// Create inserts the row under the id the auth provider issued so the
	// token subject and the stored user always match.
	Create(ctx context.Context, id common.UUID, email, fullName string) (*User, error)
	GetByID(ctx context.Context, id common.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetRoles(ctx context.Context, userID common.UUID, roles []Role) error
	ListRoles(ctx context.Context, userID common.UUID) ([]Role, error)
}
