package app

import (
	"context"
	"strings"

	"studieo/internal/common"
	"studieo/internal/domain/analytics"
	"studieo/internal/domain/user"
)

type UserService struct {
	users     user.Repository
	analytics analytics.Repository
}

func NewUserService(users user.Repository, analytics analytics.Repository) *UserService {
	return &UserService{users: users, analytics: analytics}
}

func (s *UserService) Get(ctx context.Context, userID common.UUID) (*user.User, error) {
	return s.users.GetByID(ctx, userID)
}

// EnsureAccount materializes the authenticated user on first contact. The
// auth provider owns credentials; this service only mirrors identity fields
// needed for team rosters and notification fan-out.
func (s *UserService) EnsureAccount(ctx context.Context, userID common.UUID, email, fullName string) (*user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)
	if email == "" {
		return nil, common.NewValidationError("invalid account", map[string]string{"email": "email is required"})
	}
	if fullName == "" {
		return nil, common.NewValidationError("invalid account", map[string]string{"full_name": "full name is required"})
	}
	if existing, err := s.users.GetByID(ctx, userID); err == nil {
		return existing, nil
	} else if !common.Is(err, common.CodeNotFound) {
		return nil, err
	}
	created, err := s.users.Create(ctx, userID, email, fullName)
	if err != nil {
		return nil, err
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "user.created", UserID: &userID, Payload: analyticsPayload(ctx, nil)})
	return created, nil
}

func (s *UserService) SetRole(ctx context.Context, userID common.UUID, role user.Role) error {
	normalized := user.Role(strings.ToLower(strings.TrimSpace(string(role))))
	if normalized != user.RoleStudent && normalized != user.RoleCompany {
		return common.NewValidationError("invalid role", map[string]string{"role": "role must be student or company"})
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	roles, err := s.users.ListRoles(ctx, userID)
	if err != nil {
		return err
	}
	for _, existing := range roles {
		if existing == normalized {
			return nil
		}
	}
	roles = append(roles, normalized)
	if err := s.users.SetRoles(ctx, userID, roles); err != nil {
		return err
	}
	eventName := "user.role_selected"
	if len(roles) > 1 {
		eventName = "user.role_added"
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: eventName, UserID: &userID, Payload: analyticsPayload(ctx, map[string]string{"role": string(normalized)})})
	return nil
}
