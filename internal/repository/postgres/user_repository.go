package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"studieo/internal/common"
	"studieo/internal/domain/user"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, id common.UUID, email, fullName string) (*user.User, error) {
	account := user.User{
		ID:       id,
		Email:    email,
		FullName: fullName,
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, email, full_name, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		account.ID, account.Email, account.FullName, pq.Array([]string{}), account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to create user", err)
	}
	return &account, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id common.UUID) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, email, full_name, roles, created_at, updated_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, email, full_name, roles, created_at, updated_at FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) SetRoles(ctx context.Context, userID common.UUID, roles []user.Role) error {
	values := make([]string, len(roles))
	for i, role := range roles {
		values[i] = string(role)
	}
	result, err := r.db.ExecContext(ctx, `UPDATE users SET roles = $1, updated_at = $2 WHERE id = $3`,
		pq.Array(values), time.Now().UTC(), userID)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to set roles", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return common.NewError(common.CodeNotFound, "user not found", sql.ErrNoRows)
	}
	return nil
}

func (r *UserRepository) ListRoles(ctx context.Context, userID common.UUID) ([]user.Role, error) {
	row := r.db.QueryRowContext(ctx, `SELECT roles FROM users WHERE id = $1`, userID)
	var values []string
	if err := row.Scan(pq.Array(&values)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "user not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load roles", err)
	}
	roles := make([]user.Role, len(values))
	for i, value := range values {
		roles[i] = user.Role(value)
	}
	return roles, nil
}

func scanUser(row *sql.Row) (*user.User, error) {
	var account user.User
	var values []string
	if err := row.Scan(&account.ID, &account.Email, &account.FullName, pq.Array(&values), &account.CreatedAt, &account.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "user not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load user", err)
	}
	account.Roles = make([]user.Role, len(values))
	for i, value := range values {
		account.Roles[i] = user.Role(value)
	}
	return &account, nil
}
