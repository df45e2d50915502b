package user

import (
	"time"

	"studieo/internal/common"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleCompany Role = "company"
)

type User struct {
	ID        common.UUID `json:"id"`
	Email     string      `json:"email"`
	FullName  string      `json:"full_name"`
	Roles     []Role      `json:"roles"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
