package project

import (
	"time"

	"studieo/internal/common"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusAccepting Status = "accepting"
	StatusClosed    Status = "closed"
)

type Project struct {
	ID            common.UUID `json:"id"`
	CompanyID     common.UUID `json:"company_id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Skills        []string    `json:"skills"`
	DurationWeeks int         `json:"duration_weeks"`
	TeamSize      int         `json:"team_size"`
	Status        Status      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
