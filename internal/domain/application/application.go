package application

import (
	"time"

	"studieo/internal/common"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

// Application is a team's bid for a project. It is deleted outright on
// withdrawal or disband, never archived.
type Application struct {
	ID           common.UUID `json:"id"`
	ProjectID    common.UUID `json:"project_id"`
	TeamLeadID   common.UUID `json:"team_lead_id"`
	Status       Status      `json:"status"`
	DesignDocURL string      `json:"design_doc_url,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	SubmittedAt  *time.Time  `json:"submitted_at,omitempty"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TeamMember tracks one student's invite state within an application. The
// member set is fixed at creation time; confirm/decline only move
// invite_status.
type TeamMember struct {
	ApplicationID common.UUID  `json:"application_id"`
	StudentID     common.UUID  `json:"student_id"`
	IsLead        bool         `json:"is_lead"`
	InviteStatus  InviteStatus `json:"invite_status"`
	ConfirmedAt   *time.Time   `json:"confirmed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

type MemberContact struct {
	StudentID common.UUID
	Name      string
	Email     string
}

// DisbandResult mirrors the row set returned by the disband_application
// procedure: a verification failure or the full list of affected members.
type DisbandResult struct {
	Success bool
	Error   string
	Members []MemberContact
}

// StaleInvite is a still-pending invite on a still-pending application,
// used by the reminder job.
type StaleInvite struct {
	ApplicationID common.UUID
	ProjectTitle  string
	Member        MemberContact
	InvitedAt     time.Time
}
