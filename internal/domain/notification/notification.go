package notification

import "context"

const (
	TemplateTeamInvite         = "team-invite"
	TemplateTeamInviteReminder = "team-invite-reminder"
	TemplateMemberConfirmed    = "team-member-confirmed"
	TemplateSubmitted          = "application-submitted"
	TemplateNeedsConfirmation  = "application-needs-confirmation"
	TemplateAccepted           = "application-accepted"
	TemplateRejected           = "application-rejected"
	TemplateDisbanded          = "application-disbanded"
	TemplateWithdrawn          = "application-withdrawn"
)

type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Message is one templated email. Params carry template variables such as
// the project title or the declining member's name.
type Message struct {
	Template string            `json:"template"`
	To       Recipient         `json:"to"`
	Params   map[string]string `json:"params,omitempty"`
}

// Dispatcher delivers messages best-effort. Callers must never let a
// delivery error fail the operation that triggered it.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}
