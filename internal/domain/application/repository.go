package application

import (
	"context"
	"time"

	"studieo/internal/common"
)

type Repository interface {
	// Create inserts the application and its full member set in one
	// transaction.
	Create(ctx context.Context, app Application, members []TeamMember) (*Application, error)
	GetByID(ctx context.Context, id common.UUID) (*Application, error)
	FindByProjectAndLead(ctx context.Context, projectID, leadID common.UUID) (*Application, error)
	GetMember(ctx context.Context, applicationID, studentID common.UUID) (*TeamMember, error)
	ListMembers(ctx context.Context, applicationID common.UUID) ([]TeamMember, error)
	ListMemberContacts(ctx context.Context, applicationID common.UUID) ([]MemberContact, error)
	// ConfirmMember flips the member's invite_status to accepted and, in
	// the same transaction, reports how many members remain unconfirmed.
	ConfirmMember(ctx context.Context, applicationID, studentID common.UUID, at time.Time) (int, error)
	// SubmitIfPending performs the guarded pending->submitted transition
	// and reports whether a row actually changed.
	SubmitIfPending(ctx context.Context, applicationID common.UUID, at time.Time) (bool, error)
	// Decide performs the guarded submitted->accepted/rejected transition.
	Decide(ctx context.Context, applicationID common.UUID, next Status, at time.Time) (bool, error)
	// Disband invokes the atomic disband_application procedure.
	Disband(ctx context.Context, applicationID, studentID common.UUID) (*DisbandResult, error)
	ListByStudent(ctx context.Context, studentID common.UUID) ([]Application, error)
	ListByCompany(ctx context.Context, companyID common.UUID) ([]Application, error)
	ListStaleInvites(ctx context.Context, invitedBefore time.Time) ([]StaleInvite, error)
}
