package app

import (
	"context"
	"fmt"
	"time"

	"studieo/internal/common"
	"studieo/internal/domain/analytics"
	"studieo/internal/domain/application"
	"studieo/internal/domain/notification"
	"studieo/internal/domain/profile"
	"studieo/internal/domain/project"
	"studieo/internal/domain/user"
)

const notifyTimeout = 5 * time.Second

// ApplicationService owns every transition of application status and team
// member invite status. Nothing else in the codebase writes those columns.
type ApplicationService struct {
	repo      application.Repository
	projects  project.Repository
	students  profile.StudentRepository
	companies profile.CompanyRepository
	users     user.Repository
	analytics analytics.Repository
	mailer    notification.Dispatcher
	logger    Logger
}

type Logger interface {
	Info(msg string)
	Error(msg string)
}

func NewApplicationService(repo application.Repository, projects project.Repository, students profile.StudentRepository, companies profile.CompanyRepository, users user.Repository, analytics analytics.Repository, mailer notification.Dispatcher, logger Logger) *ApplicationService {
	return &ApplicationService{
		repo:      repo,
		projects:  projects,
		students:  students,
		companies: companies,
		users:     users,
		analytics: analytics,
		mailer:    mailer,
		logger:    logger,
	}
}

type CreateApplicationInput struct {
	ProjectID    common.UUID
	MemberIDs    []common.UUID
	DesignDocURL string
}

// Create assembles a team application: the application row plus one team
// member row per student, fixed for the application's lifetime. The lead
// counts as confirmed from the start; everyone else is invited.
func (s *ApplicationService) Create(ctx context.Context, leadID common.UUID, in CreateApplicationInput) (*application.Application, error) {
	studentProfile, err := s.students.GetByUserID(ctx, leadID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeValidation, "student profile is required", nil)
		}
		return nil, err
	}
	if !IsStudentProfileComplete(*studentProfile) {
		return nil, common.NewError(common.CodeValidation, "student profile is incomplete", nil)
	}
	proj, err := s.projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if proj.Status != project.StatusAccepting {
		return nil, common.NewError(common.CodeValidation, "project is not accepting applications", nil)
	}
	if _, err := s.repo.FindByProjectAndLead(ctx, in.ProjectID, leadID); err == nil {
		return nil, common.NewError(common.CodeConflict, "already applied to this project", nil)
	} else if !common.Is(err, common.CodeNotFound) {
		return nil, err
	}
	invited, err := s.resolveInvitees(ctx, leadID, in.MemberIDs)
	if err != nil {
		return nil, err
	}
	if proj.TeamSize > 0 && len(invited)+1 > proj.TeamSize {
		return nil, common.NewValidationError("invalid team", map[string]string{"member_ids": fmt.Sprintf("team must not exceed %d members", proj.TeamSize)})
	}
	now := time.Now().UTC()
	members := make([]application.TeamMember, 0, len(invited)+1)
	members = append(members, application.TeamMember{
		StudentID:    leadID,
		IsLead:       true,
		InviteStatus: application.InviteAccepted,
		ConfirmedAt:  &now,
	})
	for _, account := range invited {
		members = append(members, application.TeamMember{
			StudentID:    account.ID,
			InviteStatus: application.InvitePending,
		})
	}
	created, err := s.repo.Create(ctx, application.Application{
		ProjectID:    in.ProjectID,
		TeamLeadID:   leadID,
		Status:       application.StatusPending,
		DesignDocURL: in.DesignDocURL,
	}, members)
	if err != nil {
		return nil, err
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "application.created", UserID: &leadID, Payload: analyticsPayload(ctx, map[string]string{"application_id": created.ID.String(), "project_id": in.ProjectID.String()})})
	lead, err := s.users.GetByID(ctx, leadID)
	if err != nil {
		s.logError(fmt.Sprintf("failed to load lead for invites application_id=%s: %v", created.ID, err))
		return created, nil
	}
	for _, account := range invited {
		s.dispatch(notification.Message{
			Template: notification.TemplateTeamInvite,
			To:       notification.Recipient{Name: account.FullName, Email: account.Email},
			Params: map[string]string{
				"project_title": proj.Title,
				"lead_name":     lead.FullName,
			},
		})
	}
	if len(invited) == 0 {
		// A one-person team already has full consensus.
		if err := s.autoSubmit(ctx, created.ID); err != nil {
			s.logError(fmt.Sprintf("auto-submit after create failed application_id=%s: %v", created.ID, err))
		} else if refreshed, err := s.repo.GetByID(ctx, created.ID); err != nil {
			s.logError(fmt.Sprintf("failed to reload application after auto-submit application_id=%s: %v", created.ID, err))
		} else {
			return refreshed, nil
		}
	}
	return created, nil
}

// ConfirmMembership marks the caller's invite as accepted. The update and
// the consensus check run in one store transaction; when the caller is the
// last unconfirmed member the application auto-submits.
func (s *ApplicationService) ConfirmMembership(ctx context.Context, applicationID, studentID common.UUID) (*application.TeamMember, error) {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	member, err := s.repo.GetMember(ctx, applicationID, studentID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeForbidden, "not a member of application", nil)
		}
		return nil, err
	}
	if isFinalStatus(app.Status) {
		return nil, common.NewError(common.CodeValidation, "application already decided", nil)
	}
	if member.InviteStatus == application.InviteAccepted {
		return nil, common.NewError(common.CodeConflict, "membership already confirmed", nil)
	}
	now := time.Now().UTC()
	pendingLeft, err := s.repo.ConfirmMember(ctx, applicationID, studentID, now)
	if err != nil {
		return nil, err
	}
	member.InviteStatus = application.InviteAccepted
	member.ConfirmedAt = &now
	_ = s.analytics.Create(ctx, analytics.Event{Name: "application.member_confirmed", UserID: &studentID, Payload: analyticsPayload(ctx, map[string]string{"application_id": applicationID.String()})})
	s.notifyLeadOfConfirmation(ctx, app, studentID)
	if pendingLeft == 0 && app.Status == application.StatusPending {
		// Best-effort: the confirmation stands even when auto-submit
		// fails, leaving the application pending for a manual submit.
		if err := s.autoSubmit(ctx, applicationID); err != nil {
			s.logError(fmt.Sprintf("auto-submit failed application_id=%s: %v", applicationID, err))
		}
	}
	return member, nil
}

// DeclineMembership disbands the whole application through the atomic
// store procedure and fans out one notification per affected member.
func (s *ApplicationService) DeclineMembership(ctx context.Context, applicationID, studentID common.UUID) error {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	proj, err := s.projects.GetByID(ctx, app.ProjectID)
	if err != nil {
		return err
	}
	result, err := s.repo.Disband(ctx, applicationID, studentID)
	if err != nil {
		return err
	}
	if !result.Success {
		return disbandError(result.Error)
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "application.disbanded", UserID: &studentID, Payload: analyticsPayload(ctx, map[string]string{"application_id": applicationID.String()})})
	declinerName := ""
	for _, member := range result.Members {
		if member.StudentID == studentID {
			declinerName = member.Name
			break
		}
	}
	for _, member := range result.Members {
		isDecliner := member.StudentID == studentID
		s.dispatch(notification.Message{
			Template: notification.TemplateDisbanded,
			To:       notification.Recipient{Name: member.Name, Email: member.Email},
			Params: map[string]string{
				"project_title":  proj.Title,
				"declined_by":    declinerName,
				"is_declined_by": boolParam(isDecliner),
			},
		})
	}
	return nil
}

// Submit is the lead-triggered pending->submitted transition. The guarded
// update makes a race between manual submit and auto-submit resolve to a
// single transition; the loser gets a conflict.
func (s *ApplicationService) Submit(ctx context.Context, applicationID, callerID common.UUID) (*application.Application, error) {
	member, err := s.repo.GetMember(ctx, applicationID, callerID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeForbidden, "not a member of application", nil)
		}
		return nil, err
	}
	if !member.IsLead {
		return nil, common.NewError(common.CodeForbidden, "only the team lead can submit", nil)
	}
	if err := s.submitPending(ctx, applicationID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, applicationID)
}

// Withdraw terminates a not-yet-decided application on the lead's behalf.
// It goes through the same atomic primitive as decline.
func (s *ApplicationService) Withdraw(ctx context.Context, applicationID, callerID common.UUID) error {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	member, err := s.repo.GetMember(ctx, applicationID, callerID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return common.NewError(common.CodeForbidden, "not a member of application", nil)
		}
		return err
	}
	if !member.IsLead {
		return common.NewError(common.CodeForbidden, "only the team lead can withdraw", nil)
	}
	proj, err := s.projects.GetByID(ctx, app.ProjectID)
	if err != nil {
		return err
	}
	result, err := s.repo.Disband(ctx, applicationID, callerID)
	if err != nil {
		return err
	}
	if !result.Success {
		return disbandError(result.Error)
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "application.withdrawn", UserID: &callerID, Payload: analyticsPayload(ctx, map[string]string{"application_id": applicationID.String()})})
	leadName := ""
	for _, member := range result.Members {
		if member.StudentID == callerID {
			leadName = member.Name
			break
		}
	}
	for _, member := range result.Members {
		if member.StudentID == callerID {
			continue
		}
		s.dispatch(notification.Message{
			Template: notification.TemplateWithdrawn,
			To:       notification.Recipient{Name: member.Name, Email: member.Email},
			Params: map[string]string{
				"project_title": proj.Title,
				"lead_name":     leadName,
			},
		})
	}
	return nil
}

func (s *ApplicationService) Accept(ctx context.Context, applicationID, companyID common.UUID) (*application.Application, error) {
	return s.decide(ctx, applicationID, companyID, application.StatusAccepted)
}

func (s *ApplicationService) Reject(ctx context.Context, applicationID, companyID common.UUID) (*application.Application, error) {
	return s.decide(ctx, applicationID, companyID, application.StatusRejected)
}

func (s *ApplicationService) decide(ctx context.Context, applicationID, companyID common.UUID, next application.Status) (*application.Application, error) {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	proj, err := s.projects.GetByID(ctx, app.ProjectID)
	if err != nil {
		return nil, err
	}
	if proj.CompanyID != companyID {
		return nil, common.NewError(common.CodeForbidden, "application belongs to another company", nil)
	}
	now := time.Now().UTC()
	changed, err := s.repo.Decide(ctx, applicationID, next, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		current, err := s.repo.GetByID(ctx, applicationID)
		if err != nil {
			return nil, err
		}
		if current.Status == application.StatusPending {
			return nil, common.NewError(common.CodeValidation, "application has not been submitted", nil)
		}
		return nil, common.NewError(common.CodeConflict, "application already decided", nil)
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "application." + string(next), UserID: &companyID, Payload: analyticsPayload(ctx, map[string]string{"application_id": applicationID.String()})})
	contacts, err := s.repo.ListMemberContacts(ctx, applicationID)
	if err != nil {
		s.logError(fmt.Sprintf("failed to load contacts for decision application_id=%s: %v", applicationID, err))
		return s.repo.GetByID(ctx, applicationID)
	}
	params := map[string]string{"project_title": proj.Title}
	template := notification.TemplateRejected
	if next == application.StatusAccepted {
		template = notification.TemplateAccepted
		if companyProfile, err := s.companies.GetByUserID(ctx, companyID); err == nil {
			params["company_name"] = companyProfile.CompanyName
			params["contact_name"] = companyProfile.ContactName
			params["contact_email"] = companyProfile.ContactEmail
			params["contact_role"] = companyProfile.ContactRole
		} else {
			s.logError(fmt.Sprintf("failed to load company contact application_id=%s: %v", applicationID, err))
		}
	}
	for _, contact := range contacts {
		s.dispatch(notification.Message{
			Template: template,
			To:       notification.Recipient{Name: contact.Name, Email: contact.Email},
			Params:   params,
		})
	}
	return s.repo.GetByID(ctx, applicationID)
}

// Get enforces visibility: students see applications they are a member of,
// companies see applications to their own projects.
func (s *ApplicationService) Get(ctx context.Context, id, callerID common.UUID, callerRole user.Role) (*application.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch callerRole {
	case user.RoleStudent:
		if _, err := s.repo.GetMember(ctx, id, callerID); err != nil {
			if common.Is(err, common.CodeNotFound) {
				return nil, common.NewError(common.CodeForbidden, "not a member of application", nil)
			}
			return nil, err
		}
	case user.RoleCompany:
		proj, err := s.projects.GetByID(ctx, app.ProjectID)
		if err != nil {
			return nil, err
		}
		if proj.CompanyID != callerID {
			return nil, common.NewError(common.CodeForbidden, "application belongs to another company", nil)
		}
	default:
		return nil, common.NewError(common.CodeForbidden, "role not selected", nil)
	}
	return app, nil
}

func (s *ApplicationService) ListMembers(ctx context.Context, applicationID, callerID common.UUID) ([]application.TeamMember, error) {
	if _, err := s.repo.GetMember(ctx, applicationID, callerID); err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeForbidden, "not a member of application", nil)
		}
		return nil, err
	}
	return s.repo.ListMembers(ctx, applicationID)
}

func (s *ApplicationService) ListByStudent(ctx context.Context, studentID common.UUID) ([]application.Application, error) {
	return s.repo.ListByStudent(ctx, studentID)
}

func (s *ApplicationService) ListByCompany(ctx context.Context, companyID common.UUID) ([]application.Application, error) {
	return s.repo.ListByCompany(ctx, companyID)
}

// autoSubmit runs the same guarded transition as a manual submit. A
// conflict here means the race was lost to a concurrent submit, which is
// not an error worth surfacing.
func (s *ApplicationService) autoSubmit(ctx context.Context, applicationID common.UUID) error {
	err := s.submitPending(ctx, applicationID)
	if err != nil && common.Is(err, common.CodeConflict) {
		return nil
	}
	return err
}

func (s *ApplicationService) submitPending(ctx context.Context, applicationID common.UUID) error {
	now := time.Now().UTC()
	changed, err := s.repo.SubmitIfPending(ctx, applicationID, now)
	if err != nil {
		return err
	}
	if !changed {
		current, err := s.repo.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if current.Status == application.StatusSubmitted {
			return common.NewError(common.CodeConflict, "application already submitted", nil)
		}
		return common.NewError(common.CodeValidation, "application already decided", nil)
	}
	_ = s.analytics.Create(ctx, analytics.Event{Name: "application.submitted", Payload: analyticsPayload(ctx, map[string]string{"application_id": applicationID.String()})})
	s.notifySubmission(ctx, applicationID)
	return nil
}

func (s *ApplicationService) notifySubmission(ctx context.Context, applicationID common.UUID) {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		s.logError(fmt.Sprintf("failed to load application for submission fan-out application_id=%s: %v", applicationID, err))
		return
	}
	proj, err := s.projects.GetByID(ctx, app.ProjectID)
	if err != nil {
		s.logError(fmt.Sprintf("failed to load project for submission fan-out application_id=%s: %v", applicationID, err))
		return
	}
	members, err := s.repo.ListMembers(ctx, applicationID)
	if err != nil {
		s.logError(fmt.Sprintf("failed to list members for submission fan-out application_id=%s: %v", applicationID, err))
		return
	}
	contacts, err := s.repo.ListMemberContacts(ctx, applicationID)
	if err != nil {
		s.logError(fmt.Sprintf("failed to list contacts for submission fan-out application_id=%s: %v", applicationID, err))
		return
	}
	contactByID := make(map[common.UUID]application.MemberContact, len(contacts))
	for _, contact := range contacts {
		contactByID[contact.StudentID] = contact
	}
	for _, member := range members {
		contact, ok := contactByID[member.StudentID]
		if !ok {
			continue
		}
		template := notification.TemplateSubmitted
		if member.InviteStatus == application.InvitePending {
			template = notification.TemplateNeedsConfirmation
		}
		s.dispatch(notification.Message{
			Template: template,
			To:       notification.Recipient{Name: contact.Name, Email: contact.Email},
			Params:   map[string]string{"project_title": proj.Title},
		})
	}
}

func (s *ApplicationService) notifyLeadOfConfirmation(ctx context.Context, app *application.Application, confirmedID common.UUID) {
	contacts, err := s.repo.ListMemberContacts(ctx, app.ID)
	if err != nil {
		s.logError(fmt.Sprintf("failed to list contacts for confirmation application_id=%s: %v", app.ID, err))
		return
	}
	var lead, confirmed *application.MemberContact
	for i := range contacts {
		switch contacts[i].StudentID {
		case app.TeamLeadID:
			lead = &contacts[i]
		case confirmedID:
			confirmed = &contacts[i]
		}
	}
	if lead == nil || confirmed == nil {
		return
	}
	s.dispatch(notification.Message{
		Template: notification.TemplateMemberConfirmed,
		To:       notification.Recipient{Name: lead.Name, Email: lead.Email},
		Params:   map[string]string{"member_name": confirmed.Name},
	})
}

func (s *ApplicationService) resolveInvitees(ctx context.Context, leadID common.UUID, memberIDs []common.UUID) ([]*user.User, error) {
	seen := map[common.UUID]bool{leadID: true}
	var invited []*user.User
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		account, err := s.users.GetByID(ctx, id)
		if err != nil {
			if common.Is(err, common.CodeNotFound) {
				return nil, common.NewValidationError("invalid team", map[string]string{"member_ids": "unknown student " + id.String()})
			}
			return nil, err
		}
		if !hasRole(account.Roles, user.RoleStudent) {
			return nil, common.NewValidationError("invalid team", map[string]string{"member_ids": account.Email + " is not a student"})
		}
		invited = append(invited, account)
	}
	return invited, nil
}

// dispatch sends one notification without blocking or failing the caller.
func (s *ApplicationService) dispatch(msg notification.Message) {
	if s.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logError(fmt.Sprintf("notification %s to %s failed: %v", msg.Template, msg.To.Email, err))
		}
	}()
}

func (s *ApplicationService) logError(msg string) {
	if s.logger == nil {
		return
	}
	s.logger.Error(msg)
}

func isFinalStatus(status application.Status) bool {
	return status == application.StatusAccepted || status == application.StatusRejected
}

func disbandError(message string) error {
	switch message {
	case "application not found":
		return common.NewError(common.CodeNotFound, message, nil)
	case "not a member of application":
		return common.NewError(common.CodeForbidden, message, nil)
	case "application already decided":
		return common.NewError(common.CodeValidation, message, nil)
	default:
		return common.NewError(common.CodeInternal, message, nil)
	}
}

func hasRole(roles []user.Role, role user.Role) bool {
	for _, existing := range roles {
		if existing == role {
			return true
		}
	}
	return false
}

func boolParam(value bool) string {
	if value {
		return "true"
	}
	return "false"
}
