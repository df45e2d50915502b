package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"studieo/internal/common"
	"studieo/internal/domain/analytics"
	"studieo/internal/domain/application"
	"studieo/internal/domain/notification"
	"studieo/internal/domain/profile"
	"studieo/internal/domain/project"
	"studieo/internal/domain/user"
)

type fakeUserRepo struct {
	mu   sync.Mutex
	byID map[common.UUID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[common.UUID]*user.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, id common.UUID, email, fullName string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID[id] != nil {
		return nil, common.NewError(common.CodeConflict, "user already exists", nil)
	}
	now := time.Now().UTC()
	account := &user.User{ID: id, Email: email, FullName: fullName, CreatedAt: now, UpdatedAt: now}
	r.byID[id] = account
	return cloneUser(account), nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id common.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account := r.byID[id]
	if account == nil {
		return nil, common.NewError(common.CodeNotFound, "user not found", nil)
	}
	return cloneUser(account), nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.byID {
		if account.Email == email {
			return cloneUser(account), nil
		}
	}
	return nil, common.NewError(common.CodeNotFound, "user not found", nil)
}

func (r *fakeUserRepo) SetRoles(ctx context.Context, userID common.UUID, roles []user.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account := r.byID[userID]
	if account == nil {
		return common.NewError(common.CodeNotFound, "user not found", nil)
	}
	account.Roles = append([]user.Role(nil), roles...)
	return nil
}

func (r *fakeUserRepo) ListRoles(ctx context.Context, userID common.UUID) ([]user.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account := r.byID[userID]
	if account == nil {
		return nil, common.NewError(common.CodeNotFound, "user not found", nil)
	}
	return append([]user.Role(nil), account.Roles...), nil
}

func cloneUser(account *user.User) *user.User {
	copy := *account
	copy.Roles = append([]user.Role(nil), account.Roles...)
	return &copy
}

type fakeProjectRepo struct {
	mu   sync.Mutex
	byID map[common.UUID]*project.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{byID: make(map[common.UUID]*project.Project)}
}

func (r *fakeProjectRepo) Create(ctx context.Context, p project.Project) (*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = common.NewUUID()
	stored := p
	r.byID[p.ID] = &stored
	return &p, nil
}

func (r *fakeProjectRepo) Update(ctx context.Context, p project.Project) (*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID[p.ID] == nil {
		return nil, common.NewError(common.CodeNotFound, "project not found", nil)
	}
	stored := p
	r.byID[p.ID] = &stored
	return &p, nil
}

func (r *fakeProjectRepo) GetByID(ctx context.Context, id common.UUID) (*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.byID[id]
	if p == nil {
		return nil, common.NewError(common.CodeNotFound, "project not found", nil)
	}
	copy := *p
	return &copy, nil
}

func (r *fakeProjectRepo) ListAccepting(ctx context.Context, limit, offset int) ([]project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []project.Project
	for _, p := range r.byID {
		if p.Status == project.StatusAccepting {
			items = append(items, *p)
		}
	}
	return items, nil
}

func (r *fakeProjectRepo) ListByCompany(ctx context.Context, companyID common.UUID) ([]project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []project.Project
	for _, p := range r.byID {
		if p.CompanyID == companyID {
			items = append(items, *p)
		}
	}
	return items, nil
}

type fakeStudentProfileRepo struct {
	mu       sync.Mutex
	profiles map[common.UUID]*profile.StudentProfile
}

func newFakeStudentProfileRepo() *fakeStudentProfileRepo {
	return &fakeStudentProfileRepo{profiles: make(map[common.UUID]*profile.StudentProfile)}
}

func (r *fakeStudentProfileRepo) GetByUserID(ctx context.Context, userID common.UUID) (*profile.StudentProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profiles[userID]
	if p == nil {
		return nil, common.NewError(common.CodeNotFound, "student profile not found", nil)
	}
	copy := *p
	return &copy, nil
}

func (r *fakeStudentProfileRepo) Upsert(ctx context.Context, p profile.StudentProfile) (*profile.StudentProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := p
	r.profiles[p.UserID] = &stored
	return &p, nil
}

type fakeCompanyProfileRepo struct {
	mu       sync.Mutex
	profiles map[common.UUID]*profile.CompanyProfile
}

func newFakeCompanyProfileRepo() *fakeCompanyProfileRepo {
	return &fakeCompanyProfileRepo{profiles: make(map[common.UUID]*profile.CompanyProfile)}
}

func (r *fakeCompanyProfileRepo) GetByUserID(ctx context.Context, userID common.UUID) (*profile.CompanyProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profiles[userID]
	if p == nil {
		return nil, common.NewError(common.CodeNotFound, "company profile not found", nil)
	}
	copy := *p
	return &copy, nil
}

func (r *fakeCompanyProfileRepo) Upsert(ctx context.Context, p profile.CompanyProfile) (*profile.CompanyProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := p
	r.profiles[p.UserID] = &stored
	return &p, nil
}

// fakeApplicationRepo mirrors the store semantics the service depends on:
// conditional transitions and a disband that verifies before deleting.
type fakeApplicationRepo struct {
	mu       sync.Mutex
	users    *fakeUserRepo
	projects *fakeProjectRepo
	apps     map[common.UUID]*application.Application
	members  map[common.UUID][]application.TeamMember
}

func newFakeApplicationRepo(users *fakeUserRepo, projects *fakeProjectRepo) *fakeApplicationRepo {
	return &fakeApplicationRepo{
		users:    users,
		projects: projects,
		apps:     make(map[common.UUID]*application.Application),
		members:  make(map[common.UUID][]application.TeamMember),
	}
}

func (r *fakeApplicationRepo) Create(ctx context.Context, app application.Application, members []application.TeamMember) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	app.ID = common.NewUUID()
	app.CreatedAt = now
	app.UpdatedAt = now
	stored := app
	r.apps[app.ID] = &stored
	list := make([]application.TeamMember, len(members))
	for i, member := range members {
		member.ApplicationID = app.ID
		member.CreatedAt = now
		list[i] = member
	}
	r.members[app.ID] = list
	return &app, nil
}

func (r *fakeApplicationRepo) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app := r.apps[id]
	if app == nil {
		return nil, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	copy := *app
	return &copy, nil
}

func (r *fakeApplicationRepo) FindByProjectAndLead(ctx context.Context, projectID, leadID common.UUID) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps {
		if app.ProjectID == projectID && app.TeamLeadID == leadID {
			copy := *app
			return &copy, nil
		}
	}
	return nil, common.NewError(common.CodeNotFound, "application not found", nil)
}

func (r *fakeApplicationRepo) GetMember(ctx context.Context, applicationID, studentID common.UUID) (*application.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, member := range r.members[applicationID] {
		if member.StudentID == studentID {
			copy := member
			return &copy, nil
		}
	}
	return nil, common.NewError(common.CodeNotFound, "team member not found", nil)
}

func (r *fakeApplicationRepo) ListMembers(ctx context.Context, applicationID common.UUID) ([]application.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]application.TeamMember(nil), r.members[applicationID]...), nil
}

func (r *fakeApplicationRepo) ListMemberContacts(ctx context.Context, applicationID common.UUID) ([]application.MemberContact, error) {
	r.mu.Lock()
	members := append([]application.TeamMember(nil), r.members[applicationID]...)
	r.mu.Unlock()
	contacts := make([]application.MemberContact, 0, len(members))
	for _, member := range members {
		account, err := r.users.GetByID(ctx, member.StudentID)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, application.MemberContact{StudentID: account.ID, Name: account.FullName, Email: account.Email})
	}
	return contacts, nil
}

func (r *fakeApplicationRepo) ConfirmMember(ctx context.Context, applicationID, studentID common.UUID, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.members[applicationID]
	confirmed := false
	for i := range members {
		if members[i].StudentID == studentID {
			if members[i].InviteStatus != application.InvitePending {
				return 0, common.NewError(common.CodeConflict, "membership already confirmed", nil)
			}
			members[i].InviteStatus = application.InviteAccepted
			confirmedAt := at
			members[i].ConfirmedAt = &confirmedAt
			confirmed = true
		}
	}
	if !confirmed {
		return 0, common.NewError(common.CodeNotFound, "team member not found", nil)
	}
	pending := 0
	for _, member := range members {
		if member.InviteStatus != application.InviteAccepted {
			pending++
		}
	}
	return pending, nil
}

func (r *fakeApplicationRepo) SubmitIfPending(ctx context.Context, applicationID common.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app := r.apps[applicationID]
	if app == nil {
		return false, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	if app.Status != application.StatusPending {
		return false, nil
	}
	app.Status = application.StatusSubmitted
	submittedAt := at
	app.SubmittedAt = &submittedAt
	app.UpdatedAt = at
	return true, nil
}

func (r *fakeApplicationRepo) Decide(ctx context.Context, applicationID common.UUID, next application.Status, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app := r.apps[applicationID]
	if app == nil {
		return false, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	if app.Status != application.StatusSubmitted {
		return false, nil
	}
	app.Status = next
	app.UpdatedAt = at
	return true, nil
}

func (r *fakeApplicationRepo) Disband(ctx context.Context, applicationID, studentID common.UUID) (*application.DisbandResult, error) {
	r.mu.Lock()
	app := r.apps[applicationID]
	if app == nil {
		r.mu.Unlock()
		return &application.DisbandResult{Success: false, Error: "application not found"}, nil
	}
	if app.Status == application.StatusAccepted || app.Status == application.StatusRejected {
		r.mu.Unlock()
		return &application.DisbandResult{Success: false, Error: "application already decided"}, nil
	}
	isMember := false
	for _, member := range r.members[applicationID] {
		if member.StudentID == studentID {
			isMember = true
			break
		}
	}
	if !isMember {
		r.mu.Unlock()
		return &application.DisbandResult{Success: false, Error: "not a member of application"}, nil
	}
	members := append([]application.TeamMember(nil), r.members[applicationID]...)
	delete(r.apps, applicationID)
	delete(r.members, applicationID)
	r.mu.Unlock()

	result := &application.DisbandResult{Success: true}
	for _, member := range members {
		account, err := r.users.GetByID(ctx, member.StudentID)
		if err != nil {
			return nil, err
		}
		result.Members = append(result.Members, application.MemberContact{StudentID: account.ID, Name: account.FullName, Email: account.Email})
	}
	return result, nil
}

func (r *fakeApplicationRepo) ListByStudent(ctx context.Context, studentID common.UUID) ([]application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []application.Application
	for id, members := range r.members {
		for _, member := range members {
			if member.StudentID == studentID {
				items = append(items, *r.apps[id])
				break
			}
		}
	}
	return items, nil
}

func (r *fakeApplicationRepo) ListByCompany(ctx context.Context, companyID common.UUID) ([]application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []application.Application
	for _, app := range r.apps {
		proj, err := r.projects.GetByID(ctx, app.ProjectID)
		if err != nil {
			continue
		}
		if proj.CompanyID == companyID {
			items = append(items, *app)
		}
	}
	return items, nil
}

func (r *fakeApplicationRepo) ListStaleInvites(ctx context.Context, invitedBefore time.Time) ([]application.StaleInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []application.StaleInvite
	for id, members := range r.members {
		app := r.apps[id]
		if app == nil || app.Status != application.StatusPending {
			continue
		}
		for _, member := range members {
			if member.InviteStatus == application.InvitePending && member.CreatedAt.Before(invitedBefore) {
				account := r.users.byID[member.StudentID]
				items = append(items, application.StaleInvite{
					ApplicationID: id,
					Member:        application.MemberContact{StudentID: member.StudentID, Name: account.FullName, Email: account.Email},
					InvitedAt:     member.CreatedAt,
				})
			}
		}
	}
	return items, nil
}

type noopAnalyticsRepo struct{}

func (noopAnalyticsRepo) Create(ctx context.Context, event analytics.Event) error {
	return nil
}

type recordingDispatcher struct {
	mu       sync.Mutex
	err      error
	messages []notification.Message
}

func (d *recordingDispatcher) Send(ctx context.Context, msg notification.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	return d.err
}

func (d *recordingDispatcher) count(template string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, msg := range d.messages {
		if msg.Template == template {
			total++
		}
	}
	return total
}

func (d *recordingDispatcher) find(template, email string) *notification.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, msg := range d.messages {
		if msg.Template == template && msg.To.Email == email {
			copy := msg
			return &copy
		}
	}
	return nil
}

// waitForMessages polls because dispatch happens in goroutines the service
// does not await.
func waitForMessages(t *testing.T, d *recordingDispatcher, template string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.count(template) >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d %q messages, got %d", want, template, d.count(template))
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Info(msg string) {}

func (l *recordingLogger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) hasError(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, msg := range l.errors {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// failingReadApplicationRepo turns GetByID into a hard store error once
// armed, leaving every other operation on the embedded fake intact.
type failingReadApplicationRepo struct {
	*fakeApplicationRepo
	mu   sync.Mutex
	fail bool
}

func (r *failingReadApplicationRepo) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *failingReadApplicationRepo) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	r.mu.Lock()
	fail := r.fail
	r.mu.Unlock()
	if fail {
		return nil, common.NewError(common.CodeInternal, "store unavailable", nil)
	}
	return r.fakeApplicationRepo.GetByID(ctx, id)
}

type lifecycleFixture struct {
	service   *ApplicationService
	apps      *fakeApplicationRepo
	projects  *fakeProjectRepo
	students  *fakeStudentProfileRepo
	companies *fakeCompanyProfileRepo
	users     *fakeUserRepo
	mailer    *recordingDispatcher
}

func newLifecycleFixture() *lifecycleFixture {
	users := newFakeUserRepo()
	projects := newFakeProjectRepo()
	students := newFakeStudentProfileRepo()
	companies := newFakeCompanyProfileRepo()
	apps := newFakeApplicationRepo(users, projects)
	mailer := &recordingDispatcher{}
	service := NewApplicationService(apps, projects, students, companies, users, noopAnalyticsRepo{}, mailer, nil)
	return &lifecycleFixture{
		service:   service,
		apps:      apps,
		projects:  projects,
		students:  students,
		companies: companies,
		users:     users,
		mailer:    mailer,
	}
}

func (f *lifecycleFixture) addStudent(t *testing.T, name, email string) common.UUID {
	t.Helper()
	account, err := f.users.Create(context.Background(), common.NewUUID(), email, name)
	if err != nil {
		t.Fatalf("expected student created, got %v", err)
	}
	if err := f.users.SetRoles(context.Background(), account.ID, []user.Role{user.RoleStudent}); err != nil {
		t.Fatalf("expected roles set, got %v", err)
	}
	if _, err := f.students.Upsert(context.Background(), profile.StudentProfile{
		UserID:     account.ID,
		University: "Test University",
		Program:    "Computer Science",
		Skills:     []string{"go"},
	}); err != nil {
		t.Fatalf("expected profile saved, got %v", err)
	}
	return account.ID
}

func (f *lifecycleFixture) addCompany(t *testing.T, name string) common.UUID {
	t.Helper()
	account, err := f.users.Create(context.Background(), common.NewUUID(), name+"@corp.test", name)
	if err != nil {
		t.Fatalf("expected company created, got %v", err)
	}
	if err := f.users.SetRoles(context.Background(), account.ID, []user.Role{user.RoleCompany}); err != nil {
		t.Fatalf("expected roles set, got %v", err)
	}
	if _, err := f.companies.Upsert(context.Background(), profile.CompanyProfile{
		UserID:       account.ID,
		CompanyName:  name,
		ContactName:  name + " Contact",
		ContactEmail: "contact@" + name + ".test",
		ContactRole:  "CTO",
	}); err != nil {
		t.Fatalf("expected company profile saved, got %v", err)
	}
	return account.ID
}

func (f *lifecycleFixture) addProject(t *testing.T, companyID common.UUID, status project.Status, teamSize int) common.UUID {
	t.Helper()
	created, err := f.projects.Create(context.Background(), project.Project{
		CompanyID: companyID,
		Title:     "Search Engine",
		Status:    status,
		TeamSize:  teamSize,
	})
	if err != nil {
		t.Fatalf("expected project created, got %v", err)
	}
	return created.ID
}

func (f *lifecycleFixture) createTeam(t *testing.T, projectID, leadID common.UUID, memberIDs ...common.UUID) *application.Application {
	t.Helper()
	created, err := f.service.Create(context.Background(), leadID, CreateApplicationInput{
		ProjectID: projectID,
		MemberIDs: memberIDs,
	})
	if err != nil {
		t.Fatalf("expected application created, got %v", err)
	}
	return created
}

func TestCreateTeamLeadPreAccepted(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mate := f.addStudent(t, "Mate", "mate@test")

	created := f.createTeam(t, projectID, lead, mate)

	if created.Status != application.StatusPending {
		t.Fatalf("expected pending status, got %s", created.Status)
	}
	leadMember, err := f.apps.GetMember(context.Background(), created.ID, lead)
	if err != nil {
		t.Fatalf("expected lead member, got %v", err)
	}
	if !leadMember.IsLead || leadMember.InviteStatus != application.InviteAccepted || leadMember.ConfirmedAt == nil {
		t.Fatalf("expected lead pre-accepted, got %+v", leadMember)
	}
	mateMember, err := f.apps.GetMember(context.Background(), created.ID, mate)
	if err != nil {
		t.Fatalf("expected invited member, got %v", err)
	}
	if mateMember.InviteStatus != application.InvitePending {
		t.Fatalf("expected pending invite, got %s", mateMember.InviteStatus)
	}
	waitForMessages(t, f.mailer, notification.TemplateTeamInvite, 1)
	if msg := f.mailer.find(notification.TemplateTeamInvite, "mate@test"); msg == nil {
		t.Fatal("expected invite mailed to the invited member")
	}
}

func TestCreateSoloTeamAutoSubmits(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")

	created := f.createTeam(t, projectID, lead)

	if created.Status != application.StatusSubmitted {
		t.Fatalf("expected solo team to auto-submit, got %s", created.Status)
	}
	if created.SubmittedAt == nil {
		t.Fatal("expected submitted_at to be set")
	}
}

func TestCreateSoloTeamLogsFailedRefresh(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")

	apps := &failingReadApplicationRepo{fakeApplicationRepo: f.apps}
	logger := &recordingLogger{}
	service := NewApplicationService(apps, f.projects, f.students, f.companies, f.users, noopAnalyticsRepo{}, f.mailer, logger)
	apps.setFail(true)

	created, err := service.Create(context.Background(), lead, CreateApplicationInput{ProjectID: projectID})
	if err != nil {
		t.Fatalf("expected create to survive a failed refresh, got %v", err)
	}
	if created.Status != application.StatusPending {
		t.Fatalf("expected the pre-submit snapshot when the reload fails, got %s", created.Status)
	}

	apps.setFail(false)
	stored, err := f.apps.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("expected application, got %v", err)
	}
	if stored.Status != application.StatusSubmitted {
		t.Fatalf("expected the store row submitted regardless, got %s", stored.Status)
	}
	if !logger.hasError("failed to reload application after auto-submit") {
		t.Fatal("expected the reload failure to be logged")
	}
}

func TestCreateRejectsIncompleteProfile(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	account, err := f.users.Create(context.Background(), common.NewUUID(), "bare@test", "Bare")
	if err != nil {
		t.Fatalf("expected user created, got %v", err)
	}

	_, err = f.service.Create(context.Background(), account.ID, CreateApplicationInput{ProjectID: projectID})
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsClosedProject(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusClosed, 3)
	lead := f.addStudent(t, "Lead", "lead@test")

	_, err := f.service.Create(context.Background(), lead, CreateApplicationInput{ProjectID: projectID})
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsDuplicateApplication(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mate := f.addStudent(t, "Mate", "mate@test")
	f.createTeam(t, projectID, lead, mate)

	_, err := f.service.Create(context.Background(), lead, CreateApplicationInput{ProjectID: projectID, MemberIDs: []common.UUID{mate}})
	if !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestCreateRejectsOversizedTeam(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 2)
	lead := f.addStudent(t, "Lead", "lead@test")
	mateA := f.addStudent(t, "MateA", "a@test")
	mateB := f.addStudent(t, "MateB", "b@test")

	_, err := f.service.Create(context.Background(), lead, CreateApplicationInput{ProjectID: projectID, MemberIDs: []common.UUID{mateA, mateB}})
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfirmLastMemberAutoSubmits(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mateA := f.addStudent(t, "MateA", "a@test")
	mateB := f.addStudent(t, "MateB", "b@test")
	created := f.createTeam(t, projectID, lead, mateA, mateB)

	if _, err := f.service.ConfirmMembership(context.Background(), created.ID, mateA); err != nil {
		t.Fatalf("expected first confirm to succeed, got %v", err)
	}
	afterFirst, err := f.apps.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("expected application, got %v", err)
	}
	if afterFirst.Status != application.StatusPending {
		t.Fatalf("expected still pending after first confirm, got %s", afterFirst.Status)
	}

	if _, err := f.service.ConfirmMembership(context.Background(), created.ID, mateB); err != nil {
		t.Fatalf("expected last confirm to succeed, got %v", err)
	}
	afterLast, err := f.apps.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("expected application, got %v", err)
	}
	if afterLast.Status != application.StatusSubmitted {
		t.Fatalf("expected auto-submit on full consensus, got %s", afterLast.Status)
	}
	if afterLast.SubmittedAt == nil {
		t.Fatal("expected submitted_at to be set")
	}
	waitForMessages(t, f.mailer, notification.TemplateMemberConfirmed, 2)
	waitForMessages(t, f.mailer, notification.TemplateSubmitted, 3)
}

func TestSimultaneousFinalConfirmsSubmitOnce(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 4)
	lead := f.addStudent(t, "Lead", "lead@test")
	mateA := f.addStudent(t, "MateA", "a@test")
	mateB := f.addStudent(t, "MateB", "b@test")
	created := f.createTeam(t, projectID, lead, mateA, mateB)

	var wg sync.WaitGroup
	for _, studentID := range []common.UUID{mateA, mateB} {
		wg.Add(1)
		go func(id common.UUID) {
			defer wg.Done()
			if _, err := f.service.ConfirmMembership(context.Background(), created.ID, id); err != nil {
				t.Errorf("expected confirm to succeed, got %v", err)
			}
		}(studentID)
	}
	wg.Wait()

	refreshed, err := f.apps.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("expected application, got %v", err)
	}
	if refreshed.Status != application.StatusSubmitted {
		t.Fatalf("expected auto-submit once every confirm is committed, got %s", refreshed.Status)
	}
	waitForMessages(t, f.mailer, notification.TemplateSubmitted, 3)
	if got := f.mailer.count(notification.TemplateSubmitted); got != 3 {
		t.Fatalf("expected one submission notice per member, got %d", got)
	}
}

func TestConfirmTwiceIsConflict(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mateA := f.addStudent(t, "MateA", "a@test")
	mateB := f.addStudent(t, "MateB", "b@test")
	created := f.createTeam(t, projectID, lead, mateA, mateB)

	if _, err := f.service.ConfirmMembership(context.Background(), created.ID, mateA); err != nil {
		t.Fatalf("expected confirm to succeed, got %v", err)
	}
	_, err := f.service.ConfirmMembership(context.Background(), created.ID, mateA)
	if !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestConfirmByNonMemberIsForbidden(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mate := f.addStudent(t, "Mate", "mate@test")
	outsider := f.addStudent(t, "Outsider", "out@test")
	created := f.createTeam(t, projectID, lead, mate)

	_, err := f.service.ConfirmMembership(context.Background(), created.ID, outsider)
	if !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestSubmitIsLeadOnlyAndIdempotent(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mate := f.addStudent(t, "Mate", "mate@test")
	created := f.createTeam(t, projectID, lead, mate)

	if _, err := f.service.Submit(context.Background(), created.ID, mate); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden for non-lead, got %v", err)
	}

	submitted, err := f.service.Submit(context.Background(), created.ID, lead)
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	if submitted.Status != application.StatusSubmitted {
		t.Fatalf("expected submitted status, got %s", submitted.Status)
	}

	_, err = f.service.Submit(context.Background(), created.ID, lead)
	if !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict on second submit, got %v", err)
	}
}

func TestSubmitNotifiesPendingMembersDifferently(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mateA := f.addStudent(t, "MateA", "a@test")
	mateB := f.addStudent(t, "MateB", "b@test")
	created := f.createTeam(t, projectID, lead, mateA, mateB)

	if _, err := f.service.ConfirmMembership(context.Background(), created.ID, mateA); err != nil {
		t.Fatalf("expected confirm to succeed, got %v", err)
	}
	if _, err := f.service.Submit(context.Background(), created.ID, lead); err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}

	waitForMessages(t, f.mailer, notification.TemplateSubmitted, 2)
	waitForMessages(t, f.mailer, notification.TemplateNeedsConfirmation, 1)
	if msg := f.mailer.find(notification.TemplateNeedsConfirmation, "b@test"); msg == nil {
		t.Fatal("expected the still-pending member to get the confirmation call-to-action")
	}
}

func TestDeclineDisbandsAndNotifiesEveryMemberOnce(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mateA := f.addStudent(t, "MateA", "a@test")
	mateB := f.addStudent(t, "MateB", "b@test")
	created := f.createTeam(t, projectID, lead, mateA, mateB)

	if err := f.service.DeclineMembership(context.Background(), created.ID, mateA); err != nil {
		t.Fatalf("expected decline to succeed, got %v", err)
	}

	if _, err := f.apps.GetByID(context.Background(), created.ID); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected application deleted, got %v", err)
	}
	waitForMessages(t, f.mailer, notification.TemplateDisbanded, 3)
	if got := f.mailer.count(notification.TemplateDisbanded); got != 3 {
		t.Fatalf("expected exactly one notification per member, got %d", got)
	}
	decliner := f.mailer.find(notification.TemplateDisbanded, "a@test")
	if decliner == nil || decliner.Params["is_declined_by"] != "true" {
		t.Fatalf("expected decliner copy flagged, got %+v", decliner)
	}
	other := f.mailer.find(notification.TemplateDisbanded, "lead@test")
	if other == nil || other.Params["is_declined_by"] != "false" {
		t.Fatalf("expected non-decliner copy unflagged, got %+v", other)
	}
	if other.Params["declined_by"] != "MateA" {
		t.Fatalf("expected decliner name in params, got %q", other.Params["declined_by"])
	}
}

func TestDeclineAfterDecisionFails(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mate := f.addStudent(t, "Mate", "mate@test")
	created := f.createTeam(t, projectID, lead, mate)

	if _, err := f.service.ConfirmMembership(context.Background(), created.ID, mate); err != nil {
		t.Fatalf("expected confirm to succeed, got %v", err)
	}
	if _, err := f.service.Accept(context.Background(), created.ID, companyID); err != nil {
		t.Fatalf("expected accept to succeed, got %v", err)
	}

	err := f.service.DeclineMembership(context.Background(), created.ID, mate)
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error on decided application, got %v", err)
	}
	if _, getErr := f.apps.GetByID(context.Background(), created.ID); getErr != nil {
		t.Fatalf("expected decided application untouched, got %v", getErr)
	}
}

func TestWithdrawIsLeadOnlyAndNotifiesOthers(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mate := f.addStudent(t, "Mate", "mate@test")
	created := f.createTeam(t, projectID, lead, mate)

	if err := f.service.Withdraw(context.Background(), created.ID, mate); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden for non-lead, got %v", err)
	}

	if err := f.service.Withdraw(context.Background(), created.ID, lead); err != nil {
		t.Fatalf("expected withdraw to succeed, got %v", err)
	}
	if _, err := f.apps.GetByID(context.Background(), created.ID); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected application deleted, got %v", err)
	}
	waitForMessages(t, f.mailer, notification.TemplateWithdrawn, 1)
	msg := f.mailer.find(notification.TemplateWithdrawn, "mate@test")
	if msg == nil {
		t.Fatal("expected withdrawal notice for the non-lead member")
	}
	if msg.Params["lead_name"] != "Lead" {
		t.Fatalf("expected lead name in params, got %q", msg.Params["lead_name"])
	}
	if f.mailer.find(notification.TemplateWithdrawn, "lead@test") != nil {
		t.Fatal("expected no withdrawal notice for the lead")
	}
}

func TestWithdrawAfterSubmissionDisbands(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mate := f.addStudent(t, "Mate", "mate@test")
	created := f.createTeam(t, projectID, lead, mate)

	if _, err := f.service.ConfirmMembership(context.Background(), created.ID, mate); err != nil {
		t.Fatalf("expected confirm to succeed, got %v", err)
	}
	submitted, err := f.apps.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("expected application, got %v", err)
	}
	if submitted.Status != application.StatusSubmitted {
		t.Fatalf("expected submitted before withdraw, got %s", submitted.Status)
	}

	if err := f.service.Withdraw(context.Background(), created.ID, lead); err != nil {
		t.Fatalf("expected withdraw of submitted application to succeed, got %v", err)
	}
	if _, err := f.apps.GetByID(context.Background(), created.ID); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected application deleted, got %v", err)
	}
	waitForMessages(t, f.mailer, notification.TemplateWithdrawn, 1)
	if f.mailer.find(notification.TemplateWithdrawn, "mate@test") == nil {
		t.Fatal("expected withdrawal notice for the non-lead member")
	}
}

func TestAcceptRequiresSubmission(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mate := f.addStudent(t, "Mate", "mate@test")
	created := f.createTeam(t, projectID, lead, mate)

	_, err := f.service.Accept(context.Background(), created.ID, companyID)
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error for pending application, got %v", err)
	}
}

func TestAcceptIsTerminalAndCarriesContact(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mate := f.addStudent(t, "Mate", "mate@test")
	created := f.createTeam(t, projectID, lead, mate)

	if _, err := f.service.ConfirmMembership(context.Background(), created.ID, mate); err != nil {
		t.Fatalf("expected confirm to succeed, got %v", err)
	}
	accepted, err := f.service.Accept(context.Background(), created.ID, companyID)
	if err != nil {
		t.Fatalf("expected accept to succeed, got %v", err)
	}
	if accepted.Status != application.StatusAccepted {
		t.Fatalf("expected accepted status, got %s", accepted.Status)
	}

	if _, err := f.service.Reject(context.Background(), created.ID, companyID); !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict on decided application, got %v", err)
	}
	if _, err := f.service.Accept(context.Background(), created.ID, companyID); !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict on repeated accept, got %v", err)
	}

	waitForMessages(t, f.mailer, notification.TemplateAccepted, 2)
	msg := f.mailer.find(notification.TemplateAccepted, "mate@test")
	if msg == nil {
		t.Fatal("expected acceptance notice")
	}
	if msg.Params["contact_email"] != "contact@acme.test" {
		t.Fatalf("expected company contact in params, got %q", msg.Params["contact_email"])
	}
}

func TestDecideByOtherCompanyIsForbidden(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	otherCompanyID := f.addCompany(t, "rival")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	created := f.createTeam(t, projectID, lead)

	_, err := f.service.Accept(context.Background(), created.ID, otherCompanyID)
	if !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	current, getErr := f.apps.GetByID(context.Background(), created.ID)
	if getErr != nil {
		t.Fatalf("expected application, got %v", getErr)
	}
	if current.Status != application.StatusSubmitted {
		t.Fatalf("expected status unchanged, got %s", current.Status)
	}
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	f := newLifecycleFixture()
	f.mailer.err = errors.New("smtp down")
	companyID := f.addCompany(t, "acme")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	mate := f.addStudent(t, "Mate", "mate@test")
	created := f.createTeam(t, projectID, lead, mate)

	if _, err := f.service.ConfirmMembership(context.Background(), created.ID, mate); err != nil {
		t.Fatalf("expected confirm to succeed despite mailer failure, got %v", err)
	}
	current, err := f.apps.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("expected application, got %v", err)
	}
	if current.Status != application.StatusSubmitted {
		t.Fatalf("expected auto-submit to land, got %s", current.Status)
	}
}

func TestGetVisibility(t *testing.T) {
	f := newLifecycleFixture()
	companyID := f.addCompany(t, "acme")
	otherCompanyID := f.addCompany(t, "rival")
	projectID := f.addProject(t, companyID, project.StatusAccepting, 3)
	lead := f.addStudent(t, "Lead", "lead@test")
	outsider := f.addStudent(t, "Outsider", "out@test")
	created := f.createTeam(t, projectID, lead)

	if _, err := f.service.Get(context.Background(), created.ID, lead, user.RoleStudent); err != nil {
		t.Fatalf("expected member to see application, got %v", err)
	}
	if _, err := f.service.Get(context.Background(), created.ID, outsider, user.RoleStudent); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden for non-member, got %v", err)
	}
	if _, err := f.service.Get(context.Background(), created.ID, companyID, user.RoleCompany); err != nil {
		t.Fatalf("expected owning company to see application, got %v", err)
	}
	if _, err := f.service.Get(context.Background(), created.ID, otherCompanyID, user.RoleCompany); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden for other company, got %v", err)
	}
}
