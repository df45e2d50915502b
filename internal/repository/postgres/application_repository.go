package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"studieo/internal/common"
	"studieo/internal/domain/application"
)

type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, project_id, team_lead_id, status, design_doc_url, created_at, submitted_at, updated_at`

func (r *ApplicationRepository) Create(ctx context.Context, app application.Application, members []application.TeamMember) (*application.Application, error) {
	app.ID = common.NewUUID()
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()
	_, err = tx.ExecContext(ctx, `INSERT INTO applications (id, project_id, team_lead_id, status, design_doc_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		app.ID, app.ProjectID, app.TeamLeadID, app.Status, nullString(app.DesignDocURL), app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to create application", err)
	}
	for i := range members {
		members[i].ApplicationID = app.ID
		members[i].CreatedAt = now
		_, err = tx.ExecContext(ctx, `INSERT INTO team_members (application_id, student_id, is_lead, invite_status, confirmed_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			members[i].ApplicationID, members[i].StudentID, members[i].IsLead, members[i].InviteStatus, nullTime(members[i].ConfirmedAt), members[i].CreatedAt)
		if err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to create team member", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to commit application", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	return scanApplication(row)
}

func (r *ApplicationRepository) FindByProjectAndLead(ctx context.Context, projectID, leadID common.UUID) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE project_id = $1 AND team_lead_id = $2`, projectID, leadID)
	return scanApplication(row)
}

func (r *ApplicationRepository) GetMember(ctx context.Context, applicationID, studentID common.UUID) (*application.TeamMember, error) {
	row := r.db.QueryRowContext(ctx, `SELECT application_id, student_id, is_lead, invite_status, confirmed_at, created_at
		FROM team_members WHERE application_id = $1 AND student_id = $2`, applicationID, studentID)
	var m application.TeamMember
	var confirmedAt sql.NullTime
	if err := row.Scan(&m.ApplicationID, &m.StudentID, &m.IsLead, &m.InviteStatus, &confirmedAt, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "team member not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load team member", err)
	}
	if confirmedAt.Valid {
		m.ConfirmedAt = &confirmedAt.Time
	}
	return &m, nil
}

func (r *ApplicationRepository) ListMembers(ctx context.Context, applicationID common.UUID) ([]application.TeamMember, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT application_id, student_id, is_lead, invite_status, confirmed_at, created_at
		FROM team_members WHERE application_id = $1 ORDER BY created_at`, applicationID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list team members", err)
	}
	defer rows.Close()
	var items []application.TeamMember
	for rows.Next() {
		var m application.TeamMember
		var confirmedAt sql.NullTime
		if err := rows.Scan(&m.ApplicationID, &m.StudentID, &m.IsLead, &m.InviteStatus, &confirmedAt, &m.CreatedAt); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan team member", err)
		}
		if confirmedAt.Valid {
			m.ConfirmedAt = &confirmedAt.Time
		}
		items = append(items, m)
	}
	return items, nil
}

func (r *ApplicationRepository) ListMemberContacts(ctx context.Context, applicationID common.UUID) ([]application.MemberContact, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tm.student_id, u.full_name, u.email
		FROM team_members tm
		JOIN users u ON u.id = tm.student_id
		WHERE tm.application_id = $1 ORDER BY tm.created_at`, applicationID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list member contacts", err)
	}
	defer rows.Close()
	var items []application.MemberContact
	for rows.Next() {
		var c application.MemberContact
		if err := rows.Scan(&c.StudentID, &c.Name, &c.Email); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan member contact", err)
		}
		items = append(items, c)
	}
	return items, nil
}

// ConfirmMember locks the application row, runs the guarded invite update,
// and takes the consensus count in the same transaction. The row lock
// serializes concurrent confirmations for one application; under read
// committed two unserialized counts could each miss the other's update
// and both report members still pending.
func (r *ApplicationRepository) ConfirmMember(ctx context.Context, applicationID, studentID common.UUID, at time.Time) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()
	var lockedID common.UUID
	if err := tx.QueryRowContext(ctx, `SELECT id FROM applications WHERE id = $1 FOR UPDATE`, applicationID).Scan(&lockedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.NewError(common.CodeNotFound, "application not found", nil)
		}
		return 0, common.NewError(common.CodeInternal, "failed to lock application", err)
	}
	result, err := tx.ExecContext(ctx, `UPDATE team_members SET invite_status = $1, confirmed_at = $2
		WHERE application_id = $3 AND student_id = $4 AND invite_status = $5`,
		application.InviteAccepted, at, applicationID, studentID, application.InvitePending)
	if err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to confirm membership", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to confirm membership", err)
	}
	if affected == 0 {
		return 0, common.NewError(common.CodeConflict, "membership already confirmed", nil)
	}
	var pendingLeft int
	row := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM team_members WHERE application_id = $1 AND invite_status <> $2`,
		applicationID, application.InviteAccepted)
	if err := row.Scan(&pendingLeft); err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to count pending members", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to commit confirmation", err)
	}
	return pendingLeft, nil
}

func (r *ApplicationRepository) SubmitIfPending(ctx context.Context, applicationID common.UUID, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE applications SET status = $1, submitted_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4`,
		application.StatusSubmitted, at, applicationID, application.StatusPending)
	if err != nil {
		return false, common.NewError(common.CodeInternal, "failed to submit application", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, common.NewError(common.CodeInternal, "failed to submit application", err)
	}
	return affected > 0, nil
}

func (r *ApplicationRepository) Decide(ctx context.Context, applicationID common.UUID, next application.Status, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE applications SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		next, at, applicationID, application.StatusSubmitted)
	if err != nil {
		return false, common.NewError(common.CodeInternal, "failed to update application status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, common.NewError(common.CodeInternal, "failed to update application status", err)
	}
	return affected > 0, nil
}

func (r *ApplicationRepository) Disband(ctx context.Context, applicationID, studentID common.UUID) (*application.DisbandResult, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT success, error, student_id, full_name, email FROM disband_application($1, $2)`,
		applicationID, studentID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to disband application", err)
	}
	defer rows.Close()
	result := &application.DisbandResult{}
	for rows.Next() {
		var success bool
		var procErr, name, email sql.NullString
		var memberID sql.NullString
		if err := rows.Scan(&success, &procErr, &memberID, &name, &email); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan disband result", err)
		}
		result.Success = success
		if !success {
			result.Error = procErr.String
			return result, nil
		}
		result.Members = append(result.Members, application.MemberContact{
			StudentID: common.UUID(memberID.String),
			Name:      name.String,
			Email:     email.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to read disband result", err)
	}
	return result, nil
}

func (r *ApplicationRepository) ListByStudent(ctx context.Context, studentID common.UUID) ([]application.Application, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT a.id, a.project_id, a.team_lead_id, a.status, a.design_doc_url, a.created_at, a.submitted_at, a.updated_at
		FROM applications a
		JOIN team_members tm ON tm.application_id = a.id
		WHERE tm.student_id = $1
		ORDER BY a.created_at DESC`, studentID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list student applications", err)
	}
	return scanApplications(rows)
}

func (r *ApplicationRepository) ListByCompany(ctx context.Context, companyID common.UUID) ([]application.Application, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT a.id, a.project_id, a.team_lead_id, a.status, a.design_doc_url, a.created_at, a.submitted_at, a.updated_at
		FROM applications a
		JOIN projects p ON p.id = a.project_id
		WHERE p.company_id = $1
		ORDER BY a.created_at DESC`, companyID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list company applications", err)
	}
	return scanApplications(rows)
}

func (r *ApplicationRepository) ListStaleInvites(ctx context.Context, invitedBefore time.Time) ([]application.StaleInvite, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tm.application_id, p.title, tm.student_id, u.full_name, u.email, tm.created_at
		FROM team_members tm
		JOIN applications a ON a.id = tm.application_id
		JOIN projects p ON p.id = a.project_id
		JOIN users u ON u.id = tm.student_id
		WHERE tm.invite_status = $1 AND a.status = $2 AND tm.created_at < $3
		ORDER BY tm.created_at`, application.InvitePending, application.StatusPending, invitedBefore)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list stale invites", err)
	}
	defer rows.Close()
	var items []application.StaleInvite
	for rows.Next() {
		var s application.StaleInvite
		if err := rows.Scan(&s.ApplicationID, &s.ProjectTitle, &s.Member.StudentID, &s.Member.Name, &s.Member.Email, &s.InvitedAt); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan stale invite", err)
		}
		items = append(items, s)
	}
	return items, nil
}

func scanApplication(row *sql.Row) (*application.Application, error) {
	var app application.Application
	var designDoc sql.NullString
	var submittedAt sql.NullTime
	if err := row.Scan(&app.ID, &app.ProjectID, &app.TeamLeadID, &app.Status, &designDoc, &app.CreatedAt, &submittedAt, &app.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "application not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load application", err)
	}
	app.DesignDocURL = designDoc.String
	if submittedAt.Valid {
		app.SubmittedAt = &submittedAt.Time
	}
	return &app, nil
}

func scanApplications(rows *sql.Rows) ([]application.Application, error) {
	defer rows.Close()
	var items []application.Application
	for rows.Next() {
		var app application.Application
		var designDoc sql.NullString
		var submittedAt sql.NullTime
		if err := rows.Scan(&app.ID, &app.ProjectID, &app.TeamLeadID, &app.Status, &designDoc, &app.CreatedAt, &submittedAt, &app.UpdatedAt); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan application", err)
		}
		app.DesignDocURL = designDoc.String
		if submittedAt.Valid {
			app.SubmittedAt = &submittedAt.Time
		}
		items = append(items, app)
	}
	return items, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
