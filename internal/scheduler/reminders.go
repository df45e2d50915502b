package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"studieo/internal/domain/application"
	"studieo/internal/domain/notification"
)

type Logger interface {
	Info(msg string)
	Error(msg string)
}

// ReminderJob mails members whose team invite has sat unanswered while the
// application is still waiting on consensus.
type ReminderJob struct {
	repo   application.Repository
	mailer notification.Dispatcher
	minAge time.Duration
	logger Logger
}

func NewReminderJob(repo application.Repository, mailer notification.Dispatcher, minAge time.Duration, logger Logger) *ReminderJob {
	return &ReminderJob{repo: repo, mailer: mailer, minAge: minAge, logger: logger}
}

// Run sends one reminder per stale invite. Failures are logged and do not
// stop the batch.
func (j *ReminderJob) Run(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.minAge)
	invites, err := j.repo.ListStaleInvites(ctx, cutoff)
	if err != nil {
		j.logger.Error(fmt.Sprintf("reminder job: list stale invites: %v", err))
		return
	}
	sent := 0
	for _, invite := range invites {
		msg := notification.Message{
			Template: notification.TemplateTeamInviteReminder,
			To:       notification.Recipient{Name: invite.Member.Name, Email: invite.Member.Email},
			Params: map[string]string{
				"project_title": invite.ProjectTitle,
			},
		}
		if err := j.mailer.Send(ctx, msg); err != nil {
			j.logger.Error(fmt.Sprintf("reminder job: send to %s application_id=%s: %v", invite.Member.Email, invite.ApplicationID, err))
			continue
		}
		sent++
	}
	if len(invites) > 0 {
		j.logger.Info(fmt.Sprintf("reminder job: sent %d of %d reminders", sent, len(invites)))
	}
}

// Scheduler wraps the cron runner so main only deals with start/stop.
type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

func (s *Scheduler) AddJob(spec string, job *ReminderJob, timeout time.Duration) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		job.Run(ctx)
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
