package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"prepx/internal/config"
	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/stats"
	contextutils "prepx/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ReminderRun summarizes one pass over streak reminder candidates
type ReminderRun struct {
	Candidates int  `json:"candidates"`
	Sent       int  `json:"sent"`
	Failed     int  `json:"failed"`
	DryRun     bool `json:"dryRun"`
}

// ReminderServiceInterface defines the streak reminder job
type ReminderServiceInterface interface {
	StreakReminderCandidates(ctx context.Context) ([]*models.User, error)
	SendStreakReminders(ctx context.Context, dryRun bool) (*ReminderRun, error)
}

// ReminderService emails users whose streak will break at the end of today
type ReminderService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
	email  EmailServiceInterface
	now    func() time.Time
}

var _ ReminderServiceInterface = (*ReminderService)(nil)

// NewReminderServiceWithLogger creates a new ReminderService instance with logger
func NewReminderServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger, email EmailServiceInterface) *ReminderService {
	return &ReminderService{db: db, cfg: cfg, logger: logger, email: email, now: time.Now}
}

// StreakReminderCandidates returns unbanned users last active yesterday whose streak is at least MinStreak
func (s *ReminderService) StreakReminderCandidates(ctx context.Context) (result0 []*models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "streak_reminder_candidates")
	defer observability.FinishSpan(span, &err)

	yesterday := stats.DayOf(s.now().UTC()).AddDays(-1)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM users
		WHERE is_banned = FALSE AND last_active_date = $1 AND current_streak >= $2
		ORDER BY id`, userSelectFields), yesterday, s.cfg.Email.StreakReminder.MinStreak)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query reminder candidates")
	}
	defer func() { _ = rows.Close() }()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan reminder candidate")
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate reminder candidates")
	}
	return users, nil
}

// SendStreakReminders emails every candidate. A failed send is logged and counted, not fatal.
func (s *ReminderService) SendStreakReminders(ctx context.Context, dryRun bool) (result0 *ReminderRun, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "send_streak_reminders", attribute.Bool("reminder.dry_run", dryRun))
	defer observability.FinishSpan(span, &err)

	if !dryRun && !s.cfg.Email.StreakReminder.Enabled {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityWarn,
			"streak reminders are disabled", "set email.streak_reminder.enabled to send")
	}

	users, err := s.StreakReminderCandidates(ctx)
	if err != nil {
		return nil, err
	}

	run := &ReminderRun{Candidates: len(users), DryRun: dryRun}
	for _, u := range users {
		if dryRun {
			s.logger.Info(ctx, "Would send streak reminder", map[string]interface{}{
				"user_id": u.ID, "streak": u.CurrentStreak,
			})
			continue
		}
		if err := s.email.SendStreakReminder(ctx, u); err != nil {
			run.Failed++
			s.logger.Warn(ctx, "Streak reminder failed", map[string]interface{}{
				"user_id": u.ID, "error": err.Error(),
			})
			continue
		}
		run.Sent++
	}

	s.logger.Info(ctx, "Streak reminder run finished", map[string]interface{}{
		"candidates": run.Candidates, "sent": run.Sent, "failed": run.Failed, "dry_run": dryRun,
	})
	return run, nil
}
