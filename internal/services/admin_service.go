package services

import (
	"context"
	"database/sql"
	"time"

	"prepx/internal/config"
	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/stats"
	contextutils "prepx/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// AdminServiceInterface defines moderation operations that need rules beyond plain CRUD
type AdminServiceInterface interface {
	GetDashboard(ctx context.Context) (*models.DashboardStats, error)
	BanUser(ctx context.Context, actorID, targetID int, reason string) error
	UnbanUser(ctx context.Context, actorID, targetID int) error
	ChangeRole(ctx context.Context, actorID, targetID int, role models.Role) error
}

// AdminService applies moderation rules on top of UserService
type AdminService struct {
	db          *sql.DB
	cfg         *config.Config
	logger      *observability.Logger
	userService UserServiceInterface
	now         func() time.Time
}

var _ AdminServiceInterface = (*AdminService)(nil)

// NewAdminServiceWithLogger creates a new AdminService instance with logger
func NewAdminServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger, userService UserServiceInterface) *AdminService {
	return &AdminService{db: db, cfg: cfg, logger: logger, userService: userService, now: time.Now}
}

// GetDashboard collects platform-wide counts. "Today" is the current UTC day.
func (s *AdminService) GetDashboard(ctx context.Context) (result0 *models.DashboardStats, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "get_dashboard")
	defer observability.FinishSpan(span, &err)

	today := stats.DayOf(s.now().UTC())
	d := &models.DashboardStats{}
	err = s.db.QueryRowContext(ctx, `SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE is_banned = TRUE),
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(*) FROM questions WHERE is_active = TRUE),
			(SELECT COUNT(*) FROM attempts),
			(SELECT COUNT(*) FROM attempts WHERE attempt_date = $1),
			(SELECT COUNT(*) FROM posts),
			(SELECT COUNT(DISTINCT user_id) FROM attempts WHERE attempt_date = $1)`, today,
	).Scan(&d.TotalUsers, &d.BannedUsers, &d.TotalQuestions, &d.ActiveQuestions,
		&d.TotalAttempts, &d.AttemptsToday, &d.TotalPosts, &d.ActiveToday)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load dashboard")
	}
	return d, nil
}

// BanUser bans target. Admins and the acting user themselves cannot be banned.
func (s *AdminService) BanUser(ctx context.Context, actorID, targetID int, reason string) (err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "ban_user",
		observability.AttributeUserID(actorID), attribute.Int("admin.target_id", targetID))
	defer observability.FinishSpan(span, &err)

	if actorID == targetID {
		return contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityWarn, "You cannot ban yourself", "")
	}
	target, err := s.userService.GetUserByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.IsAdmin() {
		return contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityWarn, "Admins cannot be banned", "")
	}
	if err = s.userService.SetBanned(ctx, targetID, true, reason); err != nil {
		return err
	}

	s.logger.Info(ctx, "User banned", map[string]interface{}{"actor_id": actorID, "target_id": targetID})
	return nil
}

// UnbanUser lifts a ban
func (s *AdminService) UnbanUser(ctx context.Context, actorID, targetID int) (err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "unban_user",
		observability.AttributeUserID(actorID), attribute.Int("admin.target_id", targetID))
	defer observability.FinishSpan(span, &err)

	if err = s.userService.SetBanned(ctx, targetID, false, ""); err != nil {
		return err
	}
	s.logger.Info(ctx, "User unbanned", map[string]interface{}{"actor_id": actorID, "target_id": targetID})
	return nil
}

// ChangeRole sets target's role. Admins cannot change their own role.
func (s *AdminService) ChangeRole(ctx context.Context, actorID, targetID int, role models.Role) (err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "change_role",
		observability.AttributeUserID(actorID), attribute.Int("admin.target_id", targetID), attribute.String("admin.role", string(role)))
	defer observability.FinishSpan(span, &err)

	if !role.IsValid() {
		return contextutils.InvalidInputf("invalid role %q", role)
	}
	if actorID == targetID {
		return contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityWarn, "You cannot change your own role", "")
	}
	if err = s.userService.SetRole(ctx, targetID, role); err != nil {
		return err
	}
	s.logger.Info(ctx, "User role changed", map[string]interface{}{"actor_id": actorID, "target_id": targetID, "role": role})
	return nil
}
