// Package services provides business logic services for the PrepX backend.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"prepx/internal/config"
	"prepx/internal/database"
	"prepx/internal/models"
	"prepx/internal/observability"
	contextutils "prepx/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines the interface for user-related operations.
// This allows for easier mocking in tests.
type UserServiceInterface interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Authenticate(ctx context.Context, identifier, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int, req models.UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) error
	SetPassword(ctx context.Context, userID int, newPassword string) error
	GetPublicProfile(ctx context.Context, viewerID int, username string) (*models.PublicProfile, error)
	ListUsers(ctx context.Context, page, limit int, search string) ([]models.User, int, error)
	SetBanned(ctx context.Context, userID int, banned bool, reason string) error
	SetRole(ctx context.Context, userID int, role models.Role) error
	EnsureAdminUserExists(ctx context.Context, username, email, password string) error
}

// UserService provides methods for user management.
type UserService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

var _ UserServiceInterface = (*UserService)(nil)

// userSelectFields contains all user fields for SELECT queries
const userSelectFields = `id, username, email, password_hash, full_name, bio, avatar_url, role, is_banned, ban_reason,
	total_questions_attempted, total_correct_answers, current_streak, longest_streak, last_active_date, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUser scans a row selected with userSelectFields
func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.FullName, &user.Bio, &user.AvatarURL,
		&user.Role, &user.IsBanned, &user.BanReason,
		&user.TotalQuestionsAttempted, &user.TotalCorrectAnswers, &user.CurrentStreak, &user.LongestStreak,
		&user.LastActiveDate, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// NewUserServiceWithLogger creates a new UserService instance with logger
func NewUserServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *UserService {
	return &UserService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// getUserByQuery runs a single-user query, mapping no rows to ErrUserNotFound
func (s *UserService) getUserByQuery(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.ErrUserNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load user")
	}
	return user, nil
}

// Register creates an account with a bcrypt-hashed password
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "register", attribute.String("user.username", req.Username))
	defer observability.FinishSpan(span, &err)

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !contextutils.IsValidUsername(username) {
		return nil, contextutils.InvalidInputf("username must be 3-30 letters, digits or underscores")
	}
	if !contextutils.IsValidEmail(email) {
		return nil, contextutils.InvalidInputf("invalid email address")
	}
	if len(req.Password) < 6 {
		return nil, contextutils.InvalidInputf("password must be at least 6 characters")
	}
	if s.cfg != nil && !s.cfg.IsSignupAllowed(email) {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityWarn, "Signups are disabled", "")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
	}

	query := fmt.Sprintf(`INSERT INTO users (username, email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4, $5) RETURNING %s`, userSelectFields)
	user, err := scanUser(s.db.QueryRowContext(ctx, query,
		username, email, string(hashedPassword), models.NullString(strings.TrimSpace(req.FullName)), models.RoleUser))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, duplicateUserError(err)
		}
		return nil, contextutils.WrapError(err, "failed to create user")
	}

	s.logger.Info(ctx, "User registered", map[string]interface{}{
		"user_id": user.ID,
		"email":   contextutils.MaskEmail(email),
	})
	return user, nil
}

// duplicateUserError names the field that collided
func duplicateUserError(err error) error {
	field := "username or email"
	switch constraint := database.ConstraintName(err); {
	case strings.Contains(constraint, "email"):
		field = "email"
	case strings.Contains(constraint, "username"):
		field = "username"
	}
	return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeRecordExists, contextutils.SeverityInfo,
		fmt.Sprintf("An account with this %s already exists", field), "", err)
}

// Authenticate verifies credentials. identifier is matched against username, then email.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "authenticate")
	defer observability.FinishSpan(span, &err)

	identifier = strings.TrimSpace(identifier)
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1 OR LOWER(email) = LOWER($1) ORDER BY (username = $1) DESC LIMIT 1", userSelectFields)
	user, err := s.getUserByQuery(ctx, query, identifier)
	if errors.Is(err, contextutils.ErrUserNotFound) {
		return nil, contextutils.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, contextutils.ErrInvalidCredentials
	}
	if user.IsBanned {
		return nil, contextutils.ErrAccountBanned
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_id", observability.AttributeUserID(id))
	defer observability.FinishSpan(span, &err)
	return s.getUserByQuery(ctx, fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userSelectFields), id)
}

// GetUserByUsername retrieves a user by their username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_username", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)
	return s.getUserByQuery(ctx, fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userSelectFields), username)
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_email")
	defer observability.FinishSpan(span, &err)
	return s.getUserByQuery(ctx, fmt.Sprintf("SELECT %s FROM users WHERE LOWER(email) = LOWER($1)", userSelectFields), strings.TrimSpace(email))
}

// UpdateProfile applies the non-nil fields of req. An empty string clears an optional field.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, req models.UpdateProfileRequest) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_profile", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.FullName != nil {
		add("full_name", models.NullString(strings.TrimSpace(*req.FullName)))
	}
	if req.Bio != nil {
		if len(*req.Bio) > 300 {
			return nil, contextutils.InvalidInputf("bio must be at most 300 characters")
		}
		add("bio", models.NullString(strings.TrimSpace(*req.Bio)))
	}
	if req.AvatarURL != nil {
		if !contextutils.IsValidURL(*req.AvatarURL) {
			return nil, contextutils.InvalidInputf("avatarUrl must be a valid URL")
		}
		add("avatar_url", models.NullString(*req.AvatarURL))
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if !contextutils.IsValidEmail(email) {
			return nil, contextutils.InvalidInputf("invalid email address")
		}
		add("email", email)
	}

	if len(sets) == 0 {
		return s.GetUserByID(ctx, userID)
	}

	add("updated_at", time.Now())
	args = append(args, userID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s", strings.Join(sets, ", "), len(args), userSelectFields)

	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.ErrUserNotFound
	}
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, duplicateUserError(err)
		}
		return nil, contextutils.WrapError(err, "failed to update profile")
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one
func (s *UserService) ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "change_password", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return contextutils.NewAppError(contextutils.ErrorCodeInvalidCredentials, contextutils.SeverityInfo, "Current password is incorrect", "")
	}
	return s.SetPassword(ctx, userID, newPassword)
}

// SetPassword replaces the password without verification (admin reset)
func (s *UserService) SetPassword(ctx context.Context, userID int, newPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "set_password", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	if len(newPassword) < 6 {
		return contextutils.InvalidInputf("password must be at least 6 characters")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return contextutils.WrapError(err, "failed to hash password")
	}

	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		string(hashedPassword), time.Now(), userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update password")
	}
	return requireAffected(res, contextutils.ErrUserNotFound)
}

// GetPublicProfile loads another user's profile with social counts. Banned users are hidden.
func (s *UserService) GetPublicProfile(ctx context.Context, viewerID int, username string) (result0 *models.PublicProfile, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_public_profile",
		attribute.String("user.username", username), observability.AttributeUserID(viewerID))
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.IsBanned && user.ID != viewerID {
		return nil, contextutils.ErrUserNotFound
	}

	profile := models.NewPublicProfile(*user)
	profile.IsOwnProfile = user.ID == viewerID

	err = s.db.QueryRowContext(ctx, `SELECT
			(SELECT COUNT(*) FROM follows WHERE following_id = $1),
			(SELECT COUNT(*) FROM follows WHERE follower_id = $1),
			(SELECT COUNT(*) FROM posts WHERE user_id = $1),
			EXISTS (SELECT 1 FROM follows WHERE follower_id = $2 AND following_id = $1)`,
		user.ID, viewerID,
	).Scan(&profile.FollowersCount, &profile.FollowingCount, &profile.PostsCount, &profile.IsFollowing)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load profile counts")
	}
	return &profile, nil
}

// ListUsers pages through all users for the admin panel, optionally filtered by a username/email substring
func (s *UserService) ListUsers(ctx context.Context, page, limit int, search string) (result0 []models.User, result1 int, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "list_users",
		observability.AttributePage(page), observability.AttributeLimit(limit), observability.AttributeSearch(search))
	defer observability.FinishSpan(span, &err)

	where := ""
	args := []interface{}{}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		where = "WHERE username ILIKE $1 OR email ILIKE $1 OR full_name ILIKE $1"
	}

	var total int
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users "+where, args...).Scan(&total); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count users")
	}

	pagination := models.NewPagination(page, limit, total)
	args = append(args, limit, pagination.Offset())
	query := fmt.Sprintf("SELECT %s FROM users %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		userSelectFields, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to list users")
	}
	defer func() { _ = rows.Close() }()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, contextutils.WrapError(err, "failed to scan user")
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, contextutils.WrapError(err, "error iterating users")
	}
	return users, total, nil
}

// SetBanned bans or unbans a user. The reason is cleared on unban.
func (s *UserService) SetBanned(ctx context.Context, userID int, banned bool, reason string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "set_banned",
		observability.AttributeUserID(userID), attribute.Bool("user.banned", banned))
	defer observability.FinishSpan(span, &err)

	banReason := sql.NullString{}
	if banned {
		banReason = models.NullString(strings.TrimSpace(reason))
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_banned = $1, ban_reason = $2, updated_at = $3 WHERE id = $4`,
		banned, banReason, time.Now(), userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update ban status")
	}
	if err = requireAffected(res, contextutils.ErrUserNotFound); err != nil {
		return err
	}

	s.logger.Info(ctx, "User ban status changed", map[string]interface{}{"user_id": userID, "banned": banned})
	return nil
}

// SetRole changes a user's role
func (s *UserService) SetRole(ctx context.Context, userID int, role models.Role) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "set_role",
		observability.AttributeUserID(userID), attribute.String("user.role", string(role)))
	defer observability.FinishSpan(span, &err)

	if !role.IsValid() {
		return contextutils.InvalidInputf("invalid role %q", role)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`, role, time.Now(), userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update role")
	}
	return requireAffected(res, contextutils.ErrUserNotFound)
}

// EnsureAdminUserExists creates the configured admin account, or makes sure an existing
// account with that username has the admin role and the configured password.
func (s *UserService) EnsureAdminUserExists(ctx context.Context, username, email, password string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "ensure_admin_user_exists", attribute.String("admin.username", username))
	defer observability.FinishSpan(span, &err)

	if username == "" {
		return contextutils.ErrorWithContextf("admin username cannot be empty")
	}
	if password == "" {
		return contextutils.ErrorWithContextf("admin password cannot be empty")
	}
	if email == "" {
		email = username + "@prepx.local"
	}

	existing, err := s.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, contextutils.ErrUserNotFound) {
		return contextutils.WrapError(err, "failed to check if admin user exists")
	}

	if existing == nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return contextutils.WrapError(err, "failed to hash admin password")
		}
		_, err = s.db.ExecContext(ctx, `INSERT INTO users (username, email, password_hash, full_name, role) VALUES ($1, $2, $3, $4, $5)`,
			username, strings.ToLower(email), string(hashedPassword), "Administrator", models.RoleAdmin)
		if err != nil {
			return contextutils.WrapError(err, "failed to create admin user")
		}
		s.logger.Info(ctx, "Created admin user", map[string]interface{}{"username": username})
		return nil
	}

	if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) != nil {
		if err := s.SetPassword(ctx, existing.ID, password); err != nil {
			return contextutils.WrapError(err, "failed to update admin user password")
		}
		s.logger.Info(ctx, "Updated password for admin user", map[string]interface{}{"username": username})
	}
	if !existing.IsAdmin() {
		if err := s.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return contextutils.WrapError(err, "failed to assign admin role")
		}
	}
	return nil
}

// requireAffected returns notFound when an UPDATE or DELETE matched no rows
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
