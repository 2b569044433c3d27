package services

import (
	"context"
	"database/sql"

	"prepx/internal/config"
	"prepx/internal/models"
	"prepx/internal/observability"
	contextutils "prepx/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// FollowServiceInterface defines the follow graph operations
type FollowServiceInterface interface {
	Follow(ctx context.Context, followerID, followingID int) error
	Unfollow(ctx context.Context, followerID, followingID int) error
	GetStatus(ctx context.Context, viewerID, otherID int) (*models.FollowStatus, error)
	ListFollowers(ctx context.Context, userID, page, limit int) ([]models.UserSummary, int, error)
	ListFollowing(ctx context.Context, userID, page, limit int) ([]models.UserSummary, int, error)
}

// FollowService manages the directed follow graph
type FollowService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

var _ FollowServiceInterface = (*FollowService)(nil)

// NewFollowServiceWithLogger creates a new FollowService instance with logger
func NewFollowServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *FollowService {
	return &FollowService{db: db, cfg: cfg, logger: logger}
}

// requireActiveUser returns ErrUserNotFound unless id names a non-banned user
func requireActiveUser(ctx context.Context, q execQuerier, id int) error {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND is_banned = FALSE)`, id).Scan(&exists)
	if err != nil {
		return contextutils.WrapError(err, "failed to check user")
	}
	if !exists {
		return contextutils.ErrUserNotFound
	}
	return nil
}

// Follow is idempotent; following yourself is rejected
func (s *FollowService) Follow(ctx context.Context, followerID, followingID int) (err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "follow",
		observability.AttributeUserID(followerID), attribute.Int("follow.target_id", followingID))
	defer observability.FinishSpan(span, &err)

	if followerID == followingID {
		return contextutils.InvalidInputf("you cannot follow yourself")
	}
	if err = requireActiveUser(ctx, s.db, followingID); err != nil {
		return err
	}
	if _, err = s.db.ExecContext(ctx,
		`INSERT INTO follows (follower_id, following_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		followerID, followingID); err != nil {
		return contextutils.WrapError(err, "failed to follow user")
	}
	return nil
}

// Unfollow is idempotent
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID int) (err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "unfollow",
		observability.AttributeUserID(followerID), attribute.Int("follow.target_id", followingID))
	defer observability.FinishSpan(span, &err)

	if followerID == followingID {
		return contextutils.InvalidInputf("you cannot unfollow yourself")
	}
	if err = requireActiveUser(ctx, s.db, followingID); err != nil {
		return err
	}
	if _, err = s.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`, followerID, followingID); err != nil {
		return contextutils.WrapError(err, "failed to unfollow user")
	}
	return nil
}

// GetStatus reports the follow relation in both directions
func (s *FollowService) GetStatus(ctx context.Context, viewerID, otherID int) (result0 *models.FollowStatus, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "get_follow_status",
		observability.AttributeUserID(viewerID), attribute.Int("follow.target_id", otherID))
	defer observability.FinishSpan(span, &err)

	if err = requireActiveUser(ctx, s.db, otherID); err != nil {
		return nil, err
	}

	status := &models.FollowStatus{}
	err = s.db.QueryRowContext(ctx, `SELECT
			EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2),
			EXISTS (SELECT 1 FROM follows WHERE follower_id = $2 AND following_id = $1)`,
		viewerID, otherID).Scan(&status.IsFollowing, &status.FollowsYou)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load follow status")
	}
	return status, nil
}

// ListFollowers pages through the users following userID, most recent first
func (s *FollowService) ListFollowers(ctx context.Context, userID, page, limit int) (result0 []models.UserSummary, result1 int, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "list_followers", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)
	return s.listEdges(ctx, userID, page, limit, "following_id", "follower_id")
}

// ListFollowing pages through the users userID follows, most recent first
func (s *FollowService) ListFollowing(ctx context.Context, userID, page, limit int) (result0 []models.UserSummary, result1 int, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "list_following", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)
	return s.listEdges(ctx, userID, page, limit, "follower_id", "following_id")
}

// listEdges selects users on the other end of follow edges where matchCol = userID
func (s *FollowService) listEdges(ctx context.Context, userID, page, limit int, matchCol, otherCol string) ([]models.UserSummary, int, error) {
	if err := requireActiveUser(ctx, s.db, userID); err != nil {
		return nil, 0, err
	}

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM follows f JOIN users u ON u.id = f.`+otherCol+`
		WHERE f.`+matchCol+` = $1 AND u.is_banned = FALSE`, userID).Scan(&total)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count follows")
	}

	offset := models.NewPagination(page, limit, total).Offset()
	rows, err := s.db.QueryContext(ctx, `SELECT u.id, u.username, u.full_name, u.avatar_url
		FROM follows f JOIN users u ON u.id = f.`+otherCol+`
		WHERE f.`+matchCol+` = $1 AND u.is_banned = FALSE
		ORDER BY f.created_at DESC, u.id
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to list follows")
	}
	users, err := scanUserSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// scanUserSummaries reads (id, username, full_name, avatar_url) rows
func scanUserSummaries(rows *sql.Rows) ([]models.UserSummary, error) {
	defer func() { _ = rows.Close() }()

	users := []models.UserSummary{}
	for rows.Next() {
		var (
			u         models.UserSummary
			fullName  sql.NullString
			avatarURL sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Username, &fullName, &avatarURL); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan user")
		}
		u.FullName = nullableString(fullName)
		u.AvatarURL = nullableString(avatarURL)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating users")
	}
	return users, nil
}
