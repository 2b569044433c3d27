package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"prepx/internal/config"
	"prepx/internal/database"
	"prepx/internal/models"
	"prepx/internal/observability"
	contextutils "prepx/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// PostServiceInterface defines the social feed operations
type PostServiceInterface interface {
	CreatePost(ctx context.Context, userID int, req models.CreatePostRequest) (*models.Post, error)
	GetFeed(ctx context.Context, userID, page, limit int) ([]models.Post, int, error)
	GetPost(ctx context.Context, viewerID, postID int) (*models.Post, error)
	ListUserPosts(ctx context.Context, viewerID int, username string, page, limit int) ([]models.Post, int, error)
	DeletePost(ctx context.Context, actorID int, isAdmin bool, postID int) error
	LikePost(ctx context.Context, userID, postID int) (int, error)
	UnlikePost(ctx context.Context, userID, postID int) (int, error)
	ListComments(ctx context.Context, postID, page, limit int) ([]models.Comment, int, error)
	AddComment(ctx context.Context, userID, postID int, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, actorID int, isAdmin bool, postID, commentID int) error
}

// PostService manages posts, likes and comments. Like and comment counters on a post
// change in the same transaction as the rows they count.
type PostService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

var _ PostServiceInterface = (*PostService)(nil)

// postSelect selects a post with its author and whether viewer $1 liked it
const postSelect = `SELECT p.id, p.user_id, p.content, p.image_url, p.likes_count, p.comments_count, p.created_at, p.updated_at,
	u.username, u.full_name, u.avatar_url,
	EXISTS (SELECT 1 FROM post_likes pl WHERE pl.post_id = p.id AND pl.user_id = $1)
	FROM posts p JOIN users u ON u.id = p.user_id`

// NewPostServiceWithLogger creates a new PostService instance with logger
func NewPostServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *PostService {
	return &PostService{db: db, cfg: cfg, logger: logger}
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		p         models.Post
		author    models.UserSummary
		fullName  sql.NullString
		avatarURL sql.NullString
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Content, &p.ImageURL, &p.LikesCount, &p.CommentsCount, &p.CreatedAt, &p.UpdatedAt,
		&author.Username, &fullName, &avatarURL, &p.IsLiked)
	if err != nil {
		return nil, err
	}
	author.ID = p.UserID
	author.FullName = nullableString(fullName)
	author.AvatarURL = nullableString(avatarURL)
	p.Author = &author
	return &p, nil
}

func scanPosts(rows *sql.Rows) ([]models.Post, error) {
	defer func() { _ = rows.Close() }()
	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan post")
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating posts")
	}
	return posts, nil
}

// CreatePost publishes a post
func (s *PostService) CreatePost(ctx context.Context, userID int, req models.CreatePostRequest) (result0 *models.Post, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "create_post", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	content := strings.TrimSpace(req.Content)
	if content == "" || len([]rune(content)) > 2000 {
		return nil, contextutils.InvalidInputf("content must be between 1 and 2000 characters")
	}
	if !contextutils.IsValidURL(req.ImageURL) {
		return nil, contextutils.InvalidInputf("imageUrl must be a valid URL")
	}

	var postID int
	if err = s.db.QueryRowContext(ctx,
		`INSERT INTO posts (user_id, content, image_url) VALUES ($1, $2, $3) RETURNING id`,
		userID, content, models.NullString(req.ImageURL)).Scan(&postID); err != nil {
		return nil, contextutils.WrapError(err, "failed to create post")
	}
	return s.GetPost(ctx, userID, postID)
}

// GetFeed returns the viewer's own posts and posts of users they follow, newest first
func (s *PostService) GetFeed(ctx context.Context, userID, page, limit int) (result0 []models.Post, result1 int, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "get_feed",
		observability.AttributeUserID(userID), observability.AttributePage(page), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	const feedWhere = ` WHERE u.is_banned = FALSE
		AND (p.user_id = $1 OR p.user_id IN (SELECT following_id FROM follows WHERE follower_id = $1))`

	var total int
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p JOIN users u ON u.id = p.user_id`+feedWhere, userID).Scan(&total); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count feed")
	}

	offset := models.NewPagination(page, limit, total).Offset()
	rows, err := s.db.QueryContext(ctx, postSelect+feedWhere+` ORDER BY p.created_at DESC, p.id DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to load feed")
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// GetPost loads one post as seen by viewerID
func (s *PostService) GetPost(ctx context.Context, viewerID, postID int) (result0 *models.Post, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "get_post", observability.AttributePostID(postID))
	defer observability.FinishSpan(span, &err)

	p, err := scanPost(s.db.QueryRowContext(ctx, postSelect+` WHERE p.id = $2`, viewerID, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.ErrPostNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load post")
	}
	return p, nil
}

// ListUserPosts pages through one user's posts, newest first
func (s *PostService) ListUserPosts(ctx context.Context, viewerID int, username string, page, limit int) (result0 []models.Post, result1 int, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "list_user_posts",
		attribute.String("user.username", username), observability.AttributePage(page))
	defer observability.FinishSpan(span, &err)

	var authorID int
	err = s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = $1 AND is_banned = FALSE`, username).Scan(&authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, contextutils.ErrUserNotFound
	}
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to load user")
	}

	var total int
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE user_id = $1`, authorID).Scan(&total); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count posts")
	}

	offset := models.NewPagination(page, limit, total).Offset()
	rows, err := s.db.QueryContext(ctx, postSelect+` WHERE p.user_id = $2 ORDER BY p.created_at DESC, p.id DESC LIMIT $3 OFFSET $4`,
		viewerID, authorID, limit, offset)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to list posts")
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// DeletePost removes a post with its likes and comments. Only the author or an admin may delete.
func (s *PostService) DeletePost(ctx context.Context, actorID int, isAdmin bool, postID int) (err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "delete_post",
		observability.AttributeUserID(actorID), observability.AttributePostID(postID))
	defer observability.FinishSpan(span, &err)

	var ownerID int
	err = s.db.QueryRowContext(ctx, `SELECT user_id FROM posts WHERE id = $1`, postID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return contextutils.ErrPostNotFound
	}
	if err != nil {
		return contextutils.WrapError(err, "failed to load post")
	}
	if ownerID != actorID && !isAdmin {
		return contextutils.ErrForbidden
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete post")
	}
	if err = requireAffected(res, contextutils.ErrPostNotFound); err != nil {
		return err
	}

	s.logger.Info(ctx, "Post deleted", map[string]interface{}{"post_id": postID, "actor_id": actorID, "by_admin": ownerID != actorID})
	return nil
}

// lockPost takes a row lock on the post, returning ErrPostNotFound if it is gone
func lockPost(ctx context.Context, tx *sql.Tx, postID int) (ownerID int, err error) {
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM posts WHERE id = $1 FOR UPDATE`, postID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, contextutils.ErrPostNotFound
	}
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to lock post")
	}
	return ownerID, nil
}

// LikePost is idempotent and returns the resulting like count
func (s *PostService) LikePost(ctx context.Context, userID, postID int) (result0 int, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "like_post",
		observability.AttributeUserID(userID), observability.AttributePostID(postID))
	defer observability.FinishSpan(span, &err)

	return s.toggleLike(ctx, userID, postID,
		`INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		`UPDATE posts SET likes_count = likes_count + 1 WHERE id = $1 RETURNING likes_count`)
}

// UnlikePost is idempotent and returns the resulting like count
func (s *PostService) UnlikePost(ctx context.Context, userID, postID int) (result0 int, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "unlike_post",
		observability.AttributeUserID(userID), observability.AttributePostID(postID))
	defer observability.FinishSpan(span, &err)

	return s.toggleLike(ctx, userID, postID,
		`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`,
		`UPDATE posts SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1 RETURNING likes_count`)
}

// toggleLike applies edgeSQL and, only when it changed a row, counterSQL
func (s *PostService) toggleLike(ctx context.Context, userID, postID int, edgeSQL, counterSQL string) (int, error) {
	var likes int
	err := database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		if _, err := lockPost(ctx, tx, postID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, edgeSQL, postID, userID)
		if err != nil {
			return contextutils.WrapError(err, "failed to update like")
		}
		changed, err := res.RowsAffected()
		if err != nil {
			return contextutils.WrapError(err, "failed to read affected rows")
		}
		if changed == 0 {
			return tx.QueryRowContext(ctx, `SELECT likes_count FROM posts WHERE id = $1`, postID).Scan(&likes)
		}
		return tx.QueryRowContext(ctx, counterSQL, postID).Scan(&likes)
	})
	return likes, err
}

// ListComments pages through a post's comments, oldest first
func (s *PostService) ListComments(ctx context.Context, postID, page, limit int) (result0 []models.Comment, result1 int, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "list_comments",
		observability.AttributePostID(postID), observability.AttributePage(page))
	defer observability.FinishSpan(span, &err)

	var total int
	err = s.db.QueryRowContext(ctx, `SELECT comments_count FROM posts WHERE id = $1`, postID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, contextutils.ErrPostNotFound
	}
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to load post")
	}

	offset := models.NewPagination(page, limit, total).Offset()
	rows, err := s.db.QueryContext(ctx, `SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, u.username, u.full_name, u.avatar_url
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC, c.id ASC
		LIMIT $2 OFFSET $3`, postID, limit, offset)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to list comments")
	}
	defer func() { _ = rows.Close() }()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, contextutils.WrapError(err, "failed to scan comment")
		}
		comments = append(comments, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, contextutils.WrapError(err, "error iterating comments")
	}
	return comments, total, nil
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var (
		c         models.Comment
		author    models.UserSummary
		fullName  sql.NullString
		avatarURL sql.NullString
	)
	if err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt, &author.Username, &fullName, &avatarURL); err != nil {
		return nil, err
	}
	author.ID = c.UserID
	author.FullName = nullableString(fullName)
	author.AvatarURL = nullableString(avatarURL)
	c.Author = &author
	return &c, nil
}

// AddComment appends a comment and bumps the post's comment count
func (s *PostService) AddComment(ctx context.Context, userID, postID int, content string) (result0 *models.Comment, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "add_comment",
		observability.AttributeUserID(userID), observability.AttributePostID(postID))
	defer observability.FinishSpan(span, &err)

	content = strings.TrimSpace(content)
	if content == "" || len([]rune(content)) > 500 {
		return nil, contextutils.InvalidInputf("comment must be between 1 and 500 characters")
	}

	var comment *models.Comment
	err = database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		if _, err := lockPost(ctx, tx, postID); err != nil {
			return err
		}
		var commentID int
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO comments (post_id, user_id, content) VALUES ($1, $2, $3) RETURNING id`,
			postID, userID, content).Scan(&commentID); err != nil {
			return contextutils.WrapError(err, "failed to add comment")
		}
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET comments_count = comments_count + 1 WHERE id = $1`, postID); err != nil {
			return contextutils.WrapError(err, "failed to update comment count")
		}
		c, err := scanComment(tx.QueryRowContext(ctx, `SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, u.username, u.full_name, u.avatar_url
			FROM comments c JOIN users u ON u.id = c.user_id WHERE c.id = $1`, commentID))
		if err != nil {
			return contextutils.WrapError(err, "failed to load comment")
		}
		comment = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment. The comment author, the post author and admins may delete.
func (s *PostService) DeleteComment(ctx context.Context, actorID int, isAdmin bool, postID, commentID int) (err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "delete_comment",
		observability.AttributeUserID(actorID), observability.AttributePostID(postID), attribute.Int("comment.id", commentID))
	defer observability.FinishSpan(span, &err)

	return database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		postOwnerID, err := lockPost(ctx, tx, postID)
		if err != nil {
			return err
		}

		var commentOwnerID int
		err = tx.QueryRowContext(ctx, `SELECT user_id FROM comments WHERE id = $1 AND post_id = $2`, commentID, postID).Scan(&commentOwnerID)
		if errors.Is(err, sql.ErrNoRows) {
			return contextutils.ErrCommentNotFound
		}
		if err != nil {
			return contextutils.WrapError(err, "failed to load comment")
		}
		if actorID != commentOwnerID && actorID != postOwnerID && !isAdmin {
			return contextutils.ErrForbidden
		}

		if _, err = tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, commentID); err != nil {
			return contextutils.WrapError(err, "failed to delete comment")
		}
		if _, err = tx.ExecContext(ctx, `UPDATE posts SET comments_count = GREATEST(comments_count - 1, 0) WHERE id = $1`, postID); err != nil {
			return contextutils.WrapError(err, "failed to update comment count")
		}
		return nil
	})
}
