package services

import (
	"context"
	"database/sql"
	"fmt"

	"prepx/internal/config"
	"prepx/internal/models"
	"prepx/internal/observability"
	contextutils "prepx/internal/utils"
)

// BookmarkServiceInterface defines saved-question operations
type BookmarkServiceInterface interface {
	AddBookmark(ctx context.Context, userID, questionID int) error
	RemoveBookmark(ctx context.Context, userID, questionID int) error
	ListBookmarks(ctx context.Context, userID, page, limit int) ([]models.Bookmark, int, error)
	IsBookmarked(ctx context.Context, userID, questionID int) (bool, error)
}

// BookmarkService manages a user's saved questions
type BookmarkService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

var _ BookmarkServiceInterface = (*BookmarkService)(nil)

// NewBookmarkServiceWithLogger creates a new BookmarkService instance with logger
func NewBookmarkServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *BookmarkService {
	return &BookmarkService{db: db, cfg: cfg, logger: logger}
}

// AddBookmark saves an active question; saving twice is a no-op
func (s *BookmarkService) AddBookmark(ctx context.Context, userID, questionID int) (err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "add_bookmark",
		observability.AttributeUserID(userID), observability.AttributeQuestionID(questionID))
	defer observability.FinishSpan(span, &err)

	var exists bool
	if err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM questions WHERE id = $1 AND is_active = TRUE)`, questionID).Scan(&exists); err != nil {
		return contextutils.WrapError(err, "failed to check question")
	}
	if !exists {
		return contextutils.ErrQuestionNotFound
	}

	if _, err = s.db.ExecContext(ctx,
		`INSERT INTO bookmarks (user_id, question_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, questionID); err != nil {
		return contextutils.WrapError(err, "failed to add bookmark")
	}
	return nil
}

// RemoveBookmark deletes a saved question; removing a missing bookmark is a no-op
func (s *BookmarkService) RemoveBookmark(ctx context.Context, userID, questionID int) (err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "remove_bookmark",
		observability.AttributeUserID(userID), observability.AttributeQuestionID(questionID))
	defer observability.FinishSpan(span, &err)

	if _, err = s.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = $1 AND question_id = $2`, userID, questionID); err != nil {
		return contextutils.WrapError(err, "failed to remove bookmark")
	}
	return nil
}

// ListBookmarks pages through saved active questions, most recently saved first
func (s *BookmarkService) ListBookmarks(ctx context.Context, userID, page, limit int) (result0 []models.Bookmark, result1 int, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "list_bookmarks",
		observability.AttributeUserID(userID), observability.AttributePage(page), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	var total int
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks b JOIN questions q ON q.id = b.question_id
		WHERE b.user_id = $1 AND q.is_active = TRUE`, userID).Scan(&total); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count bookmarks")
	}

	offset := models.NewPagination(page, limit, total).Offset()
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT b.created_at, %s
		FROM bookmarks b JOIN questions q ON q.id = b.question_id
		WHERE b.user_id = $1 AND q.is_active = TRUE
		ORDER BY b.created_at DESC, q.id DESC
		LIMIT $2 OFFSET $3`, prefixedFields(questionSelectFields, "q")), userID, limit, offset)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to list bookmarks")
	}
	defer func() { _ = rows.Close() }()

	bookmarked := true
	bookmarks := []models.Bookmark{}
	for rows.Next() {
		var b models.Bookmark
		q, err := scanQuestion(prefixScanner{rows: rows, first: &b.CreatedAt})
		if err != nil {
			return nil, 0, contextutils.WrapError(err, "failed to scan bookmark")
		}
		b.QuestionID = q.ID
		b.Question = q.PublicView()
		b.Question.IsBookmarked = &bookmarked
		bookmarks = append(bookmarks, b)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, contextutils.WrapError(err, "error iterating bookmarks")
	}
	return bookmarks, total, nil
}

// prefixScanner scans one leading column into first before handing the rest to a row scanner
type prefixScanner struct {
	rows  *sql.Rows
	first interface{}
}

func (p prefixScanner) Scan(dest ...interface{}) error {
	return p.rows.Scan(append([]interface{}{p.first}, dest...)...)
}

// IsBookmarked reports whether the user saved the question
func (s *BookmarkService) IsBookmarked(ctx context.Context, userID, questionID int) (result0 bool, err error) {
	ctx, span := observability.TraceSocialFunction(ctx, "is_bookmarked",
		observability.AttributeUserID(userID), observability.AttributeQuestionID(questionID))
	defer observability.FinishSpan(span, &err)

	var exists bool
	if err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookmarks WHERE user_id = $1 AND question_id = $2)`, userID, questionID).Scan(&exists); err != nil {
		return false, contextutils.WrapError(err, "failed to check bookmark")
	}
	return exists, nil
}
