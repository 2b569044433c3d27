package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"prepx/internal/config"
	"prepx/internal/database"
	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/stats"
	contextutils "prepx/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// AttemptServiceInterface defines answer submission and attempt history operations
type AttemptServiceInterface interface {
	SubmitAttempt(ctx context.Context, userID, questionID int, req models.SubmitAttemptRequest) (*models.AttemptResult, error)
	ListAttempts(ctx context.Context, userID, page, limit int) ([]models.AttemptHistoryItem, int, error)
	ClearAttempts(ctx context.Context, userID int) (int, error)
}

// AttemptService records answers and keeps user and question counters in step with the attempt log
type AttemptService struct {
	db      *sql.DB
	cfg     *config.Config
	logger  *observability.Logger
	metrics *observability.AttemptMetrics
	now     func() time.Time
}

var _ AttemptServiceInterface = (*AttemptService)(nil)

// NewAttemptServiceWithLogger creates a new AttemptService instance with logger
func NewAttemptServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *AttemptService {
	return &AttemptService{
		db:      db,
		cfg:     cfg,
		logger:  logger,
		metrics: observability.GetAttemptMetrics(),
		now:     time.Now,
	}
}

// validateSubmission checks the request body before any database work
func validateSubmission(req models.SubmitAttemptRequest) error {
	if req.SelectedOptionIndex == nil {
		return contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, "selectedOptionIndex is required", "")
	}
	if *req.SelectedOptionIndex < 0 || *req.SelectedOptionIndex >= models.OptionCount {
		return contextutils.NewAppError(contextutils.ErrorCodeInvalidAnswerIndex, contextutils.SeverityInfo,
			"selectedOptionIndex must be between 0 and 3", "")
	}
	if req.TimeTaken == nil {
		return contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, "timeTaken is required", "")
	}
	if *req.TimeTaken < 0 {
		return contextutils.InvalidInputf("timeTaken must not be negative")
	}
	return nil
}

// SubmitAttempt records one answer. The attempt insert, both counter updates and the streak
// transition commit together; the user row is locked so concurrent submissions serialize.
func (s *AttemptService) SubmitAttempt(ctx context.Context, userID, questionID int, req models.SubmitAttemptRequest) (result0 *models.AttemptResult, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "submit_attempt",
		observability.AttributeUserID(userID), observability.AttributeQuestionID(questionID))
	defer observability.FinishSpan(span, &err)

	if err = validateSubmission(req); err != nil {
		return nil, err
	}
	selected := *req.SelectedOptionIndex

	now := s.now().UTC()
	today := stats.DayOf(now)

	var (
		subject string
		result  models.AttemptResult
	)

	err = database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		var (
			correctIndex int
			explanation  sql.NullString
			active       bool
		)
		err := tx.QueryRowContext(ctx,
			`SELECT correct_option_index, explanation, subject, is_active FROM questions WHERE id = $1`, questionID,
		).Scan(&correctIndex, &explanation, &subject, &active)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
			return contextutils.ErrQuestionNotFound
		}
		if err != nil {
			return contextutils.WrapError(err, "failed to load question")
		}

		var (
			user           models.User
			lastActiveDate sql.NullTime
		)
		err = tx.QueryRowContext(ctx,
			`SELECT total_questions_attempted, total_correct_answers, current_streak, longest_streak, last_active_date
			FROM users WHERE id = $1 FOR UPDATE`, userID,
		).Scan(&user.TotalQuestionsAttempted, &user.TotalCorrectAnswers, &user.CurrentStreak, &user.LongestStreak, &lastActiveDate)
		if errors.Is(err, sql.ErrNoRows) {
			return contextutils.ErrUserNotFound
		}
		if err != nil {
			return contextutils.WrapError(err, "failed to lock user")
		}
		user.LastActiveDate = lastActiveDate

		isCorrect := selected == correctIndex
		correctDelta := 0
		if isCorrect {
			correctDelta = 1
		}

		if _, err = tx.ExecContext(ctx,
			`INSERT INTO attempts (user_id, question_id, selected_option_index, is_correct, time_taken, attempt_date, attempted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			userID, questionID, selected, isCorrect, *req.TimeTaken, today, now,
		); err != nil {
			return contextutils.WrapError(err, "failed to record attempt")
		}

		if _, err = tx.ExecContext(ctx,
			`UPDATE questions SET total_attempts = total_attempts + 1, correct_attempts = correct_attempts + $1 WHERE id = $2`,
			correctDelta, questionID,
		); err != nil {
			return contextutils.WrapError(err, "failed to update question counters")
		}

		streak := stats.NextStreak(user.Streak(), user.LastActiveDay(), today)
		totalAttempted := user.TotalQuestionsAttempted + 1
		totalCorrect := user.TotalCorrectAnswers + correctDelta

		if _, err = tx.ExecContext(ctx,
			`UPDATE users SET total_questions_attempted = $1, total_correct_answers = $2, current_streak = $3,
			longest_streak = $4, last_active_date = $5, updated_at = $5 WHERE id = $6`,
			totalAttempted, totalCorrect, streak.Current, streak.Longest, now, userID,
		); err != nil {
			return contextutils.WrapError(err, "failed to update user counters")
		}

		var todayAttempted int
		if err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM attempts WHERE user_id = $1 AND attempt_date = $2`, userID, today,
		).Scan(&todayAttempted); err != nil {
			return contextutils.WrapError(err, "failed to count today's attempts")
		}

		result = models.AttemptResult{
			IsCorrect:          isCorrect,
			CorrectOptionIndex: correctIndex,
			Explanation:        explanation.String,
			UserStats: models.AttemptUserStats{
				TotalAttempted: totalAttempted,
				TotalCorrect:   totalCorrect,
				CurrentStreak:  streak.Current,
				LongestStreak:  streak.Longest,
				Accuracy:       stats.Accuracy(totalCorrect, totalAttempted),
				TodayAttempted: todayAttempted,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Bool("attempt.correct", result.IsCorrect), attribute.Int("user.current_streak", result.UserStats.CurrentStreak))
	s.metrics.RecordSubmitted(ctx, subject, result.IsCorrect)
	s.logger.Debug(ctx, "Attempt recorded", map[string]interface{}{
		"user_id":     userID,
		"question_id": questionID,
		"correct":     result.IsCorrect,
		"streak":      result.UserStats.CurrentStreak,
	})
	return &result, nil
}

// ListAttempts returns the user's attempt history, newest first
func (s *AttemptService) ListAttempts(ctx context.Context, userID, page, limit int) (result0 []models.AttemptHistoryItem, result1 int, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "list_attempts",
		observability.AttributeUserID(userID), observability.AttributePage(page), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	var total int
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count attempts")
	}

	pagination := models.NewPagination(page, limit, total)
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.user_id, a.question_id, a.selected_option_index, a.is_correct, a.time_taken, a.attempt_date, a.attempted_at,
			q.subject, q.topic, q.difficulty, q.question_text
		FROM attempts a JOIN questions q ON q.id = a.question_id
		WHERE a.user_id = $1
		ORDER BY a.attempted_at DESC, a.id DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, pagination.Offset())
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to list attempts")
	}
	defer func() { _ = rows.Close() }()

	items := []models.AttemptHistoryItem{}
	for rows.Next() {
		var item models.AttemptHistoryItem
		if err = rows.Scan(
			&item.ID, &item.UserID, &item.QuestionID, &item.SelectedOptionIndex, &item.IsCorrect, &item.TimeTaken,
			&item.AttemptDate, &item.AttemptedAt, &item.Subject, &item.Topic, &item.Difficulty, &item.QuestionText,
		); err != nil {
			return nil, 0, contextutils.WrapError(err, "failed to scan attempt")
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, contextutils.WrapError(err, "error iterating attempts")
	}
	return items, total, nil
}

// ClearAttempts deletes a user's attempt log and zeroes their counters and streaks.
// Question counters keep their totals.
func (s *AttemptService) ClearAttempts(ctx context.Context, userID int) (result0 int, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "clear_attempts", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	var deleted int64
	err = database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		var id int
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return contextutils.ErrUserNotFound
		}
		if err != nil {
			return contextutils.WrapError(err, "failed to lock user")
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM attempts WHERE user_id = $1`, userID)
		if err != nil {
			return contextutils.WrapError(err, "failed to delete attempts")
		}
		if deleted, err = res.RowsAffected(); err != nil {
			return contextutils.WrapError(err, "failed to read deleted rows")
		}

		if _, err = tx.ExecContext(ctx,
			`UPDATE users SET total_questions_attempted = 0, total_correct_answers = 0, current_streak = 0,
			longest_streak = 0, last_active_date = NULL, updated_at = $1 WHERE id = $2`,
			s.now().UTC(), userID,
		); err != nil {
			return contextutils.WrapError(err, "failed to reset user counters")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "Cleared user attempts", map[string]interface{}{"user_id": userID, "deleted": deleted})
	return int(deleted), nil
}
