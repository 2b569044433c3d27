package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"prepx/internal/config"
	"prepx/internal/models"
	"prepx/internal/observability"
	contextutils "prepx/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// QuestionServiceInterface defines the question catalogue operations
type QuestionServiceInterface interface {
	ListQuestions(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error)
	GetSubjects(ctx context.Context) ([]models.SubjectCount, error)
	GetRandomQuestion(ctx context.Context, subject, difficulty string) (*models.Question, error)
	GetQuestionByID(ctx context.Context, id int, includeInactive bool) (*models.Question, error)
	CreateQuestion(ctx context.Context, createdBy int, in models.QuestionInput) (*models.Question, error)
	UpdateQuestion(ctx context.Context, id int, in models.QuestionInput) (*models.Question, error)
	SetQuestionActive(ctx context.Context, id int, active bool) error
	ImportQuestions(ctx context.Context, createdBy int, inputs []models.QuestionInput) (int, error)
}

// QuestionService manages questions
type QuestionService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

var _ QuestionServiceInterface = (*QuestionService)(nil)

const questionSelectFields = `id, subject, topic, difficulty, question_text, options, correct_option_index, explanation,
	created_by, is_active, total_attempts, correct_attempts, created_at, updated_at`

// prefixedFields qualifies a comma-separated column list with a table alias
func prefixedFields(fields, alias string) string {
	cols := strings.Split(fields, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

// NewQuestionServiceWithLogger creates a new QuestionService instance with logger
func NewQuestionServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *QuestionService {
	return &QuestionService{db: db, cfg: cfg, logger: logger}
}

func scanQuestion(row rowScanner) (*models.Question, error) {
	q := &models.Question{}
	err := row.Scan(
		&q.ID, &q.Subject, &q.Topic, &q.Difficulty, &q.QuestionText, pq.Array(&q.Options), &q.CorrectOptionIndex,
		&q.Explanation, &q.CreatedBy, &q.IsActive, &q.TotalAttempts, &q.CorrectAttempts, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func scanQuestions(rows *sql.Rows) ([]models.Question, error) {
	defer func() { _ = rows.Close() }()
	questions := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question")
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating questions")
	}
	return questions, nil
}

// validateFilter rejects unknown subjects and difficulties
func (s *QuestionService) validateFilter(subject, difficulty string) error {
	if subject != "" && !s.cfg.IsValidSubject(subject) {
		return contextutils.InvalidInputf("invalid subject %q", subject)
	}
	if difficulty != "" && !config.IsValidDifficulty(difficulty) {
		return contextutils.InvalidInputf("invalid difficulty %q", difficulty)
	}
	return nil
}

// filterClause builds the WHERE clause shared by listing and random selection
func filterClause(subject, topic, difficulty string, includeInactive bool) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if !includeInactive {
		conds = append(conds, "is_active = TRUE")
	}
	if subject != "" {
		args = append(args, subject)
		conds = append(conds, fmt.Sprintf("subject = $%d", len(args)))
	}
	if topic != "" {
		args = append(args, topic)
		conds = append(conds, fmt.Sprintf("topic = $%d", len(args)))
	}
	if difficulty != "" {
		args = append(args, difficulty)
		conds = append(conds, fmt.Sprintf("difficulty = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// ListQuestions returns a page of questions, newest first
func (s *QuestionService) ListQuestions(ctx context.Context, filter models.QuestionFilter) (result0 []models.Question, result1 int, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "list_questions",
		observability.AttributeSubject(filter.Subject),
		observability.AttributeDifficulty(filter.Difficulty),
		observability.AttributePage(filter.Page),
		observability.AttributeLimit(filter.Limit),
	)
	defer observability.FinishSpan(span, &err)

	if err = s.validateFilter(filter.Subject, filter.Difficulty); err != nil {
		return nil, 0, err
	}

	where, args := filterClause(filter.Subject, filter.Topic, filter.Difficulty, filter.IncludeInactive)

	var total int
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM questions "+where, args...).Scan(&total); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count questions")
	}

	pagination := models.NewPagination(filter.Page, filter.Limit, total)
	args = append(args, filter.Limit, pagination.Offset())
	query := fmt.Sprintf("SELECT %s FROM questions %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		questionSelectFields, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to list questions")
	}
	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

// GetSubjects returns every configured subject with its active question count, in configured order
func (s *QuestionService) GetSubjects(ctx context.Context) (result0 []models.SubjectCount, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "get_subjects")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT subject, COUNT(*) FROM questions WHERE is_active = TRUE GROUP BY subject`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to count questions by subject")
	}
	defer func() { _ = rows.Close() }()

	counts := map[string]int{}
	for rows.Next() {
		var subject string
		var count int
		if err = rows.Scan(&subject, &count); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan subject count")
		}
		counts[subject] = count
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating subjects")
	}

	subjects := make([]models.SubjectCount, 0, len(s.cfg.Quiz.Subjects))
	for _, subject := range s.cfg.Quiz.Subjects {
		subjects = append(subjects, models.SubjectCount{Subject: subject, QuestionCount: counts[subject]})
	}
	return subjects, nil
}

// GetRandomQuestion picks one active question matching the optional filters
func (s *QuestionService) GetRandomQuestion(ctx context.Context, subject, difficulty string) (result0 *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "get_random_question",
		observability.AttributeSubject(subject), observability.AttributeDifficulty(difficulty))
	defer observability.FinishSpan(span, &err)

	if err = s.validateFilter(subject, difficulty); err != nil {
		return nil, err
	}

	where, args := filterClause(subject, "", difficulty, false)
	query := fmt.Sprintf("SELECT %s FROM questions %s ORDER BY RANDOM() LIMIT 1", questionSelectFields, where)
	q, err := scanQuestion(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.ErrNoQuestionsAvailable
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to pick random question")
	}
	return q, nil
}

// GetQuestionByID loads a question. Soft-deleted questions are not found unless includeInactive is set.
func (s *QuestionService) GetQuestionByID(ctx context.Context, id int, includeInactive bool) (result0 *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "get_question_by_id", observability.AttributeQuestionID(id))
	defer observability.FinishSpan(span, &err)

	q, err := scanQuestion(s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM questions WHERE id = $1", questionSelectFields), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.ErrQuestionNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load question")
	}
	if !q.IsActive && !includeInactive {
		return nil, contextutils.ErrQuestionNotFound
	}
	return q, nil
}

// ValidateQuestionInput checks a create/update payload against the configured catalogue
func (s *QuestionService) ValidateQuestionInput(in models.QuestionInput) error {
	if !s.cfg.IsValidSubject(in.Subject) {
		return contextutils.InvalidInputf("invalid subject %q", in.Subject)
	}
	if !config.IsValidDifficulty(in.Difficulty) {
		return contextutils.InvalidInputf("invalid difficulty %q", in.Difficulty)
	}
	if strings.TrimSpace(in.Topic) == "" {
		return contextutils.InvalidInputf("topic is required")
	}
	if strings.TrimSpace(in.QuestionText) == "" {
		return contextutils.InvalidInputf("questionText is required")
	}
	if len(in.Options) != models.OptionCount {
		return contextutils.InvalidInputf("exactly %d options are required", models.OptionCount)
	}
	for i, opt := range in.Options {
		if strings.TrimSpace(opt) == "" {
			return contextutils.InvalidInputf("option %d is empty", i)
		}
	}
	if in.CorrectOptionIndex == nil || *in.CorrectOptionIndex < 0 || *in.CorrectOptionIndex >= models.OptionCount {
		return contextutils.InvalidInputf("correctOptionIndex must be between 0 and %d", models.OptionCount-1)
	}
	return nil
}

// CreateQuestion inserts a new active question
func (s *QuestionService) CreateQuestion(ctx context.Context, createdBy int, in models.QuestionInput) (result0 *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "create_question",
		observability.AttributeSubject(in.Subject), observability.AttributeUserID(createdBy))
	defer observability.FinishSpan(span, &err)

	if err = s.ValidateQuestionInput(in); err != nil {
		return nil, err
	}
	return s.insertQuestion(ctx, s.db, createdBy, in)
}

// execQuerier is satisfied by *sql.DB and *sql.Tx
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *QuestionService) insertQuestion(ctx context.Context, q execQuerier, createdBy int, in models.QuestionInput) (*models.Question, error) {
	creator := sql.NullInt64{Int64: int64(createdBy), Valid: createdBy > 0}
	query := fmt.Sprintf(`INSERT INTO questions (subject, topic, difficulty, question_text, options, correct_option_index, explanation, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING %s`, questionSelectFields)
	question, err := scanQuestion(q.QueryRowContext(ctx, query,
		in.Subject, strings.TrimSpace(in.Topic), in.Difficulty, strings.TrimSpace(in.QuestionText),
		pq.Array(in.Options), *in.CorrectOptionIndex, models.NullString(strings.TrimSpace(in.Explanation)), creator,
	))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create question")
	}
	return question, nil
}

// UpdateQuestion replaces the editable fields. Counters and active state are untouched.
func (s *QuestionService) UpdateQuestion(ctx context.Context, id int, in models.QuestionInput) (result0 *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "update_question", observability.AttributeQuestionID(id))
	defer observability.FinishSpan(span, &err)

	if err = s.ValidateQuestionInput(in); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`UPDATE questions SET subject = $1, topic = $2, difficulty = $3, question_text = $4, options = $5,
		correct_option_index = $6, explanation = $7, updated_at = $8 WHERE id = $9 RETURNING %s`, questionSelectFields)
	q, err := scanQuestion(s.db.QueryRowContext(ctx, query,
		in.Subject, strings.TrimSpace(in.Topic), in.Difficulty, strings.TrimSpace(in.QuestionText), pq.Array(in.Options),
		*in.CorrectOptionIndex, models.NullString(strings.TrimSpace(in.Explanation)), time.Now(), id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.ErrQuestionNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to update question")
	}
	return q, nil
}

// SetQuestionActive soft-deletes (active=false) or restores a question
func (s *QuestionService) SetQuestionActive(ctx context.Context, id int, active bool) (err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "set_question_active",
		observability.AttributeQuestionID(id), attribute.Bool("question.active", active))
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx, `UPDATE questions SET is_active = $1, updated_at = $2 WHERE id = $3`, active, time.Now(), id)
	if err != nil {
		return contextutils.WrapError(err, "failed to update question state")
	}
	return requireAffected(res, contextutils.ErrQuestionNotFound)
}

// ImportQuestions validates every input first, then inserts them all in one transaction
func (s *QuestionService) ImportQuestions(ctx context.Context, createdBy int, inputs []models.QuestionInput) (result0 int, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "import_questions", attribute.Int("questions.count", len(inputs)))
	defer observability.FinishSpan(span, &err)

	for i, in := range inputs {
		if err := s.ValidateQuestionInput(in); err != nil {
			return 0, contextutils.WrapErrorf(err, "question %d", i+1)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to begin import")
	}
	defer func() { _ = tx.Rollback() }()

	for _, in := range inputs {
		if _, err := s.insertQuestion(ctx, tx, createdBy, in); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, contextutils.WrapError(err, "failed to commit import")
	}

	s.logger.Info(ctx, "Imported questions", map[string]interface{}{"count": len(inputs)})
	return len(inputs), nil
}
