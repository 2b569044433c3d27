package handlers

import (
	"net/http"

	"prepx/internal/config"
	"prepx/internal/middleware"
	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// QuestionHandler serves the question bank and answer submission
type QuestionHandler struct {
	questionService services.QuestionServiceInterface
	attemptService  services.AttemptServiceInterface
	bookmarkService services.BookmarkServiceInterface
	config          *config.Config
	logger          *observability.Logger
}

// NewQuestionHandler creates a new QuestionHandler instance
func NewQuestionHandler(
	questionService services.QuestionServiceInterface,
	attemptService services.AttemptServiceInterface,
	bookmarkService services.BookmarkServiceInterface,
	cfg *config.Config,
	logger *observability.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		attemptService:  attemptService,
		bookmarkService: bookmarkService,
		config:          cfg,
		logger:          logger,
	}
}

func publicViews(questions []models.Question) []models.QuestionView {
	views := make([]models.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, q.PublicView())
	}
	return views
}

func (h *QuestionHandler) questionFilter(c *gin.Context, includeInactive bool) models.QuestionFilter {
	page, limit := ParsePagination(c, h.config)
	filters := ParseFilters(c, "subject", "topic", "difficulty")
	return models.QuestionFilter{
		Subject:         filters["subject"],
		Topic:           filters["topic"],
		Difficulty:      filters["difficulty"],
		IncludeInactive: includeInactive,
		Page:            page,
		Limit:           limit,
	}
}

// ListQuestions pages through active questions with answers hidden
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_questions")
	defer observability.FinishSpan(span, nil)

	filter := h.questionFilter(c, false)
	questions, total, err := h.questionService.ListQuestions(ctx, filter)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, publicViews(questions), filter.Page, filter.Limit, total)
}

// GetSubjects lists the configured subjects with their active question counts
func (h *QuestionHandler) GetSubjects(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_subjects")
	defer observability.FinishSpan(span, nil)

	subjects, err := h.questionService.GetSubjects(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, subjects, "")
}

// GetRandomQuestion picks one active question matching the optional filters
func (h *QuestionHandler) GetRandomQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_random_question")
	defer observability.FinishSpan(span, nil)

	filters := ParseFilters(c, "subject", "difficulty")
	q, err := h.questionService.GetRandomQuestion(ctx, filters["subject"], filters["difficulty"])
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, q.PublicView(), "")
}

// GetQuestion returns one active question with the caller's bookmark flag
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_question")
	defer observability.FinishSpan(span, nil)

	id, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("question.id", id))

	q, err := h.questionService.GetQuestionByID(ctx, id, false)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	bookmarked, err := h.bookmarkService.IsBookmarked(ctx, middleware.CurrentUserID(c), id)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	view := q.PublicView()
	view.IsBookmarked = &bookmarked
	middleware.Respond(c, http.StatusOK, view, "")
}

// SubmitAttempt records the caller's answer and returns the verdict with updated counters
func (h *QuestionHandler) SubmitAttempt(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_attempt")
	defer observability.FinishSpan(span, nil)

	id, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	var req models.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	userID := middleware.CurrentUserID(c)
	span.SetAttributes(attribute.Int("question.id", id), attribute.Int("user.id", userID))

	result, err := h.attemptService.SubmitAttempt(ctx, userID, id, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Bool("attempt.correct", result.IsCorrect))

	message := "Incorrect answer"
	if result.IsCorrect {
		message = "Correct answer"
	}
	middleware.Respond(c, http.StatusOK, result, message)
}

// CreateQuestion adds a question to the bank (admin)
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_question")
	defer observability.FinishSpan(span, nil)

	var in models.QuestionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		HandleBindError(c, err)
		return
	}

	q, err := h.questionService.CreateQuestion(ctx, middleware.CurrentUserID(c), in)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	h.logger.Info(ctx, "Question created", map[string]interface{}{"question_id": q.ID, "subject": q.Subject})
	middleware.Respond(c, http.StatusCreated, q, "Question created")
}

// UpdateQuestion replaces a question's content (admin)
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_question")
	defer observability.FinishSpan(span, nil)

	id, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	var in models.QuestionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		HandleBindError(c, err)
		return
	}

	q, err := h.questionService.UpdateQuestion(ctx, id, in)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, q, "Question updated")
}

// DeleteQuestion soft deletes a question; its attempts keep counting (admin)
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	h.setActive(c, false, "delete_question", "Question deleted")
}

// RestoreQuestion reactivates a soft deleted question (admin)
func (h *QuestionHandler) RestoreQuestion(c *gin.Context) {
	h.setActive(c, true, "restore_question", "Question restored")
}

func (h *QuestionHandler) setActive(c *gin.Context, active bool, spanName, message string) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), spanName)
	defer observability.FinishSpan(span, nil)

	id, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if err := h.questionService.SetQuestionActive(ctx, id, active); err != nil {
		HandleAppError(c, err)
		return
	}
	h.logger.Info(ctx, message, map[string]interface{}{"question_id": id, "admin_id": middleware.CurrentUserID(c)})
	middleware.Respond(c, http.StatusOK, nil, message)
}

// AdminListQuestions pages through questions with answers, optionally including deleted ones
func (h *QuestionHandler) AdminListQuestions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_list_questions")
	defer observability.FinishSpan(span, nil)

	filter := h.questionFilter(c, ParseBoolQuery(c, "includeInactive"))
	questions, total, err := h.questionService.ListQuestions(ctx, filter)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, questions, filter.Page, filter.Limit, total)
}
