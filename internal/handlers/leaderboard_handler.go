package handlers

import (
	"net/http"
	"strings"

	"prepx/internal/config"
	"prepx/internal/middleware"
	"prepx/internal/observability"
	"prepx/internal/services"

	"github.com/gin-gonic/gin"
)

// LeaderboardHandler serves the rankings
type LeaderboardHandler struct {
	leaderboardService services.LeaderboardServiceInterface
	config             *config.Config
	logger             *observability.Logger
}

// NewLeaderboardHandler creates a new LeaderboardHandler instance
func NewLeaderboardHandler(leaderboardService services.LeaderboardServiceInterface, cfg *config.Config, logger *observability.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService, config: cfg, logger: logger}
}

// GetGlobal pages through the all-time ranking
func (h *LeaderboardHandler) GetGlobal(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_global_leaderboard")
	defer observability.FinishSpan(span, nil)

	page, limit := ParsePagination(c, h.config)
	board, err := h.leaderboardService.GetGlobalLeaderboard(ctx, middleware.CurrentUserID(c), page, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, board, "")
}

// GetWeekly returns the current week's ranking
func (h *LeaderboardHandler) GetWeekly(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_weekly_leaderboard")
	defer observability.FinishSpan(span, nil)

	_, limit := ParsePagination(c, h.config)
	board, err := h.leaderboardService.GetWeeklyLeaderboard(ctx, middleware.CurrentUserID(c), limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, board, "")
}

// GetSubject returns the current week's ranking within one subject
func (h *LeaderboardHandler) GetSubject(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_subject_leaderboard")
	defer observability.FinishSpan(span, nil)

	_, limit := ParsePagination(c, h.config)
	board, err := h.leaderboardService.GetSubjectLeaderboard(ctx, middleware.CurrentUserID(c), strings.TrimSpace(c.Param("subject")), limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, board, "")
}

// GetFriends ranks the caller among the users they follow
func (h *LeaderboardHandler) GetFriends(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_friends_leaderboard")
	defer observability.FinishSpan(span, nil)

	board, err := h.leaderboardService.GetFriendsLeaderboard(ctx, middleware.CurrentUserID(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, board, "")
}

// GetSummary returns the caller's standing across boards
func (h *LeaderboardHandler) GetSummary(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_leaderboard_summary")
	defer observability.FinishSpan(span, nil)

	summary, err := h.leaderboardService.GetSummary(ctx, middleware.CurrentUserID(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, summary, "")
}
