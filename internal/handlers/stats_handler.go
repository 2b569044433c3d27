package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"prepx/internal/config"
	"prepx/internal/middleware"
	"prepx/internal/observability"
	"prepx/internal/services"

	"github.com/gin-gonic/gin"
)

// StatsHandler serves the caller's practice rollups
type StatsHandler struct {
	statsService services.StatsServiceInterface
	config       *config.Config
	logger       *observability.Logger
}

// NewStatsHandler creates a new StatsHandler instance
func NewStatsHandler(statsService services.StatsServiceInterface, cfg *config.Config, logger *observability.Logger) *StatsHandler {
	return &StatsHandler{statsService: statsService, config: cfg, logger: logger}
}

// GetToday returns today's totals
func (h *StatsHandler) GetToday(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_today_stats")
	defer observability.FinishSpan(span, nil)

	result, err := h.statsService.GetTodayStats(ctx, middleware.CurrentUserID(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, result, "")
}

// GetWeek returns the current Monday to Sunday rollup
func (h *StatsHandler) GetWeek(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_week_stats")
	defer observability.FinishSpan(span, nil)

	result, err := h.statsService.GetWeekStats(ctx, middleware.CurrentUserID(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, result, "")
}

// GetMonth returns the rollup for ?month=YYYY-MM, default the current month
func (h *StatsHandler) GetMonth(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_month_stats")
	defer observability.FinishSpan(span, nil)

	result, err := h.statsService.GetMonthStats(ctx, middleware.CurrentUserID(c), strings.TrimSpace(c.Query("month")))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, result, "")
}

// GetActivityGraph returns one cell per day for the last ?months=N months (default 12)
func (h *StatsHandler) GetActivityGraph(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_activity_graph")
	defer observability.FinishSpan(span, nil)

	months := config.ActivityGraphMaxMonths
	if raw := strings.TrimSpace(c.Query("months")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			HandleValidationError(c, "months", raw, "must be an integer")
			return
		}
		months = n
	}

	result, err := h.statsService.GetActivityGraph(ctx, middleware.CurrentUserID(c), months)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, result, "")
}

// GetOverall returns all-time totals
func (h *StatsHandler) GetOverall(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_overall_stats")
	defer observability.FinishSpan(span, nil)

	result, err := h.statsService.GetOverallStats(ctx, middleware.CurrentUserID(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, result, "")
}
