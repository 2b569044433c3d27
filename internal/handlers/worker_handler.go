package handlers

import (
	"context"
	"net/http"

	"prepx/internal/config"
	"prepx/internal/middleware"
	"prepx/internal/observability"
	"prepx/internal/services"
	"prepx/internal/version"
	"prepx/internal/worker"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// WorkerControl is the part of the reminder worker exposed over HTTP
type WorkerControl interface {
	GetStatus() worker.Status
	GetHistory() []worker.RunRecord
	GetActivityLogs() []worker.ActivityLog
	GetInstance() string
	TriggerManualRun()
	Pause(ctx context.Context)
	Resume(ctx context.Context)
}

var _ WorkerControl = (*worker.Worker)(nil)

// WorkerHandler serves the worker's admin endpoints
type WorkerHandler struct {
	worker WorkerControl
	logger *observability.Logger
}

// NewWorkerHandler creates a new WorkerHandler
func NewWorkerHandler(w WorkerControl, logger *observability.Logger) *WorkerHandler {
	return &WorkerHandler{worker: w, logger: logger}
}

// GetStatus returns the worker state
func (h *WorkerHandler) GetStatus(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "worker_status")
	defer observability.FinishSpan(span, nil)

	middleware.Respond(c, http.StatusOK, gin.H{
		"instance": h.worker.GetInstance(),
		"status":   h.worker.GetStatus(),
	}, "")
}

// GetHistory returns recent reminder passes
func (h *WorkerHandler) GetHistory(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "worker_history")
	defer observability.FinishSpan(span, nil)
	middleware.Respond(c, http.StatusOK, h.worker.GetHistory(), "")
}

// GetActivityLogs returns the worker's recent activity
func (h *WorkerHandler) GetActivityLogs(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "worker_logs")
	defer observability.FinishSpan(span, nil)
	middleware.Respond(c, http.StatusOK, h.worker.GetActivityLogs(), "")
}

// Trigger queues a manual reminder pass
func (h *WorkerHandler) Trigger(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "worker_trigger")
	defer observability.FinishSpan(span, nil)

	h.worker.TriggerManualRun()
	h.logger.Info(ctx, "Worker run triggered", map[string]interface{}{"user_id": middleware.CurrentUserID(c)})
	middleware.Respond(c, http.StatusAccepted, nil, "Run triggered")
}

// Pause stops scheduled passes
func (h *WorkerHandler) Pause(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "worker_pause")
	defer observability.FinishSpan(span, nil)

	h.worker.Pause(ctx)
	middleware.Respond(c, http.StatusOK, h.worker.GetStatus(), "Worker paused")
}

// Resume restarts scheduled passes
func (h *WorkerHandler) Resume(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "worker_resume")
	defer observability.FinishSpan(span, nil)

	h.worker.Resume(ctx)
	middleware.Respond(c, http.StatusOK, h.worker.GetStatus(), "Worker resumed")
}

// NewWorkerRouter builds the worker's status server. It reads the API's session
// cookie, so an admin logged in to the API can drive the worker.
func NewWorkerRouter(cfg *config.Config, users services.UserServiceInterface, w WorkerControl, logger *observability.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger, "/health"))
	router.Use(middleware.ErrorRecoveryMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "prepx-worker"})
	})

	router.Use(observability.GinMiddleware("prepx-worker"))
	router.Use(observability.SpanErrorAttributes())

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	router.Use(sessions.Sessions(config.SessionName, store))

	h := NewWorkerHandler(w, logger)
	routeListing := NewRouteListingHandler("prepx-worker")

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			middleware.Respond(c, http.StatusOK, version.Get("prepx-worker"), "")
		})

		admin := v1.Group("/admin/worker")
		admin.Use(middleware.RequireAuth(users), middleware.RequireAdmin())
		{
			admin.GET("/status", h.GetStatus)
			admin.GET("/history", h.GetHistory)
			admin.GET("/logs", h.GetActivityLogs)
			admin.POST("/trigger", h.Trigger)
			admin.POST("/pause", h.Pause)
			admin.POST("/resume", h.Resume)
			admin.GET("/routes", routeListing.GetRouteListingJSON)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		middleware.Respond(c, http.StatusNotFound, nil, "Not found")
	})

	routeListing.CollectRoutes(router)
	return router
}
