// Package handlers provides the HTTP handlers and router of the PrepX API.
package handlers

import (
	"net/http"
	"strings"

	"prepx/internal/config"
	"prepx/internal/middleware"
	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AdminHandler handles the moderation and dashboard endpoints
type AdminHandler struct {
	adminService   services.AdminServiceInterface
	userService    services.UserServiceInterface
	attemptService services.AttemptServiceInterface
	postService    services.PostServiceInterface
	config         *config.Config
	logger         *observability.Logger
}

// NewAdminHandlerWithLogger creates a new AdminHandler with the provided services and logger.
func NewAdminHandlerWithLogger(
	adminService services.AdminServiceInterface,
	userService services.UserServiceInterface,
	attemptService services.AttemptServiceInterface,
	postService services.PostServiceInterface,
	cfg *config.Config,
	logger *observability.Logger,
) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		userService:    userService,
		attemptService: attemptService,
		postService:    postService,
		config:         cfg,
		logger:         logger,
	}
}

// GetDashboard returns platform wide counters
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_dashboard")
	defer observability.FinishSpan(span, nil)

	stats, err := h.adminService.GetDashboard(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, stats, "")
}

// ListUsers pages through all accounts, banned ones included, optionally filtered by ?search
func (h *AdminHandler) ListUsers(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_list_users")
	defer observability.FinishSpan(span, nil)

	page, limit := ParsePagination(c, h.config)
	users, total, err := h.userService.ListUsers(ctx, page, limit, strings.TrimSpace(c.Query("search")))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, users, page, limit, total)
}

// BanUser bans an account with an optional reason
func (h *AdminHandler) BanUser(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_ban_user")
	defer observability.FinishSpan(span, nil)

	targetID, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	var req models.BanRequest
	// An empty body bans without a reason
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindError(c, err)
			return
		}
	}

	actorID := middleware.CurrentUserID(c)
	span.SetAttributes(attribute.Int("admin.id", actorID), attribute.Int("target.id", targetID))
	if err := h.adminService.BanUser(ctx, actorID, targetID, req.Reason); err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, nil, "User banned")
}

// UnbanUser lifts a ban
func (h *AdminHandler) UnbanUser(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_unban_user")
	defer observability.FinishSpan(span, nil)

	targetID, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if err := h.adminService.UnbanUser(ctx, middleware.CurrentUserID(c), targetID); err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, nil, "User unbanned")
}

// ChangeRole sets an account's role
func (h *AdminHandler) ChangeRole(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_change_role")
	defer observability.FinishSpan(span, nil)

	targetID, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	var req models.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	if err := h.adminService.ChangeRole(ctx, middleware.CurrentUserID(c), targetID, req.Role); err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, nil, "Role updated")
}

// ClearAttempts deletes a user's answer history and zeroes their counters
func (h *AdminHandler) ClearAttempts(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_clear_attempts")
	defer observability.FinishSpan(span, nil)

	targetID, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	deleted, err := h.attemptService.ClearAttempts(ctx, targetID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	h.logger.Info(ctx, "Attempts cleared", map[string]interface{}{
		"admin_id": middleware.CurrentUserID(c),
		"user_id":  targetID,
		"deleted":  deleted,
	})
	middleware.Respond(c, http.StatusOK, gin.H{"deleted": deleted}, "Attempts cleared")
}

// DeletePost removes any post
func (h *AdminHandler) DeletePost(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_delete_post")
	defer observability.FinishSpan(span, nil)

	postID, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if err := h.postService.DeletePost(ctx, middleware.CurrentUserID(c), true, postID); err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, nil, "Post deleted")
}
