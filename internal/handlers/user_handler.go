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
)

// UserHandler serves profiles, profile edits, follow lists and personal history
type UserHandler struct {
	userService    services.UserServiceInterface
	followService  services.FollowServiceInterface
	postService    services.PostServiceInterface
	attemptService services.AttemptServiceInterface
	config         *config.Config
	logger         *observability.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(
	userService services.UserServiceInterface,
	followService services.FollowServiceInterface,
	postService services.PostServiceInterface,
	attemptService services.AttemptServiceInterface,
	cfg *config.Config,
	logger *observability.Logger,
) *UserHandler {
	return &UserHandler{
		userService:    userService,
		followService:  followService,
		postService:    postService,
		attemptService: attemptService,
		config:         cfg,
		logger:         logger,
	}
}

// GetMe returns the caller's own account
func (h *UserHandler) GetMe(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_me")
	defer observability.FinishSpan(span, nil)

	user, err := h.userService.GetUserByID(ctx, middleware.CurrentUserID(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, user, "")
}

// UpdateMe edits the caller's profile
func (h *UserHandler) UpdateMe(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_me")
	defer observability.FinishSpan(span, nil)

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	user, err := h.userService.UpdateProfile(ctx, middleware.CurrentUserID(c), req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, user, "Profile updated")
}

// ChangePassword replaces the caller's password after checking the current one
func (h *UserHandler) ChangePassword(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "change_password")
	defer observability.FinishSpan(span, nil)

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	if err := h.userService.ChangePassword(ctx, middleware.CurrentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, nil, "Password changed")
}

// GetProfile returns the public profile for a username
func (h *UserHandler) GetProfile(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_profile")
	defer observability.FinishSpan(span, nil)

	profile, err := h.userService.GetPublicProfile(ctx, middleware.CurrentUserID(c), strings.TrimSpace(c.Param("user")))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, profile, "")
}

// ListFollowers pages through the accounts following a user id
func (h *UserHandler) ListFollowers(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_followers")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseIDParam(c, "user")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	page, limit := ParsePagination(c, h.config)

	users, total, err := h.followService.ListFollowers(ctx, userID, page, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, users, page, limit, total)
}

// ListFollowing pages through the accounts a user id follows
func (h *UserHandler) ListFollowing(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_following")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseIDParam(c, "user")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	page, limit := ParsePagination(c, h.config)

	users, total, err := h.followService.ListFollowing(ctx, userID, page, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, users, page, limit, total)
}

// ListPosts pages through a user's posts, newest first
func (h *UserHandler) ListPosts(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_user_posts")
	defer observability.FinishSpan(span, nil)

	page, limit := ParsePagination(c, h.config)
	posts, total, err := h.postService.ListUserPosts(ctx, middleware.CurrentUserID(c), strings.TrimSpace(c.Param("user")), page, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, posts, page, limit, total)
}

// ListMyAttempts pages through the caller's answer history, newest first
func (h *UserHandler) ListMyAttempts(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_my_attempts")
	defer observability.FinishSpan(span, nil)

	page, limit := ParsePagination(c, h.config)
	attempts, total, err := h.attemptService.ListAttempts(ctx, middleware.CurrentUserID(c), page, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, attempts, page, limit, total)
}
