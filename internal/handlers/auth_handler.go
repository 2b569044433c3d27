package handlers

import (
	"net/http"

	"prepx/internal/config"
	"prepx/internal/middleware"
	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/services"
	contextutils "prepx/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	userService services.UserServiceInterface
	config      *config.Config
	logger      *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService services.UserServiceInterface, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		config:      cfg,
		logger:      logger,
	}
}

// Register creates an account and starts a session for it
func (h *AuthHandler) Register(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "register")
	defer observability.FinishSpan(span, nil)

	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	span.SetAttributes(attribute.String("auth.username", req.Username))

	user, err := h.userService.Register(ctx, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if err := startSession(c, user); err != nil {
		h.logger.Error(ctx, "Failed to save session", err, map[string]interface{}{"user_id": user.ID})
		HandleAppError(c, contextutils.WrapError(err, "failed to create session"))
		return
	}

	h.logger.Info(ctx, "User registered", map[string]interface{}{"user_id": user.ID, "username": user.Username})
	middleware.Respond(c, http.StatusCreated, user, "Registration successful")
}

// Login authenticates by username or email and starts a session
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	span.SetAttributes(attribute.Bool("auth.password_provided", req.Password != ""))

	user, err := h.userService.Authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		h.logger.Warn(ctx, "Login rejected", map[string]interface{}{
			"error_code": string(contextutils.GetErrorCode(err)),
		})
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("user.id", user.ID))

	if err := startSession(c, user); err != nil {
		h.logger.Error(ctx, "Failed to save session", err, map[string]interface{}{"user_id": user.ID})
		HandleAppError(c, contextutils.WrapError(err, "failed to create session"))
		return
	}

	middleware.Respond(c, http.StatusOK, user, "Login successful")
}

// Logout clears the session. It succeeds without a session too.
func (h *AuthHandler) Logout(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "logout")
	defer observability.FinishSpan(span, nil)

	if userID, ok := GetUserIDFromSession(c); ok {
		span.SetAttributes(attribute.Int("user.id", userID))
	}

	if err := endSession(c); err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to clear session"))
		return
	}

	middleware.Respond(c, http.StatusOK, nil, "Logout successful")
}

// Me returns the logged in account
func (h *AuthHandler) Me(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "me")
	defer observability.FinishSpan(span, nil)

	user, err := h.userService.GetUserByID(ctx, middleware.CurrentUserID(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, user, "")
}
