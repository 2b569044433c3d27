package handlers

import (
	"net/http"

	"prepx/internal/config"
	"prepx/internal/middleware"
	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/services"

	"github.com/gin-gonic/gin"
)

// SocialHandler serves bookmarks, follows and search
type SocialHandler struct {
	bookmarkService services.BookmarkServiceInterface
	followService   services.FollowServiceInterface
	searchService   services.SearchServiceInterface
	config          *config.Config
	logger          *observability.Logger
}

// NewSocialHandler creates a new SocialHandler instance
func NewSocialHandler(
	bookmarkService services.BookmarkServiceInterface,
	followService services.FollowServiceInterface,
	searchService services.SearchServiceInterface,
	cfg *config.Config,
	logger *observability.Logger,
) *SocialHandler {
	return &SocialHandler{
		bookmarkService: bookmarkService,
		followService:   followService,
		searchService:   searchService,
		config:          cfg,
		logger:          logger,
	}
}

// AddBookmark saves a question for the caller
func (h *SocialHandler) AddBookmark(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "add_bookmark")
	defer observability.FinishSpan(span, nil)

	var req models.CreateBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	if err := h.bookmarkService.AddBookmark(ctx, middleware.CurrentUserID(c), req.QuestionID); err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusCreated, nil, "Bookmarked")
}

// RemoveBookmark drops a saved question
func (h *SocialHandler) RemoveBookmark(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "remove_bookmark")
	defer observability.FinishSpan(span, nil)

	questionID, err := ParseIDParam(c, "questionId")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if err := h.bookmarkService.RemoveBookmark(ctx, middleware.CurrentUserID(c), questionID); err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, nil, "Bookmark removed")
}

// ListBookmarks pages through the caller's saved questions
func (h *SocialHandler) ListBookmarks(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_bookmarks")
	defer observability.FinishSpan(span, nil)

	page, limit := ParsePagination(c, h.config)
	bookmarks, total, err := h.bookmarkService.ListBookmarks(ctx, middleware.CurrentUserID(c), page, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, bookmarks, page, limit, total)
}

// Follow makes the caller follow :userId
func (h *SocialHandler) Follow(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "follow")
	defer observability.FinishSpan(span, nil)

	targetID, err := ParseIDParam(c, "userId")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if err := h.followService.Follow(ctx, middleware.CurrentUserID(c), targetID); err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, nil, "Followed")
}

// Unfollow removes the caller's follow of :userId
func (h *SocialHandler) Unfollow(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "unfollow")
	defer observability.FinishSpan(span, nil)

	targetID, err := ParseIDParam(c, "userId")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if err := h.followService.Unfollow(ctx, middleware.CurrentUserID(c), targetID); err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, nil, "Unfollowed")
}

// FollowStatus reports the follow relationship in both directions
func (h *SocialHandler) FollowStatus(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "follow_status")
	defer observability.FinishSpan(span, nil)

	otherID, err := ParseIDParam(c, "userId")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	status, err := h.followService.GetStatus(ctx, middleware.CurrentUserID(c), otherID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, status, "")
}

// Search matches users, questions and posts by substring
func (h *SocialHandler) Search(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "search")
	defer observability.FinishSpan(span, nil)

	results, err := h.searchService.Search(ctx, middleware.CurrentUserID(c), c.Query("q"), c.Query("type"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, results, "")
}
