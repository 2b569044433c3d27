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

// PostHandler serves posts, the feed, likes and comments
type PostHandler struct {
	postService services.PostServiceInterface
	config      *config.Config
	logger      *observability.Logger
}

// NewPostHandler creates a new PostHandler instance
func NewPostHandler(postService services.PostServiceInterface, cfg *config.Config, logger *observability.Logger) *PostHandler {
	return &PostHandler{postService: postService, config: cfg, logger: logger}
}

type likeResponse struct {
	LikesCount int `json:"likesCount"`
}

// CreatePost publishes a post as the caller
func (h *PostHandler) CreatePost(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_post")
	defer observability.FinishSpan(span, nil)

	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	post, err := h.postService.CreatePost(ctx, middleware.CurrentUserID(c), req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusCreated, post, "Post created")
}

// GetFeed pages through the caller's and followed users' posts, newest first
func (h *PostHandler) GetFeed(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_feed")
	defer observability.FinishSpan(span, nil)

	page, limit := ParsePagination(c, h.config)
	posts, total, err := h.postService.GetFeed(ctx, middleware.CurrentUserID(c), page, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, posts, page, limit, total)
}

// GetPost returns one post
func (h *PostHandler) GetPost(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_post")
	defer observability.FinishSpan(span, nil)

	postID, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	post, err := h.postService.GetPost(ctx, middleware.CurrentUserID(c), postID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, post, "")
}

// DeletePost removes a post; owner or admin only
func (h *PostHandler) DeletePost(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_post")
	defer observability.FinishSpan(span, nil)

	postID, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("post.id", postID))

	if err := h.postService.DeletePost(ctx, middleware.CurrentUserID(c), middleware.IsAdmin(c), postID); err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, nil, "Post deleted")
}

// LikePost likes a post; repeating it changes nothing
func (h *PostHandler) LikePost(c *gin.Context) {
	h.toggleLike(c, true)
}

// UnlikePost removes the caller's like; repeating it changes nothing
func (h *PostHandler) UnlikePost(c *gin.Context) {
	h.toggleLike(c, false)
}

func (h *PostHandler) toggleLike(c *gin.Context, like bool) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "toggle_like")
	defer observability.FinishSpan(span, nil)

	postID, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("post.id", postID), attribute.Bool("like", like))

	var count int
	if like {
		count, err = h.postService.LikePost(ctx, middleware.CurrentUserID(c), postID)
	} else {
		count, err = h.postService.UnlikePost(ctx, middleware.CurrentUserID(c), postID)
	}
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, likeResponse{LikesCount: count}, "")
}

// ListComments pages through a post's comments, oldest first
func (h *PostHandler) ListComments(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_comments")
	defer observability.FinishSpan(span, nil)

	postID, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	page, limit := ParsePagination(c, h.config)

	comments, total, err := h.postService.ListComments(ctx, postID, page, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, comments, page, limit, total)
}

// AddComment comments on a post as the caller
func (h *PostHandler) AddComment(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "add_comment")
	defer observability.FinishSpan(span, nil)

	postID, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	comment, err := h.postService.AddComment(ctx, middleware.CurrentUserID(c), postID, req.Content)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusCreated, comment, "Comment added")
}

// DeleteComment removes a comment; comment owner, post owner or admin only
func (h *PostHandler) DeleteComment(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_comment")
	defer observability.FinishSpan(span, nil)

	postID, err := ParseIDParam(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	commentID, err := ParseIDParam(c, "commentId")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if err := h.postService.DeleteComment(ctx, middleware.CurrentUserID(c), middleware.IsAdmin(c), postID, commentID); err != nil {
		HandleAppError(c, err)
		return
	}
	middleware.Respond(c, http.StatusOK, nil, "Comment deleted")
}
