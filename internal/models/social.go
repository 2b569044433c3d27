package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Post is a feed entry written by a user
type Post struct {
	ID            int            `json:"id"`
	UserID        int            `json:"userId"`
	Content       string         `json:"content"`
	ImageURL      sql.NullString `json:"imageUrl"`
	LikesCount    int            `json:"likesCount"`
	CommentsCount int            `json:"commentsCount"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	// Filled per viewer
	Author  *UserSummary `json:"author,omitempty"`
	IsLiked bool         `json:"isLiked"`
}

// MarshalJSON customizes JSON marshaling for Post to handle sql.NullString properly
func (p Post) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID            int          `json:"id"`
		UserID        int          `json:"userId"`
		Content       string       `json:"content"`
		ImageURL      *string      `json:"imageUrl"`
		LikesCount    int          `json:"likesCount"`
		CommentsCount int          `json:"commentsCount"`
		Author        *UserSummary `json:"author,omitempty"`
		IsLiked       bool         `json:"isLiked"`
		CreatedAt     time.Time    `json:"createdAt"`
		UpdatedAt     time.Time    `json:"updatedAt"`
	}{
		ID:            p.ID,
		UserID:        p.UserID,
		Content:       p.Content,
		ImageURL:      nullStringToPointer(p.ImageURL),
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		Author:        p.Author,
		IsLiked:       p.IsLiked,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	})
}

// Comment is a reply on a post
type Comment struct {
	ID        int          `json:"id"`
	PostID    int          `json:"postId"`
	UserID    int          `json:"userId"`
	Content   string       `json:"content"`
	Author    *UserSummary `json:"author,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Bookmark is a saved question
type Bookmark struct {
	QuestionID int          `json:"questionId"`
	Question   QuestionView `json:"question"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// FollowStatus describes the relation between the viewer and another user
type FollowStatus struct {
	IsFollowing bool `json:"isFollowing"`
	FollowsYou  bool `json:"followsYou"`
}

// CreatePostRequest is the body of POST /api/posts
type CreatePostRequest struct {
	Content  string `json:"content" binding:"required,min=1,max=2000"`
	ImageURL string `json:"imageUrl" binding:"omitempty,url,max=500"`
}

// CreateCommentRequest is the body of POST /api/posts/{id}/comments
type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,min=1,max=500"`
}

// CreateBookmarkRequest is the body of POST /api/bookmarks
type CreateBookmarkRequest struct {
	QuestionID int `json:"questionId" binding:"required,min=1"`
}

// Search result types
const (
	SearchTypeAll       = "all"
	SearchTypeUsers     = "users"
	SearchTypeQuestions = "questions"
	SearchTypePosts     = "posts"
)

// SearchResults holds up to a fixed number of hits per type. Types not searched are omitted.
type SearchResults struct {
	Query     string         `json:"query"`
	Users     []UserSummary  `json:"users,omitempty"`
	Questions []QuestionView `json:"questions,omitempty"`
	Posts     []Post         `json:"posts,omitempty"`
}
