// Package models defines the persistent records and API payloads of the PrepX backend.
package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"prepx/internal/stats"
)

// Role is a user's authorization role
type Role string

// Known roles
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered account together with its running practice counters
type User struct {
	ID                      int            `json:"id" yaml:"id"`
	Username                string         `json:"username" yaml:"username"`
	Email                   string         `json:"email" yaml:"email"`
	PasswordHash            string         `json:"-" yaml:"-"`
	FullName                sql.NullString `json:"fullName" yaml:"full_name"`
	Bio                     sql.NullString `json:"bio" yaml:"bio"`
	AvatarURL               sql.NullString `json:"avatarUrl" yaml:"avatar_url"`
	Role                    Role           `json:"role" yaml:"role"`
	IsBanned                bool           `json:"isBanned" yaml:"is_banned"`
	BanReason               sql.NullString `json:"banReason" yaml:"ban_reason"`
	TotalQuestionsAttempted int            `json:"totalQuestionsAttempted" yaml:"total_questions_attempted"`
	TotalCorrectAnswers     int            `json:"totalCorrectAnswers" yaml:"total_correct_answers"`
	CurrentStreak           int            `json:"currentStreak" yaml:"current_streak"`
	LongestStreak           int            `json:"longestStreak" yaml:"longest_streak"`
	LastActiveDate          sql.NullTime   `json:"lastActiveDate" yaml:"last_active_date"`
	CreatedAt               time.Time      `json:"createdAt" yaml:"created_at"`
	UpdatedAt               time.Time      `json:"updatedAt" yaml:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Accuracy is the all-time percentage of correct answers
func (u User) Accuracy() int {
	return stats.Accuracy(u.TotalCorrectAnswers, u.TotalQuestionsAttempted)
}

// Streak returns the user's streak counters
func (u User) Streak() stats.Streak {
	return stats.Streak{Current: u.CurrentStreak, Longest: u.LongestStreak}
}

// LastActiveDay returns the UTC day of the last submission, or nil if the user never answered
func (u User) LastActiveDay() *stats.DayKey {
	if !u.LastActiveDate.Valid {
		return nil
	}
	day := stats.DayOf(u.LastActiveDate.Time)
	return &day
}

// Summary returns the compact author/ranking view of the user
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  nullStringToPointer(u.FullName),
		AvatarURL: nullStringToPointer(u.AvatarURL),
	}
}

// MarshalJSON customizes JSON marshaling for User to handle sql.NullString and sql.NullTime properly
func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID                      int        `json:"id"`
		Username                string     `json:"username"`
		Email                   string     `json:"email"`
		FullName                *string    `json:"fullName"`
		Bio                     *string    `json:"bio"`
		AvatarURL               *string    `json:"avatarUrl"`
		Role                    Role       `json:"role"`
		IsBanned                bool       `json:"isBanned"`
		BanReason               *string    `json:"banReason,omitempty"`
		TotalQuestionsAttempted int        `json:"totalQuestionsAttempted"`
		TotalCorrectAnswers     int        `json:"totalCorrectAnswers"`
		Accuracy                int        `json:"accuracy"`
		CurrentStreak           int        `json:"currentStreak"`
		LongestStreak           int        `json:"longestStreak"`
		LastActiveDate          *time.Time `json:"lastActiveDate"`
		CreatedAt               time.Time  `json:"createdAt"`
		UpdatedAt               time.Time  `json:"updatedAt"`
	}{
		ID:                      u.ID,
		Username:                u.Username,
		Email:                   u.Email,
		FullName:                nullStringToPointer(u.FullName),
		Bio:                     nullStringToPointer(u.Bio),
		AvatarURL:               nullStringToPointer(u.AvatarURL),
		Role:                    u.Role,
		IsBanned:                u.IsBanned,
		BanReason:               nullStringToPointer(u.BanReason),
		TotalQuestionsAttempted: u.TotalQuestionsAttempted,
		TotalCorrectAnswers:     u.TotalCorrectAnswers,
		Accuracy:                u.Accuracy(),
		CurrentStreak:           u.CurrentStreak,
		LongestStreak:           u.LongestStreak,
		LastActiveDate:          nullTimeToPointer(u.LastActiveDate),
		CreatedAt:               u.CreatedAt,
		UpdatedAt:               u.UpdatedAt,
	})
}

// UserSummary is the compact user view embedded in posts, comments, follow lists and rankings
type UserSummary struct {
	ID        int     `json:"id"`
	Username  string  `json:"username"`
	FullName  *string `json:"fullName"`
	AvatarURL *string `json:"avatarUrl"`
}

// PublicProfile is what other users see on a profile page. Email and ban details are omitted.
type PublicProfile struct {
	ID                      int        `json:"id"`
	Username                string     `json:"username"`
	FullName                *string    `json:"fullName"`
	Bio                     *string    `json:"bio"`
	AvatarURL               *string    `json:"avatarUrl"`
	Role                    Role       `json:"role"`
	TotalQuestionsAttempted int        `json:"totalQuestionsAttempted"`
	TotalCorrectAnswers     int        `json:"totalCorrectAnswers"`
	Accuracy                int        `json:"accuracy"`
	CurrentStreak           int        `json:"currentStreak"`
	LongestStreak           int        `json:"longestStreak"`
	LastActiveDate          *time.Time `json:"lastActiveDate"`
	FollowersCount          int        `json:"followersCount"`
	FollowingCount          int        `json:"followingCount"`
	PostsCount              int        `json:"postsCount"`
	IsFollowing             bool       `json:"isFollowing"`
	IsOwnProfile            bool       `json:"isOwnProfile"`
	CreatedAt               time.Time  `json:"createdAt"`
}

// NewPublicProfile builds the profile view of u; social counts are filled in by the caller
func NewPublicProfile(u User) PublicProfile {
	return PublicProfile{
		ID:                      u.ID,
		Username:                u.Username,
		FullName:                nullStringToPointer(u.FullName),
		Bio:                     nullStringToPointer(u.Bio),
		AvatarURL:               nullStringToPointer(u.AvatarURL),
		Role:                    u.Role,
		TotalQuestionsAttempted: u.TotalQuestionsAttempted,
		TotalCorrectAnswers:     u.TotalCorrectAnswers,
		Accuracy:                u.Accuracy(),
		CurrentStreak:           u.CurrentStreak,
		LongestStreak:           u.LongestStreak,
		LastActiveDate:          nullTimeToPointer(u.LastActiveDate),
		CreatedAt:               u.CreatedAt,
	}
}

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"fullName" binding:"required,max=100"`
}

// LoginRequest is the body of POST /api/auth/login. Identifier is a username or an email.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// UpdateProfileRequest is the body of PUT /api/users/me. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	FullName  *string `json:"fullName" binding:"omitempty,max=100"`
	Bio       *string `json:"bio" binding:"omitempty,max=300"`
	AvatarURL *string `json:"avatarUrl" binding:"omitempty,max=500"`
	Email     *string `json:"email" binding:"omitempty,email"`
}

// ChangePasswordRequest is the body of PUT /api/users/me/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// NullString converts an optional string into a sql.NullString; empty strings become NULL
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
