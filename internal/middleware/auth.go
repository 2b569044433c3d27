// Package middleware provides the gin middleware of the PrepX API: sessions and roles,
// error envelopes, request ids and logging, rate limiting and response validation.
package middleware

import (
	"context"
	"errors"

	"prepx/internal/models"
	contextutils "prepx/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session and gin context keys
const (
	// UserIDKey holds the authenticated user id in the session and the gin context
	UserIDKey = "user_id"
	// UsernameKey holds the username in the session and the gin context
	UsernameKey = "username"
	// UserRoleKey holds the role loaded for this request
	UserRoleKey = "user_role"
)

// UserLookup loads the account behind a session
type UserLookup interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

// sessionUserID reads the user id from the session, tolerating the numeric types
// different session codecs produce
func sessionUserID(session sessions.Session) (int, bool) {
	switch v := session.Get(UserIDKey).(type) {
	case int:
		return v, v > 0
	case int64:
		return int(v), v > 0
	case float64:
		return int(v), v > 0
	default:
		return 0, false
	}
}

func clearSession(session sessions.Session) {
	session.Clear()
	_ = session.Save()
}

// RequireAuth rejects requests without a session. The account is reloaded on every request so
// bans and role changes apply immediately; a banned account gets 403 and its session is dropped.
func RequireAuth(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := sessionUserID(session)
		if !ok {
			HandleAppError(c, contextutils.ErrUnauthorized)
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), userID)
		if errors.Is(err, contextutils.ErrUserNotFound) {
			clearSession(session)
			HandleAppError(c, contextutils.ErrUnauthorized)
			return
		}
		if err != nil {
			HandleAppError(c, err)
			return
		}
		if user.IsBanned {
			clearSession(session)
			HandleAppError(c, contextutils.ErrAccountBanned)
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(UsernameKey, user.Username)
		c.Set(UserRoleKey, string(user.Role))
		c.Request = c.Request.WithContext(contextutils.WithUserID(c.Request.Context(), user.ID))

		c.Next()
	}
}

// RequireAdmin must follow RequireAuth
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			HandleAppError(c, contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityWarn,
				"Admin access required", ""))
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id, or 0
func CurrentUserID(c *gin.Context) int {
	return c.GetInt(UserIDKey)
}

// IsAdmin reports whether the authenticated user has the admin role
func IsAdmin(c *gin.Context) bool {
	return c.GetString(UserRoleKey) == string(models.RoleAdmin)
}
