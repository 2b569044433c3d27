package handlers

import (
	"prepx/internal/middleware"
	"prepx/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// GetUserIDFromSession retrieves the current user ID from the session.
// Returns (0, false) if not authenticated or if the stored value is invalid.
func GetUserIDFromSession(c *gin.Context) (int, bool) {
	session := sessions.Default(c)
	id, ok := session.Get(middleware.UserIDKey).(int)
	if !ok || id < 1 {
		return 0, false
	}
	return id, true
}

// startSession records user as logged in on this client
func startSession(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Set(middleware.UserIDKey, user.ID)
	session.Set(middleware.UsernameKey, user.Username)
	return session.Save()
}

func endSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}
