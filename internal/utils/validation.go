package contextutils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

// IsValidEmail checks if an email address is valid using go-playground/validator
func IsValidEmail(email string) bool {
	return validate.Var(email, "email") == nil
}

// IsValidUsername reports whether username is 3-30 letters, digits or underscores
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// IsValidURL checks an optional URL field; empty is accepted
func IsValidURL(raw string) bool {
	if raw == "" {
		return true
	}
	return validate.Var(raw, "url") == nil
}
