package contextutils

import (
	"strings"
)

// MaskEmail masks the local part of an email address for logging.
// "alice@example.com" becomes "a***e@example.com".
func MaskEmail(email string) string {
	if email == "" {
		return "[EMPTY]"
	}

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return strings.Repeat("*", len(email))
	}

	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + domain
	}

	return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + domain
}
