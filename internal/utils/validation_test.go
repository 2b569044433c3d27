package contextutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	// Test valid emails
	assert.True(t, IsValidEmail("user@example.com"))
	assert.True(t, IsValidEmail("user.name@example.com"))
	assert.True(t, IsValidEmail("user+tag@example.com"))
	assert.True(t, IsValidEmail("user@example.co.uk"))
	assert.True(t, IsValidEmail("user@subdomain.example.com"))

	// Test invalid emails
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("invalid-email"))
	assert.False(t, IsValidEmail("@example.com"))
	assert.False(t, IsValidEmail("user@"))
	assert.False(t, IsValidEmail("user@.com"))
	assert.False(t, IsValidEmail("user@example"))
	assert.False(t, IsValidEmail("user@example."))
	assert.False(t, IsValidEmail("user name@example.com"))

	assert.False(t, IsValidEmail("user@example..com"))
}

func TestIsValidUsername(t *testing.T) {
	assert.True(t, IsValidUsername("alice"))
	assert.True(t, IsValidUsername("bob_99"))
	assert.True(t, IsValidUsername("abc"))

	assert.False(t, IsValidUsername("ab"))
	assert.False(t, IsValidUsername("has space"))
	assert.False(t, IsValidUsername("dash-name"))
	assert.False(t, IsValidUsername("abcdefghijklmnopqrstuvwxyz12345"))
}

func TestIsValidURL(t *testing.T) {
	assert.True(t, IsValidURL(""))
	assert.True(t, IsValidURL("https://cdn.example.com/a.png"))
	assert.False(t, IsValidURL("not a url"))
}
