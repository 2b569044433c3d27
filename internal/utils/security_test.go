package contextutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{
			name:     "empty email",
			email:    "",
			expected: "[EMPTY]",
		},
		{
			name:     "regular email",
			email:    "alice@example.com",
			expected: "a***e@example.com",
		},
		{
			name:     "two character local part",
			email:    "ab@example.com",
			expected: "**@example.com",
		},
		{
			name:     "missing at sign",
			email:    "nobody",
			expected: "******",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskEmail(tt.email))
		})
	}
}
