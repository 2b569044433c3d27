package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name      string
		correct   int
		attempted int
		expected  int
	}{
		{"nothing attempted", 0, 0, 0},
		{"negative attempted", 3, -1, 0},
		{"all correct", 10, 10, 100},
		{"none correct", 0, 10, 0},
		{"one third rounds down", 1, 3, 33},
		{"two thirds rounds up", 2, 3, 67},
		{"exact half rounds up", 29, 200, 15},
		{"another half", 1, 8, 13},
		{"correct above attempted clamps", 12, 10, 100},
		{"negative correct clamps", -2, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Accuracy(tt.correct, tt.attempted))
		})
	}
}

func TestAccuracy_Bounds(t *testing.T) {
	for attempted := 0; attempted <= 60; attempted++ {
		for correct := 0; correct <= attempted; correct++ {
			acc := Accuracy(correct, attempted)
			assert.GreaterOrEqual(t, acc, 0)
			assert.LessOrEqual(t, acc, 100)
			if attempted > 0 {
				// round half up of 100*c/a using integers
				assert.Equal(t, (200*correct+attempted)/(2*attempted), acc, "correct=%d attempted=%d", correct, attempted)
			}
		}
	}
}

func TestMinutesFromSeconds(t *testing.T) {
	assert.Equal(t, 0, MinutesFromSeconds(0))
	assert.Equal(t, 0, MinutesFromSeconds(29))
	assert.Equal(t, 1, MinutesFromSeconds(30))
	assert.Equal(t, 1, MinutesFromSeconds(89))
	assert.Equal(t, 2, MinutesFromSeconds(90))
	assert.Equal(t, 0, MinutesFromSeconds(-5))
}
