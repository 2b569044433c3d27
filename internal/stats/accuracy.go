package stats

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Accuracy returns correct/attempted as a whole percentage, rounded half up.
// It is 0 when nothing was attempted and always within [0, 100].
func Accuracy(correct, attempted int) int {
	if attempted <= 0 {
		return 0
	}
	if correct < 0 {
		correct = 0
	}
	if correct > attempted {
		correct = attempted
	}

	// Exact decimal division: 29/200 must round to 15, which float64 gets wrong.
	pct := decimal.NewFromInt(int64(correct)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(attempted))).
		Round(0)
	return int(pct.IntPart())
}

// MinutesFromSeconds converts a duration in seconds to whole minutes, rounding half up.
func MinutesFromSeconds(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return (seconds + 30) / 60
}
