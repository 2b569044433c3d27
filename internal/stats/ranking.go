package stats

import "sort"

// Standing is one user's position in a ranking.
type Standing struct {
	UserID    int
	Attempted int
	Correct   int
	Accuracy  int
	Rank      int
}

// NewStanding computes accuracy from the counters.
func NewStanding(userID, attempted, correct int) Standing {
	return Standing{
		UserID:    userID,
		Attempted: attempted,
		Correct:   correct,
		Accuracy:  Accuracy(correct, attempted),
	}
}

// Ahead reports whether a ranks above b: higher accuracy, then more attempts,
// then the lower user id.
func Ahead(a, b Standing) bool {
	if a.Accuracy != b.Accuracy {
		return a.Accuracy > b.Accuracy
	}
	if a.Attempted != b.Attempted {
		return a.Attempted > b.Attempted
	}
	return a.UserID < b.UserID
}

// StrictlyAhead is Ahead without the user id tie-break. It is used to compute a
// user's own rank as (number strictly ahead) + 1.
func StrictlyAhead(a, b Standing) bool {
	if a.Accuracy != b.Accuracy {
		return a.Accuracy > b.Accuracy
	}
	return a.Attempted > b.Attempted
}

// Rank orders standings in place and assigns 1-based ranks by position.
// Equal scores still receive distinct consecutive ranks.
func Rank(standings []Standing) []Standing {
	sort.SliceStable(standings, func(i, j int) bool {
		return Ahead(standings[i], standings[j])
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// FindRank returns the rank of userID in ranked standings, or nil if absent.
func FindRank(ranked []Standing, userID int) *int {
	for i := range ranked {
		if ranked[i].UserID == userID {
			rank := ranked[i].Rank
			return &rank
		}
	}
	return nil
}

// QualifiedOnly drops standings with fewer than minAttempts attempts.
func QualifiedOnly(standings []Standing, minAttempts int) []Standing {
	kept := make([]Standing, 0, len(standings))
	for _, s := range standings {
		if s.Attempted >= minAttempts {
			kept = append(kept, s)
		}
	}
	return kept
}
