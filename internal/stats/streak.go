package stats

// Streak is the consecutive-day activity state kept on a user.
type Streak struct {
	Current int
	Longest int
}

// NextStreak applies one submission made on today to s, given the day the user
// was last active before this submission (nil if never).
//
//   - already active today: unchanged
//   - active yesterday: current+1, longest follows if exceeded
//   - anything else: current resets to 1
func NextStreak(s Streak, lastActive *DayKey, today DayKey) Streak {
	switch {
	case lastActive != nil && *lastActive == today:
		return s
	case lastActive != nil && *lastActive == today.AddDays(-1):
		s.Current++
	default:
		s.Current = 1
	}

	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	return s
}
