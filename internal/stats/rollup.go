package stats

import "sort"

// Tally is an attempted/correct pair.
type Tally struct {
	Attempted int `json:"attempted"`
	Correct   int `json:"correct"`
}

// Accuracy of the tally.
func (t Tally) Accuracy() int {
	return Accuracy(t.Correct, t.Attempted)
}

// Add returns the sum of two tallies.
func (t Tally) Add(other Tally) Tally {
	return Tally{Attempted: t.Attempted + other.Attempted, Correct: t.Correct + other.Correct}
}

// DayTally is a tally for one calendar day.
type DayTally struct {
	Day DayKey
	Tally
}

// GroupTally is a tally for a subject, or a (subject, topic) pair when Topic is set.
type GroupTally struct {
	Subject string
	Topic   string
	Tally
}

// Total sums a set of group tallies.
func Total(groups []GroupTally) Tally {
	var total Tally
	for _, g := range groups {
		total = total.Add(g.Tally)
	}
	return total
}

// DenseDays fills the inclusive range with one entry per day, taking values from
// sparse and zero elsewhere. Entries of sparse outside the range are ignored.
func DenseDays(r Range, sparse []DayTally) []DayTally {
	byDay := make(map[DayKey]Tally, len(sparse))
	for _, d := range sparse {
		if r.Contains(d.Day) {
			byDay[d.Day] = byDay[d.Day].Add(d.Tally)
		}
	}

	dense := make([]DayTally, 0, r.Days())
	for day := r.Start; day <= r.End; day++ {
		dense = append(dense, DayTally{Day: day, Tally: byDay[day]})
	}
	return dense
}

// ActivityLevel buckets a daily attempt count for the activity heatmap.
func ActivityLevel(count int) int {
	switch {
	case count <= 0:
		return 0
	case count <= 10:
		return 1
	case count <= 30:
		return 2
	case count <= 50:
		return 3
	default:
		return 4
	}
}

// WeakestTopics returns up to n groups with at least one attempt, lowest accuracy
// first. Groups are ordered by (subject, topic) before ranking, so equal accuracies
// keep that order.
func WeakestTopics(groups []GroupTally, n int) []GroupTally {
	candidates := make([]GroupTally, 0, len(groups))
	for _, g := range groups {
		if g.Attempted > 0 {
			candidates = append(candidates, g)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Subject != candidates[j].Subject {
			return candidates[i].Subject < candidates[j].Subject
		}
		return candidates[i].Topic < candidates[j].Topic
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Accuracy() < candidates[j].Accuracy()
	})

	if n >= 0 && len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// BestDay returns the day with the most attempts, the earliest on ties, or nil
// when no day has any attempts.
func BestDay(days []DayTally) *DayTally {
	var best *DayTally
	for i := range days {
		d := days[i]
		if d.Attempted <= 0 {
			continue
		}
		if best == nil || d.Attempted > best.Attempted || (d.Attempted == best.Attempted && d.Day < best.Day) {
			best = &d
		}
	}
	return best
}

// MostPracticed returns the group with the most attempts, the first in input
// order on ties, or nil when nothing was attempted.
func MostPracticed(groups []GroupTally) *GroupTally {
	var best *GroupTally
	for i := range groups {
		g := groups[i]
		if g.Attempted <= 0 {
			continue
		}
		if best == nil || g.Attempted > best.Attempted {
			best = &g
		}
	}
	return best
}
