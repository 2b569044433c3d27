package stats

import (
	"fmt"
	"time"
)

// Range is an inclusive span of calendar days.
type Range struct {
	Start DayKey `json:"start"`
	End   DayKey `json:"end"`
}

// Days returns the number of days in the range.
func (r Range) Days() int {
	if r.End < r.Start {
		return 0
	}
	return int(r.End-r.Start) + 1
}

// Contains reports whether d falls inside the range.
func (r Range) Contains(d DayKey) bool {
	return d >= r.Start && d <= r.End
}

// WeekOf returns the Monday..Sunday week containing day.
func WeekOf(day DayKey) Range {
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDays(-offset)
	return Range{Start: start, End: start.AddDays(6)}
}

// MonthOf returns the first..last day of the given calendar month.
func MonthOf(year int, month time.Month) Range {
	start := NewDayKey(year, month, 1)
	end := NewDayKey(year, month+1, 1).AddDays(-1)
	return Range{Start: start, End: end}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q, expected YYYY-MM: %w", s, err)
	}
	return t.Year(), t.Month(), nil
}

// ActivityRange returns the window covering the last months calendar months
// ending today: [today - months + 1 day, today].
func ActivityRange(today DayKey, months int) Range {
	return Range{Start: today.AddMonths(-months).AddDays(1), End: today}
}
