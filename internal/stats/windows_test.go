package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekOf_MondayToSunday(t *testing.T) {
	// 2026-10-16 is a Friday
	week := WeekOf(NewDayKey(2026, time.October, 16))
	assert.Equal(t, "2026-10-12", week.Start.String())
	assert.Equal(t, "2026-10-18", week.End.String())
	assert.Equal(t, time.Monday, week.Start.Weekday())
	assert.Equal(t, 7, week.Days())

	// Monday and Sunday map to their own week
	assert.Equal(t, week, WeekOf(week.Start))
	assert.Equal(t, week, WeekOf(week.End))

	// Week spanning a month and year boundary
	newYear := WeekOf(NewDayKey(2027, time.January, 1))
	assert.Equal(t, "2026-12-28", newYear.Start.String())
	assert.Equal(t, "2027-01-03", newYear.End.String())
}

func TestMonthOf(t *testing.T) {
	feb := MonthOf(2024, time.February)
	assert.Equal(t, "2024-02-01", feb.Start.String())
	assert.Equal(t, "2024-02-29", feb.End.String())
	assert.Equal(t, 29, feb.Days())

	dec := MonthOf(2026, time.December)
	assert.Equal(t, "2026-12-31", dec.End.String())
	assert.True(t, dec.Contains(NewDayKey(2026, time.December, 15)))
	assert.False(t, dec.Contains(NewDayKey(2027, time.January, 1)))
}

func TestParseMonth(t *testing.T) {
	year, month, err := ParseMonth("2026-02")
	require.NoError(t, err)
	assert.Equal(t, 2026, year)
	assert.Equal(t, time.February, month)

	for _, bad := range []string{"2026-13", "2026/02", "Feb 2026", ""} {
		_, _, err := ParseMonth(bad)
		assert.Error(t, err, bad)
	}
}

func TestActivityRange(t *testing.T) {
	today := NewDayKey(2026, time.October, 16)

	year := ActivityRange(today, 12)
	assert.Equal(t, "2025-10-17", year.Start.String())
	assert.Equal(t, today, year.End)
	assert.Equal(t, 365, year.Days())

	one := ActivityRange(today, 1)
	assert.Equal(t, "2026-09-17", one.Start.String())
	assert.Equal(t, 30, one.Days())
}
