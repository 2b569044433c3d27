package stats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOf_UsesUTCBoundary(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	// 02:00 IST on the 16th is still the 15th in UTC
	local := time.Date(2026, 10, 16, 2, 0, 0, 0, ist)
	assert.Equal(t, "2026-10-15", DayOf(local).String())

	assert.Equal(t, "2026-10-16", DayOf(time.Date(2026, 10, 16, 23, 59, 59, 0, time.UTC)).String())
}

func TestParseDayKey(t *testing.T) {
	d, err := ParseDayKey("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, NewDayKey(2024, time.February, 29), d)
	assert.Equal(t, "2024-02-29", d.String())

	_, err = ParseDayKey("2024-13-01")
	assert.Error(t, err)
	_, err = ParseDayKey("yesterday")
	assert.Error(t, err)
}

func TestDayKey_Arithmetic(t *testing.T) {
	d := NewDayKey(2026, time.December, 31)

	assert.Equal(t, "2027-01-01", d.AddDays(1).String())
	assert.Equal(t, "2026-12-30", d.AddDays(-1).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-1)))
	assert.Equal(t, 365, NewDayKey(2026, time.January, 1).DaysUntil(NewDayKey(2027, time.January, 1)))
	assert.Equal(t, time.Thursday, d.Weekday())
}

func TestDayKey_AddMonthsClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		from     string
		months   int
		expected string
	}{
		{"2026-03-31", -1, "2026-02-28"},
		{"2024-03-31", -1, "2024-02-29"},
		{"2026-10-16", -12, "2025-10-16"},
		{"2026-01-15", -1, "2025-12-15"},
		{"2026-08-31", 1, "2026-09-30"},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			d, err := ParseDayKey(tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.AddMonths(tt.months).String())
		})
	}
}

func TestDayKey_JSON(t *testing.T) {
	d := NewDayKey(2026, time.October, 16)

	data, err := json.Marshal(map[string]DayKey{"date": d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2026-10-16"}`, string(data))

	var decoded struct {
		Date DayKey `json:"date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-10-16"}`), &decoded))
	assert.Equal(t, d, decoded.Date)

	assert.Error(t, json.Unmarshal([]byte(`{"date":"16/10/2026"}`), &decoded))
}

func TestDayKey_SQL(t *testing.T) {
	d := NewDayKey(2026, time.October, 16)

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", v)

	var scanned DayKey
	require.NoError(t, scanned.Scan(time.Date(2026, 10, 16, 0, 0, 0, 0, time.FixedZone("X", -7*3600))))
	assert.Equal(t, d, scanned)

	require.NoError(t, scanned.Scan([]byte("2026-01-02")))
	assert.Equal(t, "2026-01-02", scanned.String())

	require.NoError(t, scanned.Scan("2026-03-04"))
	assert.Equal(t, "2026-03-04", scanned.String())

	assert.Error(t, scanned.Scan(42))
}
