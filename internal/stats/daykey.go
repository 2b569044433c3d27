// Package stats holds the pure computations behind answer submission, rollups and
// leaderboards: calendar day keys, accuracy, the streak transition and ranking.
// Nothing in this package touches the database or the clock.
package stats

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const dayKeyLayout = "2006-01-02"

// DayKey is a calendar date on the UTC day boundary, stored as days since 1970-01-01.
// Keys compare and subtract like integers.
type DayKey int32

// NewDayKey returns the key for the given date. Out of range values normalize
// the way time.Date does.
func NewDayKey(year int, month time.Month, day int) DayKey {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DayOf returns the UTC calendar day containing t.
func DayOf(t time.Time) DayKey {
	u := t.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return DayKey(midnight.Unix() / 86400)
}

// ParseDayKey parses YYYY-MM-DD.
func ParseDayKey(s string) (DayKey, error) {
	t, err := time.Parse(dayKeyLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid day key %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Time returns midnight UTC of the day.
func (d DayKey) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

func (d DayKey) String() string {
	return d.Time().Format(dayKeyLayout)
}

// AddDays shifts the key by n calendar days.
func (d DayKey) AddDays(n int) DayKey {
	return d + DayKey(n)
}

// AddMonths shifts the key by n calendar months, clamping to the last day of the
// target month (Mar 31 - 1 month = Feb 28/29).
func (d DayKey) AddMonths(n int) DayKey {
	t := d.Time()
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return NewDayKey(firstOfTarget.Year(), firstOfTarget.Month(), day)
}

// Weekday returns the day of the week.
func (d DayKey) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// Before reports whether d is strictly earlier than other.
func (d DayKey) Before(other DayKey) bool { return d < other }

// After reports whether d is strictly later than other.
func (d DayKey) After(other DayKey) bool { return d > other }

// DaysUntil returns the number of days from d to other (negative if other is earlier).
func (d DayKey) DaysUntil(other DayKey) int { return int(other - d) }

// MarshalJSON encodes the key as "YYYY-MM-DD".
func (d DayKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes "YYYY-MM-DD".
func (d *DayKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDayKey(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value binds the key to a DATE column.
func (d DayKey) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan reads a DATE column. lib/pq returns DATE as time.Time; text is accepted too.
func (d *DayKey) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		// DATE values come back at midnight in the session zone; keep the calendar fields.
		*d = NewDayKey(v.Year(), v.Month(), v.Day())
		return nil
	case string:
		parsed, err := ParseDayKey(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		parsed, err := ParseDayKey(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into DayKey", src)
	}
}
