package services

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"prepx/internal/config"
	"prepx/internal/observability"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// fixedNow is Wednesday 2024-03-13 10:30 UTC
var fixedNow = time.Date(2024, time.March, 13, 10, 30, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		Quiz: config.QuizConfig{
			Subjects:        append([]string(nil), config.DefaultSubjects...),
			DefaultPageSize: config.DefaultPageSize,
			MaxPageSize:     config.MaxPageSize,
		},
		Leaderboard: config.LeaderboardConfig{SubjectMinAttempts: 5, TopSummarySize: 3},
		Email:       config.EmailConfig{StreakReminder: config.StreakReminderConfig{MinStreak: 1}},
	}
}

func testLogger() *observability.Logger {
	return observability.NewNopLogger()
}

var userColumns = []string{
	"id", "username", "email", "password_hash", "full_name", "bio", "avatar_url", "role", "is_banned", "ban_reason",
	"total_questions_attempted", "total_correct_answers", "current_streak", "longest_streak", "last_active_date",
	"created_at", "updated_at",
}

// userRow builds a userSelectFields row; override lets a test tweak single columns by name
func userRow(id int, username string, override map[string]interface{}) []driver.Value {
	values := map[string]interface{}{
		"id":                        int64(id),
		"username":                  username,
		"email":                     username + "@example.com",
		"password_hash":             "",
		"full_name":                 nil,
		"bio":                       nil,
		"avatar_url":                nil,
		"role":                      "user",
		"is_banned":                 false,
		"ban_reason":                nil,
		"total_questions_attempted": int64(0),
		"total_correct_answers":     int64(0),
		"current_streak":            int64(0),
		"longest_streak":            int64(0),
		"last_active_date":          nil,
		"created_at":                fixedNow.Add(-30 * 24 * time.Hour),
		"updated_at":                fixedNow.Add(-30 * 24 * time.Hour),
	}
	for k, v := range override {
		values[k] = v
	}
	row := make([]driver.Value, len(userColumns))
	for i, c := range userColumns {
		row[i] = values[c]
	}
	return row
}

func intPtr(i int) *int { return &i }

func toDriverValues(values []interface{}) []driver.Value {
	out := make([]driver.Value, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
