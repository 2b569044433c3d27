package models

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"prepx/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		user     User
		expected string
	}{
		{
			name: "complete user with all fields",
			user: User{
				ID:                      1,
				Username:                "alice",
				Email:                   "alice@example.com",
				PasswordHash:            "$2a$10$secret",
				FullName:                sql.NullString{String: "Alice A", Valid: true},
				Bio:                     sql.NullString{String: "hi", Valid: true},
				AvatarURL:               sql.NullString{String: "https://img/a.png", Valid: true},
				Role:                    RoleUser,
				TotalQuestionsAttempted: 200,
				TotalCorrectAnswers:     29,
				CurrentStreak:           3,
				LongestStreak:           5,
				LastActiveDate:          sql.NullTime{Time: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Valid: true},
				CreatedAt:               time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				UpdatedAt:               time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			},
			expected: `{"id":1,"username":"alice","email":"alice@example.com","fullName":"Alice A","bio":"hi","avatarUrl":"https://img/a.png","role":"user","isBanned":false,"totalQuestionsAttempted":200,"totalCorrectAnswers":29,"accuracy":15,"currentStreak":3,"longestStreak":5,"lastActiveDate":"2024-03-01T12:00:00Z","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-02T00:00:00Z"}`,
		},
		{
			name: "user with null fields",
			user: User{
				ID:        2,
				Username:  "bob",
				Email:     "bob@example.com",
				Role:      RoleAdmin,
				IsBanned:  true,
				BanReason: sql.NullString{String: "spam", Valid: true},
				CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			expected: `{"id":2,"username":"bob","email":"bob@example.com","fullName":null,"bio":null,"avatarUrl":null,"role":"admin","isBanned":true,"banReason":"spam","totalQuestionsAttempted":0,"totalCorrectAnswers":0,"accuracy":0,"currentStreak":0,"longestStreak":0,"lastActiveDate":null,"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := json.Marshal(tt.user)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(result))
			assert.NotContains(t, string(result), "secret")
		})
	}
}

func TestUser_Helpers(t *testing.T) {
	u := User{
		ID:             7,
		Username:       "carol",
		Role:           RoleAdmin,
		CurrentStreak:  2,
		LongestStreak:  4,
		LastActiveDate: sql.NullTime{Time: time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC), Valid: true},
	}

	assert.True(t, u.IsAdmin())
	assert.Equal(t, stats.Streak{Current: 2, Longest: 4}, u.Streak())
	require.NotNil(t, u.LastActiveDay())
	assert.Equal(t, "2024-05-10", u.LastActiveDay().String())

	u.LastActiveDate = sql.NullTime{}
	assert.Nil(t, u.LastActiveDay())

	summary := u.Summary()
	assert.Equal(t, 7, summary.ID)
	assert.Nil(t, summary.FullName)
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleUser.IsValid())
	assert.True(t, RoleAdmin.IsValid())
	assert.False(t, Role("moderator").IsValid())
}

func TestNewPublicProfile_OmitsPrivateFields(t *testing.T) {
	u := User{
		ID:                      3,
		Username:                "dave",
		Email:                   "dave@example.com",
		IsBanned:                true,
		TotalQuestionsAttempted: 3,
		TotalCorrectAnswers:     2,
	}
	profile := NewPublicProfile(u)
	assert.Equal(t, 67, profile.Accuracy)

	data, err := json.Marshal(profile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dave@example.com")
	assert.NotContains(t, string(data), "isBanned")
}

func TestQuestion_PublicViewHidesAnswer(t *testing.T) {
	q := Question{
		ID:                 10,
		Subject:            "DBMS",
		Topic:              "Indexing",
		Difficulty:         "easy",
		QuestionText:       "Which index?",
		Options:            []string{"a", "b", "c", "d"},
		CorrectOptionIndex: 2,
		Explanation:        sql.NullString{String: "because", Valid: true},
		IsActive:           true,
		TotalAttempts:      8,
		CorrectAttempts:    3,
	}

	view := q.PublicView()
	assert.Equal(t, 38, view.Accuracy)

	data, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "correctOptionIndex")
	assert.NotContains(t, string(data), "because")
	assert.NotContains(t, string(data), "isBookmarked")

	full, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(full), `"correctOptionIndex":2`)
	assert.Contains(t, string(full), `"explanation":"because"`)
	assert.Contains(t, string(full), `"createdBy":null`)
}

func TestPost_MarshalJSON(t *testing.T) {
	p := Post{ID: 1, UserID: 2, Content: "hello", Author: &UserSummary{ID: 2, Username: "eve"}}
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"imageUrl":null`)
	assert.Contains(t, string(data), `"author":{"id":2,"username":"eve","fullName":null,"avatarUrl":null}`)
}

func TestNewBreakdownRows(t *testing.T) {
	rows := NewBreakdownRows([]stats.GroupTally{
		{Subject: "DBMS", Tally: stats.Tally{Attempted: 3, Correct: 1}},
		{Subject: "OS", Topic: "Paging", Tally: stats.Tally{Attempted: 0}},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, BreakdownRow{Subject: "DBMS", Attempted: 3, Correct: 1, Accuracy: 33}, rows[0])
	assert.Equal(t, "Paging", rows[1].Topic)
	assert.Equal(t, 0, rows[1].Accuracy)

	data, err := json.Marshal(rows[0])
	require.NoError(t, err)
	assert.NotContains(t, string(data), "topic")
}

func TestNewDailyRow(t *testing.T) {
	row := NewDailyRow(stats.DayTally{
		Day:   stats.NewDayKey(2024, time.January, 1),
		Tally: stats.Tally{Attempted: 4, Correct: 3},
	})
	assert.Equal(t, "Mon", row.Day)
	assert.Equal(t, 75, row.Accuracy)
}

func TestPagination(t *testing.T) {
	p := NewPagination(3, 20, 41)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 40, p.Offset())

	assert.Equal(t, 0, NewPagination(1, 20, 0).TotalPages)
	assert.Equal(t, 0, NewPagination(0, 20, 5).Offset())

	page := NewPage[int](nil, 1, 10, 0)
	data, err := json.Marshal(page)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"pagination":{"page":1,"limit":10,"total":0,"totalPages":0}}`, string(data))
}
