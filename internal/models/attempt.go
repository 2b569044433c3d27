package models

import (
	"time"

	"prepx/internal/stats"
)

// Attempt is one recorded answer. Attempts are never updated; they are only removed by
// an admin clearing a user's history.
type Attempt struct {
	ID                  int          `json:"id"`
	UserID              int          `json:"userId"`
	QuestionID          int          `json:"questionId"`
	SelectedOptionIndex int          `json:"selectedOptionIndex"`
	IsCorrect           bool         `json:"isCorrect"`
	TimeTaken           int          `json:"timeTaken"`
	AttemptDate         stats.DayKey `json:"attemptDate"`
	AttemptedAt         time.Time    `json:"attemptedAt"`
}

// AttemptHistoryItem is an attempt joined with the question it answered
type AttemptHistoryItem struct {
	Attempt
	Subject      string `json:"subject"`
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	QuestionText string `json:"questionText"`
}

// SubmitAttemptRequest is the body of POST /api/questions/{id}/attempt.
// Pointers distinguish a missing field from zero.
type SubmitAttemptRequest struct {
	SelectedOptionIndex *int `json:"selectedOptionIndex"`
	TimeTaken           *int `json:"timeTaken"`
}

// AttemptUserStats are the submitter's counters after the attempt was recorded
type AttemptUserStats struct {
	TotalAttempted int `json:"totalAttempted"`
	TotalCorrect   int `json:"totalCorrect"`
	CurrentStreak  int `json:"currentStreak"`
	LongestStreak  int `json:"longestStreak"`
	Accuracy       int `json:"accuracy"`
	TodayAttempted int `json:"todayAttempted"`
}

// AttemptResult is returned from a submission
type AttemptResult struct {
	IsCorrect          bool             `json:"isCorrect"`
	CorrectOptionIndex int              `json:"correctOptionIndex"`
	Explanation        string           `json:"explanation"`
	UserStats          AttemptUserStats `json:"userStats"`
}
