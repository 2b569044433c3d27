package models

import "prepx/internal/stats"

// LeaderboardEntry is one ranked user
type LeaderboardEntry struct {
	Rank          int         `json:"rank"`
	User          UserSummary `json:"user"`
	Attempted     int         `json:"attempted"`
	Correct       int         `json:"correct"`
	Accuracy      int         `json:"accuracy"`
	CurrentStreak int         `json:"currentStreak"`
}

// Leaderboard is a ranked page. WeekStart/WeekEnd are set for weekly and subject boards.
type Leaderboard struct {
	Entries     []LeaderboardEntry `json:"leaderboard"`
	MyRank      *int               `json:"myRank"`
	TotalUsers  int                `json:"totalUsers"`
	Subject     string             `json:"subject,omitempty"`
	MinAttempts int                `json:"minAttempts,omitempty"`
	WeekStart   *stats.DayKey      `json:"weekStart,omitempty"`
	WeekEnd     *stats.DayKey      `json:"weekEnd,omitempty"`
	Pagination  *Pagination        `json:"pagination,omitempty"`
}

// LeaderboardSummary is the response of GET /api/leaderboard/summary
type LeaderboardSummary struct {
	GlobalRank              int                `json:"globalRank"`
	TotalUsers              int                `json:"totalUsers"`
	WeeklyRank              *int               `json:"weeklyRank"`
	WeeklyParticipants      int                `json:"weeklyParticipants"`
	OverallAccuracy         int                `json:"overallAccuracy"`
	TotalQuestionsAttempted int                `json:"totalQuestionsAttempted"`
	CurrentStreak           int                `json:"currentStreak"`
	LongestStreak           int                `json:"longestStreak"`
	TopGlobal               []LeaderboardEntry `json:"topGlobal"`
}
