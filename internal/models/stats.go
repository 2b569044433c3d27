package models

import "prepx/internal/stats"

// BreakdownRow is a per-subject or per-(subject, topic) tally
type BreakdownRow struct {
	Subject   string `json:"subject"`
	Topic     string `json:"topic,omitempty"`
	Attempted int    `json:"attempted"`
	Correct   int    `json:"correct"`
	Accuracy  int    `json:"accuracy"`
}

// NewBreakdownRows converts engine group tallies into response rows, preserving order
func NewBreakdownRows(groups []stats.GroupTally) []BreakdownRow {
	rows := make([]BreakdownRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, BreakdownRow{
			Subject:   g.Subject,
			Topic:     g.Topic,
			Attempted: g.Attempted,
			Correct:   g.Correct,
			Accuracy:  g.Accuracy(),
		})
	}
	return rows
}

// DailyRow is one calendar day of a rollup
type DailyRow struct {
	Date      stats.DayKey `json:"date"`
	Day       string       `json:"day"`
	Attempted int          `json:"attempted"`
	Correct   int          `json:"correct"`
	Accuracy  int          `json:"accuracy"`
}

// NewDailyRow converts a day tally into a response row
func NewDailyRow(d stats.DayTally) DailyRow {
	return DailyRow{
		Date:      d.Day,
		Day:       d.Day.Weekday().String()[:3],
		Attempted: d.Attempted,
		Correct:   d.Correct,
		Accuracy:  d.Accuracy(),
	}
}

// TodayStats is the response of GET /api/stats/today
type TodayStats struct {
	Date             stats.DayKey   `json:"date"`
	Attempted        int            `json:"attempted"`
	Correct          int            `json:"correct"`
	Accuracy         int            `json:"accuracy"`
	TimeSpent        int            `json:"timeSpent"`
	SubjectBreakdown []BreakdownRow `json:"subjectBreakdown"`
}

// WeekStats is the response of GET /api/stats/week
type WeekStats struct {
	WeekStart        stats.DayKey   `json:"weekStart"`
	WeekEnd          stats.DayKey   `json:"weekEnd"`
	TotalAttempted   int            `json:"totalAttempted"`
	TotalCorrect     int            `json:"totalCorrect"`
	OverallAccuracy  int            `json:"overallAccuracy"`
	DailyBreakdown   []DailyRow     `json:"dailyBreakdown"`
	SubjectBreakdown []BreakdownRow `json:"subjectBreakdown"`
	TopicBreakdown   []BreakdownRow `json:"topicBreakdown"`
	WeakestTopics    []BreakdownRow `json:"weakestTopics"`
}

// MonthStats is the response of GET /api/stats/month
type MonthStats struct {
	Month                string         `json:"month"`
	TotalAttempted       int            `json:"totalAttempted"`
	TotalCorrect         int            `json:"totalCorrect"`
	OverallAccuracy      int            `json:"overallAccuracy"`
	BestDay              *DailyRow      `json:"bestDay"`
	MostPracticedSubject *BreakdownRow  `json:"mostPracticedSubject"`
	SubjectBreakdown     []BreakdownRow `json:"subjectBreakdown"`
	Rank                 *int           `json:"rank"`
}

// ActivityDay is one cell of the activity heatmap
type ActivityDay struct {
	Date  stats.DayKey `json:"date"`
	Count int          `json:"count"`
	Level int          `json:"level"`
}

// ActivityGraph is the response of GET /api/stats/activity-graph
type ActivityGraph struct {
	Activities    []ActivityDay `json:"activities"`
	TotalDays     int           `json:"totalDays"`
	ActiveDays    int           `json:"activeDays"`
	TotalAttempts int           `json:"totalAttempts"`
	StartDate     stats.DayKey  `json:"startDate"`
	EndDate       stats.DayKey  `json:"endDate"`
}

// OverallStats is the response of GET /api/stats/overall
type OverallStats struct {
	TotalAttempted   int            `json:"totalAttempted"`
	TotalCorrect     int            `json:"totalCorrect"`
	Accuracy         int            `json:"accuracy"`
	CurrentStreak    int            `json:"currentStreak"`
	LongestStreak    int            `json:"longestStreak"`
	LastActiveDate   *stats.DayKey  `json:"lastActiveDate"`
	SubjectBreakdown []BreakdownRow `json:"subjectBreakdown"`
}
