package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"prepx/internal/config"
	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/stats"
	contextutils "prepx/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// StatsServiceInterface defines the per-user rollups
type StatsServiceInterface interface {
	GetTodayStats(ctx context.Context, userID int) (*models.TodayStats, error)
	GetWeekStats(ctx context.Context, userID int) (*models.WeekStats, error)
	GetMonthStats(ctx context.Context, userID int, month string) (*models.MonthStats, error)
	GetActivityGraph(ctx context.Context, userID, months int) (*models.ActivityGraph, error)
	GetOverallStats(ctx context.Context, userID int) (*models.OverallStats, error)
}

// StatsService aggregates a user's attempt log over UTC calendar windows. Reads only.
type StatsService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
	now    func() time.Time
}

var _ StatsServiceInterface = (*StatsService)(nil)

// weakestTopicCount is how many low-accuracy topics the week view lists
const weakestTopicCount = 5

// NewStatsServiceWithLogger creates a new StatsService instance with logger
func NewStatsServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *StatsService {
	return &StatsService{db: db, cfg: cfg, logger: logger, now: time.Now}
}

func (s *StatsService) today() stats.DayKey {
	return stats.DayOf(s.now().UTC())
}

// groupTallies sums the user's attempts per subject (or per subject and topic) ordered by
// subject then topic. A nil window means all time. The second result is total seconds spent.
func (s *StatsService) groupTallies(ctx context.Context, userID int, window *stats.Range, byTopic bool) ([]stats.GroupTally, int, error) {
	groupCols := "q.subject"
	if byTopic {
		groupCols = "q.subject, q.topic"
	}
	topicCol := "''"
	if byTopic {
		topicCol = "q.topic"
	}

	args := []interface{}{userID}
	where := "a.user_id = $1"
	if window != nil {
		args = append(args, window.Start, window.End)
		where += " AND a.attempt_date BETWEEN $2 AND $3"
	}

	query := fmt.Sprintf(`SELECT q.subject, %s, COUNT(*), COUNT(*) FILTER (WHERE a.is_correct), COALESCE(SUM(a.time_taken), 0)
		FROM attempts a JOIN questions q ON q.id = a.question_id
		WHERE %s
		GROUP BY %s
		ORDER BY %s`, topicCol, where, groupCols, groupCols)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to aggregate attempts")
	}
	defer func() { _ = rows.Close() }()

	groups := []stats.GroupTally{}
	seconds := 0
	for rows.Next() {
		var (
			g   stats.GroupTally
			sec int
		)
		if err := rows.Scan(&g.Subject, &g.Topic, &g.Attempted, &g.Correct, &sec); err != nil {
			return nil, 0, contextutils.WrapError(err, "failed to scan aggregate")
		}
		seconds += sec
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, contextutils.WrapError(err, "error iterating aggregates")
	}
	return groups, seconds, nil
}

// dayTallies sums the user's attempts per day inside window; days without attempts are absent
func (s *StatsService) dayTallies(ctx context.Context, userID int, window stats.Range) ([]stats.DayTally, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT attempt_date, COUNT(*), COUNT(*) FILTER (WHERE is_correct)
		FROM attempts
		WHERE user_id = $1 AND attempt_date BETWEEN $2 AND $3
		GROUP BY attempt_date
		ORDER BY attempt_date`,
		userID, window.Start, window.End)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to aggregate attempts per day")
	}
	defer func() { _ = rows.Close() }()

	days := []stats.DayTally{}
	for rows.Next() {
		var d stats.DayTally
		if err := rows.Scan(&d.Day, &d.Attempted, &d.Correct); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan day aggregate")
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating day aggregates")
	}
	return days, nil
}

// GetTodayStats summarizes the current UTC day
func (s *StatsService) GetTodayStats(ctx context.Context, userID int) (result0 *models.TodayStats, err error) {
	today := s.today()
	ctx, span := observability.TraceStatsFunction(ctx, "get_today_stats",
		append(observability.AttributeDateRange(today.String(), today.String()), observability.AttributeUserID(userID))...)
	defer observability.FinishSpan(span, &err)

	window := stats.Range{Start: today, End: today}
	groups, seconds, err := s.groupTallies(ctx, userID, &window, false)
	if err != nil {
		return nil, err
	}

	total := stats.Total(groups)
	return &models.TodayStats{
		Date:             today,
		Attempted:        total.Attempted,
		Correct:          total.Correct,
		Accuracy:         total.Accuracy(),
		TimeSpent:        stats.MinutesFromSeconds(seconds),
		SubjectBreakdown: models.NewBreakdownRows(groups),
	}, nil
}

// GetWeekStats summarizes the Monday-Sunday week containing today
func (s *StatsService) GetWeekStats(ctx context.Context, userID int) (result0 *models.WeekStats, err error) {
	week := stats.WeekOf(s.today())
	ctx, span := observability.TraceStatsFunction(ctx, "get_week_stats",
		append(observability.AttributeDateRange(week.Start.String(), week.End.String()), observability.AttributeUserID(userID))...)
	defer observability.FinishSpan(span, &err)

	days, err := s.dayTallies(ctx, userID, week)
	if err != nil {
		return nil, err
	}
	subjects, _, err := s.groupTallies(ctx, userID, &week, false)
	if err != nil {
		return nil, err
	}
	topics, _, err := s.groupTallies(ctx, userID, &week, true)
	if err != nil {
		return nil, err
	}

	daily := make([]models.DailyRow, 0, 7)
	for _, d := range stats.DenseDays(week, days) {
		daily = append(daily, models.NewDailyRow(d))
	}

	total := stats.Total(subjects)
	return &models.WeekStats{
		WeekStart:        week.Start,
		WeekEnd:          week.End,
		TotalAttempted:   total.Attempted,
		TotalCorrect:     total.Correct,
		OverallAccuracy:  total.Accuracy(),
		DailyBreakdown:   daily,
		SubjectBreakdown: models.NewBreakdownRows(subjects),
		TopicBreakdown:   models.NewBreakdownRows(topics),
		WeakestTopics:    models.NewBreakdownRows(stats.WeakestTopics(topics, weakestTopicCount)),
	}, nil
}

// GetMonthStats summarizes a calendar month given as YYYY-MM; empty means the current month
func (s *StatsService) GetMonthStats(ctx context.Context, userID int, month string) (result0 *models.MonthStats, err error) {
	ctx, span := observability.TraceStatsFunction(ctx, "get_month_stats",
		observability.AttributeUserID(userID), attribute.String("stats.month", month))
	defer observability.FinishSpan(span, &err)

	var window stats.Range
	if month == "" {
		t := s.today().Time()
		window = stats.MonthOf(t.Year(), t.Month())
	} else {
		year, m, err := stats.ParseMonth(month)
		if err != nil {
			return nil, contextutils.InvalidInputf("month must be formatted as YYYY-MM")
		}
		window = stats.MonthOf(year, m)
	}

	days, err := s.dayTallies(ctx, userID, window)
	if err != nil {
		return nil, err
	}
	subjects, _, err := s.groupTallies(ctx, userID, &window, false)
	if err != nil {
		return nil, err
	}
	standings, err := WindowStandings(ctx, s.db, window, "")
	if err != nil {
		return nil, err
	}

	total := stats.Total(subjects)
	result := &models.MonthStats{
		Month:            window.Start.Time().Format("2006-01"),
		TotalAttempted:   total.Attempted,
		TotalCorrect:     total.Correct,
		OverallAccuracy:  total.Accuracy(),
		SubjectBreakdown: models.NewBreakdownRows(subjects),
		Rank:             stats.FindRank(standings, userID),
	}
	if best := stats.BestDay(days); best != nil {
		row := models.NewDailyRow(*best)
		result.BestDay = &row
	}
	if most := stats.MostPracticed(subjects); most != nil {
		row := models.NewBreakdownRows([]stats.GroupTally{*most})[0]
		result.MostPracticedSubject = &row
	}
	return result, nil
}

// GetActivityGraph returns one heatmap cell per day for the last months months, ending today.
// months above the maximum are capped; below one is rejected.
func (s *StatsService) GetActivityGraph(ctx context.Context, userID, months int) (result0 *models.ActivityGraph, err error) {
	ctx, span := observability.TraceStatsFunction(ctx, "get_activity_graph",
		observability.AttributeUserID(userID), attribute.Int("stats.months", months))
	defer observability.FinishSpan(span, &err)

	if months < 1 {
		return nil, contextutils.InvalidInputf("months must be a positive integer")
	}
	if months > config.ActivityGraphMaxMonths {
		months = config.ActivityGraphMaxMonths
	}

	window := stats.ActivityRange(s.today(), months)
	days, err := s.dayTallies(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	dense := stats.DenseDays(window, days)
	graph := &models.ActivityGraph{
		Activities: make([]models.ActivityDay, 0, len(dense)),
		TotalDays:  len(dense),
		StartDate:  window.Start,
		EndDate:    window.End,
	}
	for _, d := range dense {
		graph.Activities = append(graph.Activities, models.ActivityDay{
			Date:  d.Day,
			Count: d.Attempted,
			Level: stats.ActivityLevel(d.Attempted),
		})
		if d.Attempted > 0 {
			graph.ActiveDays++
		}
		graph.TotalAttempts += d.Attempted
	}
	return graph, nil
}

// GetOverallStats returns the running counters plus an all-time subject breakdown
func (s *StatsService) GetOverallStats(ctx context.Context, userID int) (result0 *models.OverallStats, err error) {
	ctx, span := observability.TraceStatsFunction(ctx, "get_overall_stats", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	user, err := scanUser(s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userSelectFields), userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.ErrUserNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load user")
	}

	subjects, _, err := s.groupTallies(ctx, userID, nil, false)
	if err != nil {
		return nil, err
	}

	return &models.OverallStats{
		TotalAttempted:   user.TotalQuestionsAttempted,
		TotalCorrect:     user.TotalCorrectAnswers,
		Accuracy:         user.Accuracy(),
		CurrentStreak:    user.CurrentStreak,
		LongestStreak:    user.LongestStreak,
		LastActiveDate:   user.LastActiveDay(),
		SubjectBreakdown: models.NewBreakdownRows(subjects),
	}, nil
}
