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

	"github.com/lib/pq"
	"golang.org/x/sync/singleflight"
)

// LeaderboardServiceInterface defines the ranking operations
type LeaderboardServiceInterface interface {
	GetGlobalLeaderboard(ctx context.Context, userID, page, limit int) (*models.Leaderboard, error)
	GetWeeklyLeaderboard(ctx context.Context, userID, limit int) (*models.Leaderboard, error)
	GetSubjectLeaderboard(ctx context.Context, userID int, subject string, limit int) (*models.Leaderboard, error)
	GetFriendsLeaderboard(ctx context.Context, userID int) (*models.Leaderboard, error)
	GetSummary(ctx context.Context, userID int) (*models.LeaderboardSummary, error)
}

// LeaderboardService ranks users. Identical in-flight computations are shared between
// concurrent callers; nothing is cached once a computation returns. Shared queries
// ignore the cancellation of whichever caller started them.
type LeaderboardService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
	group  singleflight.Group
	now    func() time.Time
}

var _ LeaderboardServiceInterface = (*LeaderboardService)(nil)

// globalAccuracyExpr mirrors stats.Accuracy: ROUND on numeric rounds halves away from zero
const globalAccuracyExpr = `COALESCE(ROUND(total_correct_answers * 100.0 / NULLIF(total_questions_attempted, 0)), 0)`

const leaderboardUserFields = `id, username, full_name, avatar_url, total_questions_attempted, total_correct_answers, current_streak`

// NewLeaderboardServiceWithLogger creates a new LeaderboardService instance with logger
func NewLeaderboardServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *LeaderboardService {
	return &LeaderboardService{db: db, cfg: cfg, logger: logger, now: time.Now}
}

// globalPage is the shared part of a global leaderboard request
type globalPage struct {
	entries []models.LeaderboardEntry
	total   int
}

// scanLeaderboardUsers reads rows selected with leaderboardUserFields, ranking them by position from offset
func scanLeaderboardUsers(rows *sql.Rows, offset int) ([]models.LeaderboardEntry, error) {
	defer func() { _ = rows.Close() }()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var (
			e         models.LeaderboardEntry
			fullName  sql.NullString
			avatarURL sql.NullString
		)
		if err := rows.Scan(&e.User.ID, &e.User.Username, &fullName, &avatarURL, &e.Attempted, &e.Correct, &e.CurrentStreak); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan leaderboard row")
		}
		e.User.FullName = nullableString(fullName)
		e.User.AvatarURL = nullableString(avatarURL)
		e.Accuracy = stats.Accuracy(e.Correct, e.Attempted)
		e.Rank = offset + len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating leaderboard rows")
	}
	return entries, nil
}

func nullableString(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

// loadGlobalPage computes one page of the global ranking
func (s *LeaderboardService) loadGlobalPage(ctx context.Context, page, limit int) (*globalPage, error) {
	key := fmt.Sprintf("global:%d:%d", page, limit)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		var total int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_banned = FALSE`).Scan(&total); err != nil {
			return nil, contextutils.WrapError(err, "failed to count users")
		}

		offset := models.NewPagination(page, limit, total).Offset()
		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM users WHERE is_banned = FALSE
			ORDER BY %s DESC, total_questions_attempted DESC, id ASC LIMIT $1 OFFSET $2`, leaderboardUserFields, globalAccuracyExpr),
			limit, offset)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to load global leaderboard")
		}
		entries, err := scanLeaderboardUsers(rows, offset)
		if err != nil {
			return nil, err
		}
		return &globalPage{entries: entries, total: total}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*globalPage), nil
}

// globalRankOf returns (users strictly ahead of userID) + 1 under the global ordering
func (s *LeaderboardService) globalRankOf(ctx context.Context, userID int) (int, *models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userSelectFields), userID))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, contextutils.ErrUserNotFound
	}
	if err != nil {
		return 0, nil, contextutils.WrapError(err, "failed to load user")
	}

	var ahead int
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM users WHERE is_banned = FALSE
		AND (%[1]s > $1 OR (%[1]s = $1 AND total_questions_attempted > $2))`, globalAccuracyExpr),
		user.Accuracy(), user.TotalQuestionsAttempted,
	).Scan(&ahead)
	if err != nil {
		return 0, nil, contextutils.WrapError(err, "failed to compute rank")
	}
	return ahead + 1, user, nil
}

// GetGlobalLeaderboard ranks all non-banned users by all-time accuracy, then attempts
func (s *LeaderboardService) GetGlobalLeaderboard(ctx context.Context, userID, page, limit int) (result0 *models.Leaderboard, err error) {
	ctx, span := observability.TraceLeaderboardFunction(ctx, "get_global_leaderboard",
		observability.AttributeUserID(userID), observability.AttributePage(page), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	gp, err := s.loadGlobalPage(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	myRank, _, err := s.globalRankOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	pagination := models.NewPagination(page, limit, gp.total)
	return &models.Leaderboard{
		Entries:    gp.entries,
		MyRank:     &myRank,
		TotalUsers: gp.total,
		Pagination: &pagination,
	}, nil
}

// WindowStandings ranks non-banned users by their attempts inside r, optionally restricted to
// questions of one subject. Users without attempts in the window are absent.
func WindowStandings(ctx context.Context, q execQuerier, r stats.Range, subject string) ([]stats.Standing, error) {
	query := `SELECT a.user_id, COUNT(*), COUNT(*) FILTER (WHERE a.is_correct)
		FROM attempts a JOIN users u ON u.id = a.user_id`
	args := []interface{}{r.Start, r.End}
	if subject != "" {
		query += ` JOIN questions q ON q.id = a.question_id`
	}
	query += ` WHERE a.attempt_date BETWEEN $1 AND $2 AND u.is_banned = FALSE`
	if subject != "" {
		args = append(args, subject)
		query += ` AND q.subject = $3`
	}
	query += ` GROUP BY a.user_id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to aggregate window standings")
	}
	defer func() { _ = rows.Close() }()

	standings := []stats.Standing{}
	for rows.Next() {
		var userID, attempted, correct int
		if err := rows.Scan(&userID, &attempted, &correct); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan standing")
		}
		standings = append(standings, stats.NewStanding(userID, attempted, correct))
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating standings")
	}
	return stats.Rank(standings), nil
}

// rankedWindow returns the full ranking for the window, sharing concurrent computations
func (s *LeaderboardService) rankedWindow(ctx context.Context, r stats.Range, subject string, minAttempts int) ([]stats.Standing, error) {
	key := fmt.Sprintf("window:%s:%s:%s:%d", r.Start, r.End, subject, minAttempts)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		standings, err := WindowStandings(context.WithoutCancel(ctx), s.db, r, subject)
		if err != nil {
			return nil, err
		}
		if minAttempts > 1 {
			standings = stats.Rank(stats.QualifiedOnly(standings, minAttempts))
		}
		return standings, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]stats.Standing), nil
}

// entriesFor attaches user details to the first limit standings
func (s *LeaderboardService) entriesFor(ctx context.Context, ranked []stats.Standing, limit int) ([]models.LeaderboardEntry, error) {
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if len(ranked) == 0 {
		return []models.LeaderboardEntry{}, nil
	}

	ids := make([]int64, len(ranked))
	for i, st := range ranked {
		ids[i] = int64(st.UserID)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, full_name, avatar_url, current_streak FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load ranked users")
	}
	defer func() { _ = rows.Close() }()

	type userInfo struct {
		summary models.UserSummary
		streak  int
	}
	byID := make(map[int]userInfo, len(ranked))
	for rows.Next() {
		var (
			info      userInfo
			fullName  sql.NullString
			avatarURL sql.NullString
		)
		if err := rows.Scan(&info.summary.ID, &info.summary.Username, &fullName, &avatarURL, &info.streak); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan ranked user")
		}
		info.summary.FullName = nullableString(fullName)
		info.summary.AvatarURL = nullableString(avatarURL)
		byID[info.summary.ID] = info
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating ranked users")
	}

	entries := make([]models.LeaderboardEntry, 0, len(ranked))
	for _, st := range ranked {
		info := byID[st.UserID]
		info.summary.ID = st.UserID
		entries = append(entries, models.LeaderboardEntry{
			Rank:          st.Rank,
			User:          info.summary,
			Attempted:     st.Attempted,
			Correct:       st.Correct,
			Accuracy:      st.Accuracy,
			CurrentStreak: info.streak,
		})
	}
	return entries, nil
}

func (s *LeaderboardService) currentWeek() stats.Range {
	return stats.WeekOf(stats.DayOf(s.now().UTC()))
}

// windowBoard builds a weekly-style board for the current week
func (s *LeaderboardService) windowBoard(ctx context.Context, userID int, subject string, minAttempts, limit int) (*models.Leaderboard, error) {
	week := s.currentWeek()
	ranked, err := s.rankedWindow(ctx, week, subject, minAttempts)
	if err != nil {
		return nil, err
	}
	entries, err := s.entriesFor(ctx, ranked, limit)
	if err != nil {
		return nil, err
	}
	return &models.Leaderboard{
		Entries:    entries,
		MyRank:     stats.FindRank(ranked, userID),
		TotalUsers: len(ranked),
		WeekStart:  &week.Start,
		WeekEnd:    &week.End,
	}, nil
}

// GetWeeklyLeaderboard ranks users by their attempts in the current Monday-Sunday week
func (s *LeaderboardService) GetWeeklyLeaderboard(ctx context.Context, userID, limit int) (result0 *models.Leaderboard, err error) {
	ctx, span := observability.TraceLeaderboardFunction(ctx, "get_weekly_leaderboard",
		observability.AttributeUserID(userID), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	return s.windowBoard(ctx, userID, "", 1, limit)
}

// GetSubjectLeaderboard ranks this week's attempts on one subject. Users below the
// minimum number of attempts are left out.
func (s *LeaderboardService) GetSubjectLeaderboard(ctx context.Context, userID int, subject string, limit int) (result0 *models.Leaderboard, err error) {
	ctx, span := observability.TraceLeaderboardFunction(ctx, "get_subject_leaderboard",
		observability.AttributeUserID(userID), observability.AttributeSubject(subject), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	if !s.cfg.IsValidSubject(subject) {
		return nil, contextutils.InvalidInputf("invalid subject %q", subject)
	}

	minAttempts := s.cfg.Leaderboard.SubjectMinAttempts
	board, err := s.windowBoard(ctx, userID, subject, minAttempts, limit)
	if err != nil {
		return nil, err
	}
	board.Subject = subject
	board.MinAttempts = minAttempts
	return board, nil
}

// GetFriendsLeaderboard ranks the requester and the users they follow under the global ordering
func (s *LeaderboardService) GetFriendsLeaderboard(ctx context.Context, userID int) (result0 *models.Leaderboard, err error) {
	ctx, span := observability.TraceLeaderboardFunction(ctx, "get_friends_leaderboard", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	v, err, _ := s.group.Do(fmt.Sprintf("friends:%d", userID), func() (interface{}, error) {
		rows, err := s.db.QueryContext(context.WithoutCancel(ctx), fmt.Sprintf(`SELECT %s FROM users
			WHERE is_banned = FALSE AND (id = $1 OR id IN (SELECT following_id FROM follows WHERE follower_id = $1))
			ORDER BY %s DESC, total_questions_attempted DESC, id ASC`, leaderboardUserFields, globalAccuracyExpr), userID)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to load friends leaderboard")
		}
		return scanLeaderboardUsers(rows, 0)
	})
	if err != nil {
		return nil, err
	}
	entries := v.([]models.LeaderboardEntry)

	board := &models.Leaderboard{Entries: entries, TotalUsers: len(entries)}
	for i := range entries {
		if entries[i].User.ID == userID {
			rank := entries[i].Rank
			board.MyRank = &rank
			break
		}
	}
	return board, nil
}

// GetSummary gathers the requester's global and weekly positions plus the global top entries
func (s *LeaderboardService) GetSummary(ctx context.Context, userID int) (result0 *models.LeaderboardSummary, err error) {
	ctx, span := observability.TraceLeaderboardFunction(ctx, "get_leaderboard_summary", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	globalRank, user, err := s.globalRankOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	top, err := s.loadGlobalPage(ctx, 1, s.cfg.Leaderboard.TopSummarySize)
	if err != nil {
		return nil, err
	}
	weekly, err := s.rankedWindow(ctx, s.currentWeek(), "", 1)
	if err != nil {
		return nil, err
	}

	return &models.LeaderboardSummary{
		GlobalRank:              globalRank,
		TotalUsers:              top.total,
		WeeklyRank:              stats.FindRank(weekly, userID),
		WeeklyParticipants:      len(weekly),
		OverallAccuracy:         user.Accuracy(),
		TotalQuestionsAttempted: user.TotalQuestionsAttempted,
		CurrentStreak:           user.CurrentStreak,
		LongestStreak:           user.LongestStreak,
		TopGlobal:               top.entries,
	}, nil
}
