package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	contextutils "prepx/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	qWindowStandings = regexp.QuoteMeta(`SELECT a.user_id, COUNT(*), COUNT(*) FILTER (WHERE a.is_correct)`)
	qRankedUsers     = regexp.QuoteMeta(`SELECT id, username, full_name, avatar_url, current_streak FROM users WHERE id = ANY($1)`)
	standingColumns  = []string{"user_id", "attempted", "correct"}
	boardColumns     = []string{"id", "username", "full_name", "avatar_url", "total_questions_attempted", "total_correct_answers", "current_streak"}
)

func newTestLeaderboardService(t *testing.T) (*LeaderboardService, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	svc := NewLeaderboardServiceWithLogger(db, testConfig(), testLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, mock
}

func TestGetWeeklyLeaderboard(t *testing.T) {
	svc, mock := newTestLeaderboardService(t)

	// week of Wednesday 2024-03-13 runs Monday 11th to Sunday 17th
	mock.ExpectQuery(qWindowStandings).WithArgs("2024-03-11", "2024-03-17").
		WillReturnRows(sqlmock.NewRows(standingColumns).
			AddRow(1, 10, 8).
			AddRow(2, 5, 4).
			AddRow(3, 4, 4))
	mock.ExpectQuery(qRankedUsers).WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "full_name", "avatar_url", "current_streak"}).
			AddRow(1, "alice", "Alice A", nil, 4).
			AddRow(3, "carol", nil, nil, 1))

	board, err := svc.GetWeeklyLeaderboard(context.Background(), 2, 2)
	require.NoError(t, err)

	require.Len(t, board.Entries, 2)
	assert.Equal(t, 3, board.Entries[0].User.ID)
	assert.Equal(t, 100, board.Entries[0].Accuracy)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, "alice", board.Entries[1].User.Username)
	assert.Equal(t, 2, board.Entries[1].Rank)
	assert.Equal(t, 4, board.Entries[1].CurrentStreak)
	require.NotNil(t, board.Entries[1].User.FullName)
	assert.Equal(t, "Alice A", *board.Entries[1].User.FullName)

	require.NotNil(t, board.MyRank)
	assert.Equal(t, 3, *board.MyRank)
	assert.Equal(t, 3, board.TotalUsers)
	assert.Equal(t, "2024-03-11", board.WeekStart.String())
	assert.Equal(t, "2024-03-17", board.WeekEnd.String())
}

func TestGetWeeklyLeaderboard_Empty(t *testing.T) {
	svc, mock := newTestLeaderboardService(t)
	mock.ExpectQuery(qWindowStandings).WillReturnRows(sqlmock.NewRows(standingColumns))

	board, err := svc.GetWeeklyLeaderboard(context.Background(), 2, 50)
	require.NoError(t, err)
	assert.NotNil(t, board.Entries)
	assert.Empty(t, board.Entries)
	assert.Nil(t, board.MyRank)
	assert.Zero(t, board.TotalUsers)
}

func TestGetSubjectLeaderboard(t *testing.T) {
	t.Run("drops users below minimum", func(t *testing.T) {
		svc, mock := newTestLeaderboardService(t)
		mock.ExpectQuery(qWindowStandings).WithArgs("2024-03-11", "2024-03-17", "DBMS").
			WillReturnRows(sqlmock.NewRows(standingColumns).
				AddRow(1, 10, 8).
				AddRow(3, 4, 4))
		mock.ExpectQuery(qRankedUsers).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "full_name", "avatar_url", "current_streak"}).
				AddRow(1, "alice", nil, nil, 4))

		board, err := svc.GetSubjectLeaderboard(context.Background(), 3, "DBMS", 50)
		require.NoError(t, err)
		require.Len(t, board.Entries, 1)
		assert.Equal(t, 1, board.Entries[0].User.ID)
		assert.Equal(t, 1, board.Entries[0].Rank)
		assert.Nil(t, board.MyRank)
		assert.Equal(t, "DBMS", board.Subject)
		assert.Equal(t, 5, board.MinAttempts)
	})

	t.Run("unknown subject", func(t *testing.T) {
		svc, _ := newTestLeaderboardService(t)
		_, err := svc.GetSubjectLeaderboard(context.Background(), 3, "astrology", 50)
		assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
	})
}

func TestGetGlobalLeaderboard(t *testing.T) {
	svc, mock := newTestLeaderboardService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users WHERE is_banned = FALSE`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`total_questions_attempted DESC, id ASC LIMIT $1 OFFSET $2`)).WithArgs(2, 0).
		WillReturnRows(sqlmock.NewRows(boardColumns).
			AddRow(3, "carol", nil, nil, 4, 4, 1).
			AddRow(1, "alice", nil, nil, 10, 8, 4))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).WithArgs(2).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(userRow(2, "bob", map[string]interface{}{
			"total_questions_attempted": int64(5),
			"total_correct_answers":     int64(4),
		})...))
	mock.ExpectQuery(regexp.QuoteMeta(`total_questions_attempted > $2`)).WithArgs(80, 5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	board, err := svc.GetGlobalLeaderboard(context.Background(), 2, 1, 2)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, 100, board.Entries[0].Accuracy)
	assert.Equal(t, 2, board.Entries[1].Rank)
	require.NotNil(t, board.MyRank)
	assert.Equal(t, 3, *board.MyRank)
	assert.Equal(t, 3, board.TotalUsers)
	require.NotNil(t, board.Pagination)
	assert.Equal(t, 2, board.Pagination.TotalPages)
}

func TestGetFriendsLeaderboard(t *testing.T) {
	svc, mock := newTestLeaderboardService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`id IN (SELECT following_id FROM follows WHERE follower_id = $1)`)).WithArgs(2).
		WillReturnRows(sqlmock.NewRows(boardColumns).
			AddRow(1, "alice", nil, nil, 10, 8, 4).
			AddRow(2, "bob", nil, nil, 0, 0, 0))

	board, err := svc.GetFriendsLeaderboard(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
	require.NotNil(t, board.MyRank)
	assert.Equal(t, 2, *board.MyRank)
	assert.Equal(t, 0, board.Entries[1].Accuracy)
}

func TestGetSummary(t *testing.T) {
	qUserByID := regexp.QuoteMeta(`FROM users WHERE id = $1`)
	qAhead := regexp.QuoteMeta(`total_questions_attempted > $2`)
	qCount := regexp.QuoteMeta(`SELECT COUNT(*) FROM users WHERE is_banned = FALSE`)
	qTop := regexp.QuoteMeta(`total_questions_attempted DESC, id ASC LIMIT $1 OFFSET $2`)

	expectTop := func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery(qCount).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
		mock.ExpectQuery(qTop).WithArgs(3, 0).
			WillReturnRows(sqlmock.NewRows(boardColumns).
				AddRow(3, "carol", nil, nil, 4, 4, 1).
				AddRow(1, "alice", nil, nil, 10, 8, 4).
				AddRow(2, "bob", nil, nil, 5, 4, 2))
	}

	t.Run("ranked this week", func(t *testing.T) {
		svc, mock := newTestLeaderboardService(t)

		mock.ExpectQuery(qUserByID).WithArgs(2).
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(userRow(2, "bob", map[string]interface{}{
				"total_questions_attempted": int64(5),
				"total_correct_answers":     int64(4),
				"current_streak":            int64(2),
				"longest_streak":            int64(6),
			})...))
		mock.ExpectQuery(qAhead).WithArgs(80, 5).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		expectTop(mock)
		mock.ExpectQuery(qWindowStandings).WithArgs("2024-03-11", "2024-03-17").
			WillReturnRows(sqlmock.NewRows(standingColumns).
				AddRow(2, 5, 4).
				AddRow(1, 10, 8))

		summary, err := svc.GetSummary(context.Background(), 2)
		require.NoError(t, err)

		assert.Equal(t, 3, summary.GlobalRank, "two users strictly ahead")
		assert.Equal(t, 7, summary.TotalUsers)
		require.NotNil(t, summary.WeeklyRank)
		assert.Equal(t, 2, *summary.WeeklyRank, "equal accuracy, fewer attempts")
		assert.Equal(t, 2, summary.WeeklyParticipants)
		assert.Equal(t, 80, summary.OverallAccuracy)
		assert.Equal(t, 5, summary.TotalQuestionsAttempted)
		assert.Equal(t, 2, summary.CurrentStreak)
		assert.Equal(t, 6, summary.LongestStreak)
		require.Len(t, summary.TopGlobal, 3)
		assert.Equal(t, "carol", summary.TopGlobal[0].User.Username)
		assert.Equal(t, 3, summary.TopGlobal[2].Rank)
	})

	t.Run("absent this week", func(t *testing.T) {
		svc, mock := newTestLeaderboardService(t)

		mock.ExpectQuery(qUserByID).WithArgs(4).
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(userRow(4, "dave", nil)...))
		mock.ExpectQuery(qAhead).WithArgs(0, 0).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))
		expectTop(mock)
		mock.ExpectQuery(qWindowStandings).
			WillReturnRows(sqlmock.NewRows(standingColumns).AddRow(1, 10, 8))

		summary, err := svc.GetSummary(context.Background(), 4)
		require.NoError(t, err)

		assert.Equal(t, 7, summary.GlobalRank)
		assert.Nil(t, summary.WeeklyRank)
		assert.Equal(t, 1, summary.WeeklyParticipants)
		assert.Zero(t, summary.OverallAccuracy)
		assert.Len(t, summary.TopGlobal, 3)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, mock := newTestLeaderboardService(t)
		mock.ExpectQuery(qUserByID).WithArgs(99).WillReturnRows(sqlmock.NewRows(userColumns))

		_, err := svc.GetSummary(context.Background(), 99)
		assert.ErrorIs(t, err, contextutils.ErrUserNotFound)
	})
}

func TestRankedWindow_IgnoresCallerCancellation(t *testing.T) {
	svc, mock := newTestLeaderboardService(t)
	mock.ExpectQuery(qWindowStandings).
		WillReturnRows(sqlmock.NewRows(standingColumns).AddRow(1, 10, 8))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ranked, err := svc.rankedWindow(ctx, svc.currentWeek(), "", 1)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].Rank)
}
