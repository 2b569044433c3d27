package handlers

import (
	"context"

	"prepx/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID int, req models.UpdateProfileRequest) (*models.User, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) error {
	return m.Called(ctx, userID, currentPassword, newPassword).Error(0)
}

func (m *MockUserService) SetPassword(ctx context.Context, userID int, newPassword string) error {
	return m.Called(ctx, userID, newPassword).Error(0)
}

func (m *MockUserService) GetPublicProfile(ctx context.Context, viewerID int, username string) (*models.PublicProfile, error) {
	args := m.Called(ctx, viewerID, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PublicProfile), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context, page, limit int, search string) ([]models.User, int, error) {
	args := m.Called(ctx, page, limit, search)
	return args.Get(0).([]models.User), args.Int(1), args.Error(2)
}

func (m *MockUserService) SetBanned(ctx context.Context, userID int, banned bool, reason string) error {
	return m.Called(ctx, userID, banned, reason).Error(0)
}

func (m *MockUserService) SetRole(ctx context.Context, userID int, role models.Role) error {
	return m.Called(ctx, userID, role).Error(0)
}

func (m *MockUserService) EnsureAdminUserExists(ctx context.Context, username, email, password string) error {
	return m.Called(ctx, username, email, password).Error(0)
}

type MockQuestionService struct {
	mock.Mock
}

func (m *MockQuestionService) ListQuestions(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Question), args.Int(1), args.Error(2)
}

func (m *MockQuestionService) GetSubjects(ctx context.Context) ([]models.SubjectCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.SubjectCount), args.Error(1)
}

func (m *MockQuestionService) GetRandomQuestion(ctx context.Context, subject, difficulty string) (*models.Question, error) {
	args := m.Called(ctx, subject, difficulty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionService) GetQuestionByID(ctx context.Context, id int, includeInactive bool) (*models.Question, error) {
	args := m.Called(ctx, id, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionService) CreateQuestion(ctx context.Context, createdBy int, in models.QuestionInput) (*models.Question, error) {
	args := m.Called(ctx, createdBy, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionService) UpdateQuestion(ctx context.Context, id int, in models.QuestionInput) (*models.Question, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionService) SetQuestionActive(ctx context.Context, id int, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func (m *MockQuestionService) ImportQuestions(ctx context.Context, createdBy int, inputs []models.QuestionInput) (int, error) {
	args := m.Called(ctx, createdBy, inputs)
	return args.Int(0), args.Error(1)
}

type MockAttemptService struct {
	mock.Mock
}

func (m *MockAttemptService) SubmitAttempt(ctx context.Context, userID, questionID int, req models.SubmitAttemptRequest) (*models.AttemptResult, error) {
	args := m.Called(ctx, userID, questionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttemptResult), args.Error(1)
}

func (m *MockAttemptService) ListAttempts(ctx context.Context, userID, page, limit int) ([]models.AttemptHistoryItem, int, error) {
	args := m.Called(ctx, userID, page, limit)
	return args.Get(0).([]models.AttemptHistoryItem), args.Int(1), args.Error(2)
}

func (m *MockAttemptService) ClearAttempts(ctx context.Context, userID int) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) GetTodayStats(ctx context.Context, userID int) (*models.TodayStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TodayStats), args.Error(1)
}

func (m *MockStatsService) GetWeekStats(ctx context.Context, userID int) (*models.WeekStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WeekStats), args.Error(1)
}

func (m *MockStatsService) GetMonthStats(ctx context.Context, userID int, month string) (*models.MonthStats, error) {
	args := m.Called(ctx, userID, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MonthStats), args.Error(1)
}

func (m *MockStatsService) GetActivityGraph(ctx context.Context, userID, months int) (*models.ActivityGraph, error) {
	args := m.Called(ctx, userID, months)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActivityGraph), args.Error(1)
}

func (m *MockStatsService) GetOverallStats(ctx context.Context, userID int) (*models.OverallStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OverallStats), args.Error(1)
}

type MockLeaderboardService struct {
	mock.Mock
}

func (m *MockLeaderboardService) GetGlobalLeaderboard(ctx context.Context, userID, page, limit int) (*models.Leaderboard, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Leaderboard), args.Error(1)
}

func (m *MockLeaderboardService) GetWeeklyLeaderboard(ctx context.Context, userID, limit int) (*models.Leaderboard, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Leaderboard), args.Error(1)
}

func (m *MockLeaderboardService) GetSubjectLeaderboard(ctx context.Context, userID int, subject string, limit int) (*models.Leaderboard, error) {
	args := m.Called(ctx, userID, subject, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Leaderboard), args.Error(1)
}

func (m *MockLeaderboardService) GetFriendsLeaderboard(ctx context.Context, userID int) (*models.Leaderboard, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Leaderboard), args.Error(1)
}

func (m *MockLeaderboardService) GetSummary(ctx context.Context, userID int) (*models.LeaderboardSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LeaderboardSummary), args.Error(1)
}

type MockFollowService struct {
	mock.Mock
}

func (m *MockFollowService) Follow(ctx context.Context, followerID, followingID int) error {
	return m.Called(ctx, followerID, followingID).Error(0)
}

func (m *MockFollowService) Unfollow(ctx context.Context, followerID, followingID int) error {
	return m.Called(ctx, followerID, followingID).Error(0)
}

func (m *MockFollowService) GetStatus(ctx context.Context, viewerID, otherID int) (*models.FollowStatus, error) {
	args := m.Called(ctx, viewerID, otherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FollowStatus), args.Error(1)
}

func (m *MockFollowService) ListFollowers(ctx context.Context, userID, page, limit int) ([]models.UserSummary, int, error) {
	args := m.Called(ctx, userID, page, limit)
	return args.Get(0).([]models.UserSummary), args.Int(1), args.Error(2)
}

func (m *MockFollowService) ListFollowing(ctx context.Context, userID, page, limit int) ([]models.UserSummary, int, error) {
	args := m.Called(ctx, userID, page, limit)
	return args.Get(0).([]models.UserSummary), args.Int(1), args.Error(2)
}

type MockBookmarkService struct {
	mock.Mock
}

func (m *MockBookmarkService) AddBookmark(ctx context.Context, userID, questionID int) error {
	return m.Called(ctx, userID, questionID).Error(0)
}

func (m *MockBookmarkService) RemoveBookmark(ctx context.Context, userID, questionID int) error {
	return m.Called(ctx, userID, questionID).Error(0)
}

func (m *MockBookmarkService) ListBookmarks(ctx context.Context, userID, page, limit int) ([]models.Bookmark, int, error) {
	args := m.Called(ctx, userID, page, limit)
	return args.Get(0).([]models.Bookmark), args.Int(1), args.Error(2)
}

func (m *MockBookmarkService) IsBookmarked(ctx context.Context, userID, questionID int) (bool, error) {
	args := m.Called(ctx, userID, questionID)
	return args.Bool(0), args.Error(1)
}

type MockPostService struct {
	mock.Mock
}

func (m *MockPostService) CreatePost(ctx context.Context, userID int, req models.CreatePostRequest) (*models.Post, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) GetFeed(ctx context.Context, userID, page, limit int) ([]models.Post, int, error) {
	args := m.Called(ctx, userID, page, limit)
	return args.Get(0).([]models.Post), args.Int(1), args.Error(2)
}

func (m *MockPostService) GetPost(ctx context.Context, viewerID, postID int) (*models.Post, error) {
	args := m.Called(ctx, viewerID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) ListUserPosts(ctx context.Context, viewerID int, username string, page, limit int) ([]models.Post, int, error) {
	args := m.Called(ctx, viewerID, username, page, limit)
	return args.Get(0).([]models.Post), args.Int(1), args.Error(2)
}

func (m *MockPostService) DeletePost(ctx context.Context, actorID int, isAdmin bool, postID int) error {
	return m.Called(ctx, actorID, isAdmin, postID).Error(0)
}

func (m *MockPostService) LikePost(ctx context.Context, userID, postID int) (int, error) {
	args := m.Called(ctx, userID, postID)
	return args.Int(0), args.Error(1)
}

func (m *MockPostService) UnlikePost(ctx context.Context, userID, postID int) (int, error) {
	args := m.Called(ctx, userID, postID)
	return args.Int(0), args.Error(1)
}

func (m *MockPostService) ListComments(ctx context.Context, postID, page, limit int) ([]models.Comment, int, error) {
	args := m.Called(ctx, postID, page, limit)
	return args.Get(0).([]models.Comment), args.Int(1), args.Error(2)
}

func (m *MockPostService) AddComment(ctx context.Context, userID, postID int, content string) (*models.Comment, error) {
	args := m.Called(ctx, userID, postID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockPostService) DeleteComment(ctx context.Context, actorID int, isAdmin bool, postID, commentID int) error {
	return m.Called(ctx, actorID, isAdmin, postID, commentID).Error(0)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, viewerID int, query, searchType string) (*models.SearchResults, error) {
	args := m.Called(ctx, viewerID, query, searchType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchResults), args.Error(1)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) GetDashboard(ctx context.Context) (*models.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}

func (m *MockAdminService) BanUser(ctx context.Context, actorID, targetID int, reason string) error {
	return m.Called(ctx, actorID, targetID, reason).Error(0)
}

func (m *MockAdminService) UnbanUser(ctx context.Context, actorID, targetID int) error {
	return m.Called(ctx, actorID, targetID).Error(0)
}

func (m *MockAdminService) ChangeRole(ctx context.Context, actorID, targetID int, role models.Role) error {
	return m.Called(ctx, actorID, targetID, role).Error(0)
}
