package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/services"
	contextutils "prepx/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Embedded interfaces panic on methods a test did not expect to be called.

type mockUsers struct {
	services.UserServiceInterface
	mock.Mock
}

func (m *mockUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUsers) ListUsers(ctx context.Context, page, limit int, search string) ([]models.User, int, error) {
	args := m.Called(ctx, page, limit, search)
	return args.Get(0).([]models.User), args.Int(1), args.Error(2)
}

func (m *mockUsers) SetBanned(ctx context.Context, userID int, banned bool, reason string) error {
	return m.Called(ctx, userID, banned, reason).Error(0)
}

func (m *mockUsers) SetRole(ctx context.Context, userID int, role models.Role) error {
	return m.Called(ctx, userID, role).Error(0)
}

type mockQuestions struct {
	services.QuestionServiceInterface
	mock.Mock
}

func (m *mockQuestions) ImportQuestions(ctx context.Context, createdBy int, inputs []models.QuestionInput) (int, error) {
	args := m.Called(ctx, createdBy, inputs)
	return args.Int(0), args.Error(1)
}

type mockAttempts struct {
	services.AttemptServiceInterface
	mock.Mock
}

func (m *mockAttempts) ClearAttempts(ctx context.Context, userID int) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockReminders struct {
	mock.Mock
}

func (m *mockReminders) StreakReminderCandidates(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *mockReminders) SendStreakReminders(ctx context.Context, dryRun bool) (*services.ReminderRun, error) {
	args := m.Called(ctx, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ReminderRun), args.Error(1)
}

const seedYAML = `
questions:
  - subject: DBMS
    topic: Normalization
    difficulty: easy
    question_text: Which normal form removes partial dependencies?
    options: ["1NF", "2NF", "3NF", "BCNF"]
    correct_option_index: 1
    explanation: 2NF removes partial dependencies on a composite key.
  - subject: Operating Systems
    topic: Scheduling
    difficulty: medium
    question_text: Which algorithm can starve long jobs?
    options: ["FCFS", "Round Robin", "SJF", "FIFO"]
    correct_option_index: 2
`

func TestParseQuestionSeed(t *testing.T) {
	inputs, err := ParseQuestionSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	assert.Equal(t, "DBMS", inputs[0].Subject)
	assert.Equal(t, []string{"1NF", "2NF", "3NF", "BCNF"}, inputs[0].Options)
	require.NotNil(t, inputs[0].CorrectOptionIndex)
	assert.Equal(t, 1, *inputs[0].CorrectOptionIndex)
	assert.Empty(t, inputs[1].Explanation)
}

func TestParseQuestionSeed_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty file", ""},
		{"no questions", "questions: []\n"},
		{"unknown field", "questions:\n  - subject: DBMS\n    answer: 2\n"},
		{"not yaml", "questions: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuestionSeed(strings.NewReader(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestRunSeed_ResolvesAuthor(t *testing.T) {
	users := &mockUsers{}
	questions := &mockQuestions{}
	users.On("GetUserByUsername", mock.Anything, "root").Return(&models.User{ID: 1, Username: "root", Role: models.RoleAdmin}, nil)
	questions.On("ImportQuestions", mock.Anything, 1, mock.MatchedBy(func(in []models.QuestionInput) bool { return len(in) == 2 })).Return(2, nil)

	var out bytes.Buffer
	err := runSeed(context.Background(), &out, strings.NewReader(seedYAML),
		DatabaseServices{Users: users, Questions: questions}, observability.NewNopLogger(), "root")

	require.NoError(t, err)
	assert.Equal(t, "Imported 2 questions\n", out.String())
	questions.AssertExpectations(t)
}

func TestRunSeed_ImportFails(t *testing.T) {
	questions := &mockQuestions{}
	questions.On("ImportQuestions", mock.Anything, 0, mock.Anything).Return(0, contextutils.InvalidInputf("question 2: unknown subject"))

	var out bytes.Buffer
	err := runSeed(context.Background(), &out, strings.NewReader(seedYAML),
		DatabaseServices{Questions: questions}, observability.NewNopLogger(), "")

	assert.Error(t, err)
	assert.Empty(t, out.String())
}

func TestRunClearAttempts(t *testing.T) {
	users := &mockUsers{}
	attempts := &mockAttempts{}
	users.On("GetUserByUsername", mock.Anything, "alice").Return(&models.User{ID: 7, Username: "alice"}, nil)
	attempts.On("ClearAttempts", mock.Anything, 7).Return(12, nil)

	var out bytes.Buffer
	err := runClearAttempts(context.Background(), &out, DatabaseServices{Users: users, Attempts: attempts}, observability.NewNopLogger(), "alice")

	require.NoError(t, err)
	assert.Equal(t, "Deleted 12 attempts for 'alice'\n", out.String())
}

func TestRunClearAttempts_UnknownUser(t *testing.T) {
	users := &mockUsers{}
	users.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, contextutils.ErrUserNotFound)

	err := runClearAttempts(context.Background(), &bytes.Buffer{}, DatabaseServices{Users: users}, observability.NewNopLogger(), "ghost")

	assert.ErrorIs(t, err, contextutils.ErrUserNotFound)
}

func TestRunSetBanned(t *testing.T) {
	users := &mockUsers{}
	users.On("GetUserByUsername", mock.Anything, "alice").Return(&models.User{ID: 7, Username: "alice", Role: models.RoleUser}, nil)
	users.On("GetUserByUsername", mock.Anything, "root").Return(&models.User{ID: 1, Username: "root", Role: models.RoleAdmin}, nil)
	users.On("SetBanned", mock.Anything, 7, true, "spam").Return(nil).Once()

	var out bytes.Buffer
	require.NoError(t, runSetBanned(context.Background(), &out, users, observability.NewNopLogger(), "alice", true, "spam"))
	assert.Equal(t, "User 'alice' banned\n", out.String())

	err := runSetBanned(context.Background(), &out, users, observability.NewNopLogger(), "root", true, "")
	assert.Error(t, err)
	users.AssertNumberOfCalls(t, "SetBanned", 1)
}

func TestRunPromote(t *testing.T) {
	users := &mockUsers{}
	users.On("GetUserByUsername", mock.Anything, "alice").Return(&models.User{ID: 7, Username: "alice", Role: models.RoleUser}, nil)
	users.On("GetUserByUsername", mock.Anything, "root").Return(&models.User{ID: 1, Username: "root", Role: models.RoleAdmin}, nil)
	users.On("SetRole", mock.Anything, 7, models.RoleAdmin).Return(nil).Once()

	var out bytes.Buffer
	require.NoError(t, runPromote(context.Background(), &out, users, observability.NewNopLogger(), "alice"))
	require.NoError(t, runPromote(context.Background(), &out, users, observability.NewNopLogger(), "root"))

	assert.Contains(t, out.String(), "User 'alice' is now an admin")
	assert.Contains(t, out.String(), "User 'root' is already an admin")
	users.AssertNumberOfCalls(t, "SetRole", 1)
}

func TestRunListUsers(t *testing.T) {
	users := &mockUsers{}
	users.On("ListUsers", mock.Anything, 1, 2, "").Return([]models.User{
		{ID: 1, Username: "root", Email: "root@example.com", Role: models.RoleAdmin, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 7, Username: "alice", Email: "alice@example.com", Role: models.RoleUser, IsBanned: true, CurrentStreak: 4, CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}, 5, nil)

	var out bytes.Buffer
	require.NoError(t, runListUsers(context.Background(), &out, users, observability.NewNopLogger(), "", 2))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "Username")
	assert.Contains(t, lines[3], "alice")
	assert.Contains(t, lines[3], "yes")
	assert.Equal(t, "... 3 more", lines[4])
}

func TestRunStreakReminders(t *testing.T) {
	t.Run("dry run lists candidates without sending", func(t *testing.T) {
		reminders := &mockReminders{}
		reminders.On("StreakReminderCandidates", mock.Anything).Return([]*models.User{
			{ID: 7, Username: "alice", Email: "alice@example.com", CurrentStreak: 5},
		}, nil)

		var out bytes.Buffer
		require.NoError(t, runStreakReminders(context.Background(), &out, reminders, observability.NewNopLogger(), true))

		assert.Contains(t, out.String(), "alice")
		assert.Contains(t, out.String(), "Candidates: 1 (dry run, nothing sent)")
		reminders.AssertNotCalled(t, "SendStreakReminders", mock.Anything, mock.Anything)
	})

	t.Run("send", func(t *testing.T) {
		reminders := &mockReminders{}
		reminders.On("SendStreakReminders", mock.Anything, false).Return(&services.ReminderRun{Candidates: 3, Sent: 2, Failed: 1}, nil)

		var out bytes.Buffer
		require.NoError(t, runStreakReminders(context.Background(), &out, reminders, observability.NewNopLogger(), false))

		assert.Equal(t, "Candidates: 3, sent: 2, failed: 1\n", out.String())
	})

	t.Run("disabled", func(t *testing.T) {
		reminders := &mockReminders{}
		reminders.On("SendStreakReminders", mock.Anything, false).Return(nil, contextutils.ErrServiceUnavailable)

		assert.Error(t, runStreakReminders(context.Background(), &bytes.Buffer{}, reminders, observability.NewNopLogger(), false))
	})
}

func TestConfirmReset(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"YES\n", true},
		{"no\n", false},
		{"maybe\nyes\n", true},
		{"maybe\n", false},
		{"", false},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		assert.Equal(t, tc.want, confirmReset(strings.NewReader(tc.input), &out), "input %q", tc.input)
	}
}
