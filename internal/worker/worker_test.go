package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"prepx/internal/config"
	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReminders struct {
	mock.Mock
}

func (m *mockReminders) StreakReminderCandidates(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *mockReminders) SendStreakReminders(ctx context.Context, dryRun bool) (*services.ReminderRun, error) {
	args := m.Called(ctx, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ReminderRun), args.Error(1)
}

func reminderConfig(enabled bool, hour int) *config.Config {
	cfg := &config.Config{}
	cfg.Email.Enabled = enabled
	cfg.Email.StreakReminder.Enabled = enabled
	cfg.Email.StreakReminder.Hour = hour
	return cfg
}

func newTestWorker(t *testing.T, reminders *mockReminders, cfg *config.Config, now time.Time) (*Worker, *time.Time) {
	t.Helper()
	w := NewWorker(reminders, "test", cfg, observability.NewNopLogger())
	clock := now
	w.timeNow = func() time.Time { return clock }
	return w, &clock
}

func TestRun_BeforeHourDoesNothing(t *testing.T) {
	reminders := &mockReminders{}
	w, _ := newTestWorker(t, reminders, reminderConfig(true, 18), time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	w.run(context.Background(), false)

	reminders.AssertNotCalled(t, "SendStreakReminders", mock.Anything, mock.Anything)
	assert.Empty(t, w.GetHistory())
	assert.Equal(t, "Waiting for reminder hour", w.GetStatus().CurrentActivity)
}

func TestRun_SendsOncePerDay(t *testing.T) {
	reminders := &mockReminders{}
	reminders.On("SendStreakReminders", mock.Anything, false).
		Return(&services.ReminderRun{Candidates: 3, Sent: 2, Failed: 1}, nil).Once()
	w, clock := newTestWorker(t, reminders, reminderConfig(true, 18), time.Date(2026, 3, 10, 18, 0, 30, 0, time.UTC))

	w.run(context.Background(), false)
	*clock = clock.Add(time.Minute)
	w.run(context.Background(), false)

	reminders.AssertExpectations(t)
	history := w.GetHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "Success", history[0].Status)
	assert.Equal(t, "candidates=3 sent=2 failed=1", history[0].Details)

	status := w.GetStatus()
	assert.Equal(t, "2026-03-10", status.LastSentDay)
	assert.Equal(t, time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC), status.NextRun)
}

func TestRun_NextDaySendsAgain(t *testing.T) {
	reminders := &mockReminders{}
	reminders.On("SendStreakReminders", mock.Anything, false).
		Return(&services.ReminderRun{}, nil).Twice()
	w, clock := newTestWorker(t, reminders, reminderConfig(true, 18), time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC))

	w.run(context.Background(), false)
	*clock = clock.Add(24 * time.Hour)
	w.run(context.Background(), false)

	reminders.AssertExpectations(t)
	assert.Equal(t, "2026-03-11", w.GetStatus().LastSentDay)
}

func TestRun_FailureIsRetried(t *testing.T) {
	reminders := &mockReminders{}
	reminders.On("SendStreakReminders", mock.Anything, false).
		Return(nil, errors.New("smtp down")).Once()
	reminders.On("SendStreakReminders", mock.Anything, false).
		Return(&services.ReminderRun{Candidates: 1, Sent: 1}, nil).Once()
	w, clock := newTestWorker(t, reminders, reminderConfig(true, 18), time.Date(2026, 3, 10, 18, 5, 0, 0, time.UTC))

	w.run(context.Background(), false)
	status := w.GetStatus()
	assert.Equal(t, "smtp down", status.LastRunError)
	assert.Empty(t, status.LastSentDay)

	*clock = clock.Add(time.Minute)
	w.run(context.Background(), false)

	reminders.AssertExpectations(t)
	history := w.GetHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "Failure", history[0].Status)
	assert.Equal(t, "Success", history[1].Status)
	assert.Empty(t, w.GetStatus().LastRunError)
}

func TestRun_Disabled(t *testing.T) {
	reminders := &mockReminders{}
	w, _ := newTestWorker(t, reminders, reminderConfig(false, 0), time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	w.run(context.Background(), true)

	reminders.AssertNotCalled(t, "SendStreakReminders", mock.Anything, mock.Anything)
	history := w.GetHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "Skipped", history[0].Status)
	assert.True(t, history[0].Manual)
	assert.True(t, w.GetStatus().NextRun.IsZero())
}

func TestRun_ManualIgnoresHour(t *testing.T) {
	reminders := &mockReminders{}
	reminders.On("SendStreakReminders", mock.Anything, false).
		Return(&services.ReminderRun{Candidates: 0}, nil).Once()
	w, _ := newTestWorker(t, reminders, reminderConfig(true, 18), time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))

	w.run(context.Background(), true)
	// Same day: the manual run already closed it.
	w.run(context.Background(), true)

	reminders.AssertExpectations(t)
	history := w.GetHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "Success", history[0].Status)
	assert.Equal(t, "Skipped", history[1].Status)
	assert.Contains(t, history[1].Details, "already sent")
}

func TestRun_Paused(t *testing.T) {
	reminders := &mockReminders{}
	w, _ := newTestWorker(t, reminders, reminderConfig(true, 0), time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	w.Pause(context.Background())
	w.run(context.Background(), false)
	assert.Empty(t, w.GetHistory())
	assert.True(t, w.GetStatus().IsPaused)

	reminders.On("SendStreakReminders", mock.Anything, false).Return(&services.ReminderRun{}, nil).Once()
	w.Resume(context.Background())
	w.run(context.Background(), false)
	reminders.AssertExpectations(t)
	assert.False(t, w.GetStatus().IsPaused)
}

func TestRecordRunHistory_Trims(t *testing.T) {
	w, _ := newTestWorker(t, &mockReminders{}, reminderConfig(false, 0), time.Now())
	for i := 0; i < config.WorkerMaxHistory+5; i++ {
		w.recordRunHistory(RunRecord{Status: "Skipped"})
	}
	assert.Len(t, w.GetHistory(), config.WorkerMaxHistory)
}

func TestTriggerManualRun_DropsDuplicate(t *testing.T) {
	w, _ := newTestWorker(t, &mockReminders{}, reminderConfig(false, 0), time.Now())
	w.TriggerManualRun()
	w.TriggerManualRun()
	assert.Len(t, w.manualTrigger, 1)
}

func TestStartAndShutdown(t *testing.T) {
	reminders := &mockReminders{}
	reminders.On("SendStreakReminders", mock.Anything, false).Return(&services.ReminderRun{Sent: 1}, nil).Once()
	w, _ := newTestWorker(t, reminders, reminderConfig(true, 23), time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC))
	w.interval = time.Hour

	go w.Start(context.Background())
	w.TriggerManualRun()

	require.Eventually(t, func() bool {
		return len(w.GetHistory()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, w.GetStatus().IsRunning)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Shutdown(ctx))
	assert.False(t, w.GetStatus().IsRunning)
	reminders.AssertExpectations(t)
}

func TestShutdown_NotStarted(t *testing.T) {
	w, _ := newTestWorker(t, &mockReminders{}, reminderConfig(false, 0), time.Now())
	assert.NoError(t, w.Shutdown(context.Background()))
}
