// Package worker contains the background worker that sends the daily streak
// reminder emails. It runs independently of HTTP request handling, checks the
// clock on a fixed interval, and sends at most one reminder pass per UTC day
// once the configured hour has been reached.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"prepx/internal/config"
	"prepx/internal/observability"
	"prepx/internal/services"
	"prepx/internal/stats"
	contextutils "prepx/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// Status represents the current state of the worker
type Status struct {
	IsRunning       bool      `json:"isRunning"`
	IsPaused        bool      `json:"isPaused"`
	CurrentActivity string    `json:"currentActivity,omitempty"`
	LastRunStart    time.Time `json:"lastRunStart"`
	LastRunFinish   time.Time `json:"lastRunFinish"`
	LastRunError    string    `json:"lastRunError,omitempty"`
	LastSentDay     string    `json:"lastSentDay,omitempty"`
	NextRun         time.Time `json:"nextRun"`
}

// RunRecord tracks individual reminder passes
type RunRecord struct {
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"` // Success, Failure, Skipped
	Manual    bool          `json:"manual"`
	Details   string        `json:"details"`
}

// ActivityLog represents a single activity log entry
type ActivityLog struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // INFO, WARN, ERROR
	Message   string    `json:"message"`
}

const maxActivityLogs = 200

// Worker schedules streak reminder passes
type Worker struct {
	reminders    services.ReminderServiceInterface
	instance     string
	cfg          *config.Config
	logger       *observability.Logger
	status       Status
	lastSent     stats.DayKey
	hasSent      bool
	history      []RunRecord
	activityLogs []ActivityLog
	mu           sync.RWMutex

	manualTrigger chan bool
	interval      time.Duration
	// Time function for testing - defaults to time.Now
	timeNow func() time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWorker creates a worker that has not been started yet
func NewWorker(reminders services.ReminderServiceInterface, instance string, cfg *config.Config, logger *observability.Logger) *Worker {
	return &Worker{
		reminders:     reminders,
		instance:      instance,
		cfg:           cfg,
		logger:        logger,
		manualTrigger: make(chan bool, 1),
		interval:      config.WorkerCheckInterval,
		timeNow:       time.Now,
		done:          make(chan struct{}),
	}
}

// Start runs the worker loop until ctx is cancelled or Shutdown is called
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.status.IsRunning = true
	w.status.NextRun = w.nextRun(w.timeNow().UTC())
	w.mu.Unlock()
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info(ctx, "Worker started", map[string]interface{}{
		"instance":      w.instance,
		"reminder_hour": w.cfg.Email.StreakReminder.Hour,
		"enabled":       w.remindersEnabled(),
	})
	w.logActivity("INFO", fmt.Sprintf("Worker %s started", w.instance))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(context.Background(), "Worker shutting down", map[string]interface{}{
				"instance": w.instance,
			})
			w.logActivity("INFO", fmt.Sprintf("Worker %s shutting down", w.instance))
			w.mu.Lock()
			w.status.IsRunning = false
			w.mu.Unlock()
			return

		case <-ticker.C:
			w.run(ctx, false)

		case <-w.manualTrigger:
			w.logger.Info(ctx, "Worker triggered manually", map[string]interface{}{
				"instance": w.instance,
			})
			w.logActivity("INFO", fmt.Sprintf("Worker %s triggered manually", w.instance))
			w.run(ctx, true)
		}
	}
}

func (w *Worker) remindersEnabled() bool {
	return w.cfg.Email.Enabled && w.cfg.Email.StreakReminder.Enabled
}

// nextRun returns the next moment a scheduled pass is due, or the zero time when reminders are off
func (w *Worker) nextRun(now time.Time) time.Time {
	if !w.remindersEnabled() {
		return time.Time{}
	}
	today := stats.DayOf(now)
	at := today.Time().Add(time.Duration(w.cfg.Email.StreakReminder.Hour) * time.Hour)
	if w.hasSent && w.lastSent == today {
		return at.AddDate(0, 0, 1)
	}
	if now.After(at) {
		return now
	}
	return at
}

// due reports whether a pass should happen now. Manual runs ignore the hour but
// never send twice on the same day.
func (w *Worker) due(now time.Time, manual bool) (bool, string) {
	if !w.remindersEnabled() {
		return false, "Streak reminders disabled"
	}
	today := stats.DayOf(now)
	if w.hasSent && w.lastSent == today {
		return false, fmt.Sprintf("Reminders already sent for %s", today)
	}
	if !manual && now.Hour() < w.cfg.Email.StreakReminder.Hour {
		return false, "Waiting for reminder hour"
	}
	return true, ""
}

// run executes a single worker cycle
func (w *Worker) run(ctx context.Context, manual bool) {
	ctx, span := observability.TraceWorkerFunction(ctx, "run",
		attribute.String("worker.instance", w.instance),
		attribute.Bool("worker.manual", manual),
	)
	defer observability.FinishSpan(span, nil)

	w.mu.RLock()
	paused := w.status.IsPaused
	w.mu.RUnlock()
	if paused {
		w.updateActivity("Paused")
		if manual {
			w.recordRunHistory(RunRecord{StartTime: w.timeNow(), EndTime: w.timeNow(), Status: "Skipped", Manual: true, Details: "Worker paused"})
		}
		return
	}

	now := w.timeNow().UTC()
	w.mu.RLock()
	ok, reason := w.due(now, manual)
	w.mu.RUnlock()
	if !ok {
		span.SetAttributes(attribute.String("worker.skip_reason", reason))
		w.updateActivity(reason)
		if manual {
			w.recordRunHistory(RunRecord{StartTime: now, EndTime: now, Status: "Skipped", Manual: true, Details: reason})
		}
		return
	}

	w.mu.Lock()
	w.status.LastRunStart = now
	w.status.CurrentActivity = "Sending streak reminders"
	w.mu.Unlock()

	result, err := w.reminders.SendStreakReminders(ctx, false)

	finish := w.timeNow().UTC()
	record := RunRecord{StartTime: now, EndTime: finish, Duration: finish.Sub(now), Manual: manual}

	w.mu.Lock()
	w.status.LastRunFinish = finish
	w.status.CurrentActivity = ""
	if err != nil {
		w.status.LastRunError = err.Error()
		record.Status = "Failure"
		record.Details = err.Error()
	} else {
		// Only a successful pass closes the day; a failed one is retried on the next tick.
		w.status.LastRunError = ""
		w.lastSent = stats.DayOf(now)
		w.hasSent = true
		w.status.LastSentDay = w.lastSent.String()
		record.Status = "Success"
		record.Details = fmt.Sprintf("candidates=%d sent=%d failed=%d", result.Candidates, result.Sent, result.Failed)
	}
	w.status.NextRun = w.nextRun(finish)
	w.mu.Unlock()

	if err != nil {
		w.logger.Error(ctx, "Streak reminder pass failed", err, map[string]interface{}{
			"instance": w.instance,
		})
		w.logActivity("ERROR", "Streak reminder pass failed: "+err.Error())
	} else {
		w.logger.Info(ctx, "Streak reminder pass finished", map[string]interface{}{
			"instance":   w.instance,
			"candidates": result.Candidates,
			"sent":       result.Sent,
			"failed":     result.Failed,
		})
		w.logActivity("INFO", "Streak reminders: "+record.Details)
	}
	w.recordRunHistory(record)
}

// recordRunHistory records the run in history and trims the slice
func (w *Worker) recordRunHistory(record RunRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.history = append(w.history, record)
	if len(w.history) > config.WorkerMaxHistory {
		w.history = w.history[len(w.history)-config.WorkerMaxHistory:]
	}
}

// GetStatus returns the current worker status
func (w *Worker) GetStatus() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// GetHistory returns the worker's run history
func (w *Worker) GetHistory() []RunRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	history := make([]RunRecord, len(w.history))
	copy(history, w.history)
	return history
}

// GetActivityLogs returns recent activity logs
func (w *Worker) GetActivityLogs() []ActivityLog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	logs := make([]ActivityLog, len(w.activityLogs))
	copy(logs, w.activityLogs)
	return logs
}

// GetInstance returns the worker instance name
func (w *Worker) GetInstance() string {
	return w.instance
}

// TriggerManualRun queues a manual run; a second trigger while one is pending is dropped
func (w *Worker) TriggerManualRun() {
	ctx := context.Background()
	select {
	case w.manualTrigger <- true:
		w.logger.Info(ctx, "Manual trigger sent to worker", map[string]interface{}{
			"instance": w.instance,
		})
	default:
		w.logger.Info(ctx, "Manual trigger already pending for worker", map[string]interface{}{
			"instance": w.instance,
		})
	}
}

// Pause stops scheduled passes until Resume
func (w *Worker) Pause(ctx context.Context) {
	w.mu.Lock()
	w.status.IsPaused = true
	w.mu.Unlock()
	w.logger.Info(ctx, "Worker paused", map[string]interface{}{
		"instance": w.instance,
	})
	w.logActivity("INFO", fmt.Sprintf("Worker %s paused", w.instance))
}

// Resume resumes the worker
func (w *Worker) Resume(ctx context.Context) {
	w.mu.Lock()
	w.status.IsPaused = false
	w.mu.Unlock()
	w.logger.Info(ctx, "Worker resumed", map[string]interface{}{
		"instance": w.instance,
	})
	w.logActivity("INFO", fmt.Sprintf("Worker %s resumed", w.instance))
}

// Shutdown stops the loop and waits for an in-flight pass to finish
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.RLock()
	cancel := w.cancel
	w.mu.RUnlock()
	if cancel == nil {
		return nil
	}

	w.logger.Info(ctx, "Worker starting shutdown", map[string]interface{}{
		"instance": w.instance,
	})
	cancel()

	select {
	case <-w.done:
	case <-ctx.Done():
		return contextutils.WrapError(ctx.Err(), "worker shutdown timed out")
	}

	w.logger.Info(ctx, "Worker shutdown completed", map[string]interface{}{
		"instance": w.instance,
	})
	return nil
}

func (w *Worker) updateActivity(activity string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.CurrentActivity = activity
}

// logActivity adds an activity log entry
func (w *Worker) logActivity(level, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.activityLogs = append(w.activityLogs, ActivityLog{
		Timestamp: w.timeNow(),
		Level:     level,
		Message:   message,
	})
	if len(w.activityLogs) > maxActivityLogs {
		w.activityLogs = w.activityLogs[len(w.activityLogs)-maxActivityLogs:]
	}
}
