package commands

import (
	"context"
	"fmt"
	"io"

	"prepx/internal/observability"
	"prepx/internal/services"

	"github.com/spf13/cobra"
)

// ReminderCommands returns the notification commands
func ReminderCommands(reminderService services.ReminderServiceInterface, logger *observability.Logger) *cobra.Command {
	remindersCmd := &cobra.Command{
		Use:   "reminders",
		Short: "Notification commands",
	}

	var dryRun bool
	streakCmd := &cobra.Command{
		Use:   "streak",
		Short: "Email users whose streak breaks unless they practice today",
		Long: `Email every active user who practiced yesterday but not yet today and has a running streak.
Meant to be run once a day from cron. Use --dry-run to list the candidates without sending.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStreakReminders(cmd.Context(), cmd.OutOrStdout(), reminderService, logger, dryRun)
		},
	}
	streakCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List candidates without sending")
	remindersCmd.AddCommand(streakCmd)

	return remindersCmd
}

func runStreakReminders(ctx context.Context, out io.Writer, reminderService services.ReminderServiceInterface, logger *observability.Logger, dryRun bool) error {
	if dryRun {
		candidates, err := reminderService.StreakReminderCandidates(ctx)
		if err != nil {
			return err
		}
		for _, u := range candidates {
			fmt.Fprintf(out, "%-20s %-30s streak %d\n", u.Username, u.Email, u.CurrentStreak)
		}
		fmt.Fprintf(out, "Candidates: %d (dry run, nothing sent)\n", len(candidates))
		return nil
	}

	run, err := reminderService.SendStreakReminders(ctx, false)
	if err != nil {
		logger.Error(ctx, "Streak reminders failed", err)
		return err
	}

	fmt.Fprintf(out, "Candidates: %d, sent: %d, failed: %d\n", run.Candidates, run.Sent, run.Failed)
	return nil
}
