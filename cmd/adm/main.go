// Package main provides the PrepX admin CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"prepx/cmd/adm/commands"
	"prepx/internal/config"
	"prepx/internal/database"
	"prepx/internal/observability"
	"prepx/internal/services"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	if os.Getenv("PREPX_CONFIG_FILE") == "" {
		for _, path := range []string{"config.yaml", "../config.yaml", "../../config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				if err := os.Setenv("PREPX_CONFIG_FILE", path); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to set PREPX_CONFIG_FILE environment variable: %v\n", err)
					os.Exit(1)
				}
				break
			}
		}
	}

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The CLI talks to the terminal; keep OpenTelemetry off to avoid collector connection errors
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "prepx-admin", "error")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	// No migrations here; `db migrate` applies them explicitly
	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err, map[string]interface{}{"db_url": commands.MaskDatabaseURL(cfg.Database.URL)})
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	userService := services.NewUserServiceWithLogger(db, cfg, logger)
	questionService := services.NewQuestionServiceWithLogger(db, cfg, logger)
	attemptService := services.NewAttemptServiceWithLogger(db, cfg, logger)
	reminderService := services.NewReminderServiceWithLogger(db, cfg, logger, services.NewEmailService(cfg, logger))

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "PrepX administration tool",
		Long: `PrepX administration tool

Commands for user management, database maintenance and scheduled notifications.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.UserCommands(userService, logger))
	rootCmd.AddCommand(commands.DatabaseCommands(db, dbManager, commands.DatabaseServices{
		Users:     userService,
		Questions: questionService,
		Attempts:  attemptService,
	}, cfg, logger))
	rootCmd.AddCommand(commands.ReminderCommands(reminderService, logger))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
