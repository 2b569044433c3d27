// Package commands provides CLI commands for the admin tool
package commands

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"prepx/internal/config"
	"prepx/internal/database"
	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/services"
	contextutils "prepx/internal/utils"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DatabaseServices are the services the db commands operate through
type DatabaseServices struct {
	Users     services.UserServiceInterface
	Questions services.QuestionServiceInterface
	Attempts  services.AttemptServiceInterface
}

// DatabaseCommands returns the database management commands
func DatabaseCommands(db *sql.DB, dbManager *database.Manager, svc DatabaseServices, cfg *config.Config, logger *observability.Logger) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for PrepX.

Available commands:
  status         - Show connection and migration state
  migrate        - Apply pending schema migrations
  seed           - Import questions from a YAML file
  clear-attempts - Delete a user's attempt history and reset their counters
  reset          - Drop all data, re-run migrations and recreate the admin`,
	}

	dbCmd.AddCommand(statusCmd(db, dbManager, logger))
	dbCmd.AddCommand(migrateCmd(db, dbManager, logger))
	dbCmd.AddCommand(seedCmd(svc, logger))
	dbCmd.AddCommand(clearAttemptsCmd(svc, logger))
	dbCmd.AddCommand(resetCmd(db, dbManager, svc, cfg, logger))

	return dbCmd
}

func statusCmd(db *sql.DB, dbManager *database.Manager, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection and migration state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			version, dirty, err := dbManager.MigrationVersion(db)
			if err != nil {
				logger.Error(ctx, "Failed to read migration version", err)
				return contextutils.WrapError(err, "failed to read migration version")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database:  %s\n", describeDatabase(ctx, db))
			fmt.Fprintf(out, "Migration: %d", version)
			if dirty {
				fmt.Fprint(out, " (dirty)")
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func migrateCmd(db *sql.DB, dbManager *database.Manager, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger.Info(ctx, "Running migrations", map[string]interface{}{"config_file": os.Getenv("PREPX_CONFIG_FILE")})

			if err := dbManager.RunMigrations(db); err != nil {
				logger.Error(ctx, "Migration failed", err)
				return contextutils.WrapError(err, "migration failed")
			}

			version, _, err := dbManager.MigrationVersion(db)
			if err != nil {
				return contextutils.WrapError(err, "failed to read migration version")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database migrated to version %d\n", version)
			return nil
		},
	}
}

// questionSeed is the layout of a seed file
type questionSeed struct {
	Questions []models.QuestionInput `yaml:"questions"`
}

// ParseQuestionSeed decodes a seed file. Unknown keys are rejected so typos do not silently drop fields.
func ParseQuestionSeed(r io.Reader) ([]models.QuestionInput, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed questionSeed
	if err := dec.Decode(&seed); err != nil {
		if err == io.EOF {
			return nil, contextutils.ErrorWithContextf("seed file is empty")
		}
		return nil, contextutils.WrapError(err, "failed to parse seed file")
	}
	if len(seed.Questions) == 0 {
		return nil, contextutils.ErrorWithContextf("seed file has no questions")
	}
	return seed.Questions, nil
}

func seedCmd(svc DatabaseServices, logger *observability.Logger) *cobra.Command {
	var adminUsername string

	cmd := &cobra.Command{
		Use:   "seed <questions.yaml>",
		Short: "Import questions from a YAML file",
		Long: `Import questions from a YAML file with a top-level "questions" list.
The import is all-or-nothing: one invalid question rejects the whole file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to open %s", args[0])
			}
			defer f.Close()

			return runSeed(cmd.Context(), cmd.OutOrStdout(), f, svc, logger, adminUsername)
		},
	}
	cmd.Flags().StringVar(&adminUsername, "created-by", "", "Username recorded as the questions' author")
	return cmd
}

func runSeed(ctx context.Context, out io.Writer, r io.Reader, svc DatabaseServices, logger *observability.Logger, createdByUsername string) error {
	inputs, err := ParseQuestionSeed(r)
	if err != nil {
		return err
	}

	createdBy := 0
	if createdByUsername != "" {
		user, err := svc.Users.GetUserByUsername(ctx, createdByUsername)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to get user '%s'", createdByUsername)
		}
		createdBy = user.ID
	}

	count, err := svc.Questions.ImportQuestions(ctx, createdBy, inputs)
	if err != nil {
		logger.Error(ctx, "Seed failed", err, map[string]interface{}{"questions": len(inputs)})
		return contextutils.WrapError(err, "seed failed")
	}

	fmt.Fprintf(out, "Imported %d questions\n", count)
	return nil
}

func clearAttemptsCmd(svc DatabaseServices, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-attempts <username>",
		Short: "Delete a user's attempt history and reset their counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClearAttempts(cmd.Context(), cmd.OutOrStdout(), svc, logger, args[0])
		},
	}
}

func runClearAttempts(ctx context.Context, out io.Writer, svc DatabaseServices, logger *observability.Logger, username string) error {
	user, err := svc.Users.GetUserByUsername(ctx, username)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to get user '%s'", username)
	}

	deleted, err := svc.Attempts.ClearAttempts(ctx, user.ID)
	if err != nil {
		logger.Error(ctx, "Failed to clear attempts", err, map[string]interface{}{"username": username})
		return contextutils.WrapErrorf(err, "failed to clear attempts for '%s'", username)
	}

	fmt.Fprintf(out, "Deleted %d attempts for '%s'\n", deleted, username)
	logger.Info(ctx, "Attempts cleared", map[string]interface{}{"username": username, "user_id": user.ID, "deleted": deleted})
	return nil
}

func resetCmd(db *sql.DB, dbManager *database.Manager, svc DatabaseServices, cfg *config.Config, logger *observability.Logger) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop all data, re-run migrations and recreate the admin",
		Long: `Permanently deletes every user, question, attempt and post, then rebuilds
the schema from migrations. Intended for local development only.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "This will PERMANENTLY DELETE ALL DATA in the database!")
			fmt.Fprintf(out, "URL: %s\n", MaskDatabaseURL(cfg.Database.URL))
			if !yes && !confirmReset(cmd.InOrStdin(), out) {
				fmt.Fprintln(out, "Reset cancelled.")
				return nil
			}

			logger.Warn(ctx, "Resetting database", map[string]interface{}{"db_url": MaskDatabaseURL(cfg.Database.URL)})
			if err := dbManager.ResetSchema(db); err != nil {
				return contextutils.WrapError(err, "database reset failed")
			}
			fmt.Fprintln(out, "Schema recreated")

			if cfg.Server.AdminUsername == "" || cfg.Server.AdminPassword == "" {
				fmt.Fprintln(out, "No admin configured, skipping admin user")
				return nil
			}
			if err := svc.Users.EnsureAdminUserExists(ctx, cfg.Server.AdminUsername, cfg.Server.AdminEmail, cfg.Server.AdminPassword); err != nil {
				return contextutils.WrapError(err, "failed to recreate admin user")
			}
			fmt.Fprintf(out, "Admin user '%s' recreated\n", cfg.Server.AdminUsername)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	return cmd
}

// confirmReset asks until the answer is yes or no
func confirmReset(in io.Reader, out io.Writer) bool {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "Type 'yes' to continue or 'no' to cancel: ")
		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "yes":
			return true
		case "no", "n":
			return false
		}
		if err != nil {
			return false
		}
	}
}
