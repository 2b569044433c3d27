package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/services"
	contextutils "prepx/internal/utils"

	"github.com/spf13/cobra"
)

// UserCommands returns the user management commands
func UserCommands(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands for PrepX.

Available commands:
  list           - List users
  reset-password - Reset password for a specific user
  ban            - Ban a user
  unban          - Lift a ban
  promote        - Grant the admin role`,
	}

	userCmd.AddCommand(listCmd(userService, logger))
	userCmd.AddCommand(resetPasswordCmd(userService, logger))
	userCmd.AddCommand(banCmd(userService, logger))
	userCmd.AddCommand(unbanCmd(userService, logger))
	userCmd.AddCommand(promoteCmd(userService, logger))

	return userCmd
}

func listCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	var search string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Long:  `List users with their role, ban state and practice counters, newest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListUsers(cmd.Context(), cmd.OutOrStdout(), userService, logger, search, limit)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Filter by username, email or full name")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of users to show")
	return cmd
}

func runListUsers(ctx context.Context, out io.Writer, userService services.UserServiceInterface, logger *observability.Logger, search string, limit int) error {
	users, total, err := userService.ListUsers(ctx, 1, limit, search)
	if err != nil {
		logger.Error(ctx, "Failed to list users", err, map[string]interface{}{"search": search})
		return contextutils.WrapError(err, "failed to list users")
	}

	if len(users) == 0 {
		fmt.Fprintln(out, "No users found")
		return nil
	}

	fmt.Fprintf(out, "%-5s %-20s %-30s %-6s %-7s %-9s %-7s %-10s\n", "ID", "Username", "Email", "Role", "Banned", "Attempted", "Streak", "Created")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for _, user := range users {
		banned := "no"
		if user.IsBanned {
			banned = "yes"
		}
		fmt.Fprintf(out, "%-5d %-20s %-30s %-6s %-7s %-9d %-7d %-10s\n",
			user.ID,
			user.Username,
			user.Email,
			user.Role,
			banned,
			user.TotalQuestionsAttempted,
			user.CurrentStreak,
			user.CreatedAt.Format("2006-01-02"),
		)
	}
	if total > len(users) {
		fmt.Fprintf(out, "... %d more\n", total-len(users))
	}

	logger.Info(ctx, "Listed users", map[string]interface{}{"shown": len(users), "total": total})
	return nil
}

func resetPasswordCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password [username]",
		Short: "Reset password for a user",
		Long:  `Reset the password for a specific user. If username is not provided, you will be prompted for it.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runResetPassword(userService, logger),
	}
}

func runResetPassword(userService services.UserServiceInterface, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var username string
		if len(args) > 0 {
			username = args[0]
		} else {
			fmt.Print("Enter username: ")
			if _, err := fmt.Scanln(&username); err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read username: %v", err)
			}
		}
		if username == "" {
			return contextutils.ErrorWithContextf("username is required")
		}

		fmt.Print("Enter new password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
		}
		fmt.Println()
		newPassword := string(passwordBytes)
		if len(newPassword) < 6 {
			return contextutils.ErrorWithContextf("password must be at least 6 characters")
		}

		fmt.Print("Confirm new password: ")
		confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password confirmation: %v", err)
		}
		fmt.Println()
		if newPassword != string(confirmBytes) {
			return contextutils.ErrorWithContextf("passwords do not match")
		}

		user, err := userService.GetUserByUsername(ctx, username)
		if err != nil {
			logger.Error(ctx, "Failed to get user", err, map[string]interface{}{"username": username})
			return contextutils.WrapErrorf(err, "failed to get user '%s'", username)
		}

		if err := userService.SetPassword(ctx, user.ID, newPassword); err != nil {
			logger.Error(ctx, "Failed to update password", err, map[string]interface{}{"username": username, "user_id": user.ID})
			return contextutils.WrapErrorf(err, "failed to update password for user '%s'", username)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Password reset for user '%s' (ID: %d)\n", username, user.ID)
		logger.Info(ctx, "Password reset successful", map[string]interface{}{"username": username, "user_id": user.ID})
		return nil
	}
}

func banCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "ban <username>",
		Short: "Ban a user",
		Long:  `Ban a user. Banned users cannot log in, their sessions stop working, and they disappear from leaderboards and search.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetBanned(cmd.Context(), cmd.OutOrStdout(), userService, logger, args[0], true, reason)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to admins")
	return cmd
}

func unbanCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "unban <username>",
		Short: "Lift a ban",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetBanned(cmd.Context(), cmd.OutOrStdout(), userService, logger, args[0], false, "")
		},
	}
}

func runSetBanned(ctx context.Context, out io.Writer, userService services.UserServiceInterface, logger *observability.Logger, username string, banned bool, reason string) error {
	user, err := userService.GetUserByUsername(ctx, username)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to get user '%s'", username)
	}
	if banned && user.IsAdmin() {
		return contextutils.ErrorWithContextf("user '%s' is an admin; demote before banning", username)
	}

	if err := userService.SetBanned(ctx, user.ID, banned, reason); err != nil {
		logger.Error(ctx, "Failed to update ban state", err, map[string]interface{}{"username": username, "banned": banned})
		return contextutils.WrapErrorf(err, "failed to update user '%s'", username)
	}

	action := "unbanned"
	if banned {
		action = "banned"
	}
	fmt.Fprintf(out, "User '%s' %s\n", username, action)
	logger.Info(ctx, "User ban state changed", map[string]interface{}{"username": username, "banned": banned})
	return nil
}

func promoteCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <username>",
		Short: "Grant the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPromote(cmd.Context(), cmd.OutOrStdout(), userService, logger, args[0])
		},
	}
}

func runPromote(ctx context.Context, out io.Writer, userService services.UserServiceInterface, logger *observability.Logger, username string) error {
	user, err := userService.GetUserByUsername(ctx, username)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to get user '%s'", username)
	}
	if user.IsAdmin() {
		fmt.Fprintf(out, "User '%s' is already an admin\n", username)
		return nil
	}

	if err := userService.SetRole(ctx, user.ID, models.RoleAdmin); err != nil {
		return contextutils.WrapErrorf(err, "failed to promote user '%s'", username)
	}

	fmt.Fprintf(out, "User '%s' is now an admin\n", username)
	logger.Info(ctx, "User promoted", map[string]interface{}{"username": username, "user_id": user.ID})
	return nil
}
