// Package main provides the entry point for the PrepX backend server.
// It sets up the HTTP server, database connections, middleware, and API routes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prepx/internal/config"
	"prepx/internal/di"
	"prepx/internal/handlers"
	"prepx/internal/middleware"
	"prepx/internal/observability"
	contextutils "prepx/internal/utils"
	"prepx/internal/version"
)

// Application encapsulates the main application logic and can be tested
type Application struct {
	container di.ServiceContainerInterface
	server    *http.Server
}

// NewApplication wires the HTTP router from the container's services
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	var deps handlers.RouterDeps
	var err error

	if deps.UserService, err = container.GetUserService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get user service")
	}
	if deps.QuestionService, err = container.GetQuestionService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get question service")
	}
	if deps.AttemptService, err = container.GetAttemptService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get attempt service")
	}
	if deps.StatsService, err = container.GetStatsService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get stats service")
	}
	if deps.LeaderboardService, err = container.GetLeaderboardService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get leaderboard service")
	}
	if deps.FollowService, err = container.GetFollowService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get follow service")
	}
	if deps.BookmarkService, err = container.GetBookmarkService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get bookmark service")
	}
	if deps.PostService, err = container.GetPostService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get post service")
	}
	if deps.SearchService, err = container.GetSearchService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get search service")
	}
	if deps.AdminService, err = container.GetAdminService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get admin service")
	}
	deps.AttemptLimiter = container.GetAttemptLimiter()

	cfg := container.GetConfig()
	if cfg.Server.ValidateResponses {
		deps.Schemas, err = middleware.LoadEmbeddedSchemas()
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to load response schemas")
		}
	}

	router := handlers.NewRouter(cfg, deps, container.GetLogger())

	return &Application{
		container: container,
		server: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  config.ServerReadTimeout,
			WriteTimeout: config.ServerWriteTimeout,
		},
	}, nil
}

// Run serves HTTP until the server is shut down or fails
func (a *Application) Run() error {
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return contextutils.WrapError(err, "server failed")
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the container's resources
func (a *Application) Shutdown(ctx context.Context) error {
	if err := a.server.Shutdown(ctx); err != nil {
		return contextutils.WrapError(err, "http server shutdown failed")
	}
	return a.container.Shutdown(ctx)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.OpenTelemetry.ServiceVersion = version.Version

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "prepx-backend", cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if sdkTP, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			if err := sdkTP.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
		_ = logger.Sync()
	}()

	logger.Info(ctx, "Starting PrepX backend", map[string]interface{}{
		"port":      cfg.Server.Port,
		"log_level": cfg.Server.LogLevel,
		"build":     version.Get("prepx").String(),
	})

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err)
		os.Exit(1)
	}

	if err := container.EnsureAdminUser(ctx); err != nil {
		logger.Error(ctx, "Failed to ensure admin user exists", err, map[string]interface{}{"admin_username": cfg.Server.AdminUsername})
		os.Exit(1)
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err)
		os.Exit(1)
	}

	appErr := make(chan error, 1)
	go func() {
		if err := app.Run(); err != nil {
			appErr <- err
		}
	}()

	select {
	case <-shutdownCh:
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully")
	case err := <-appErr:
		logger.Error(ctx, "Application failed", err)
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during application shutdown", err)
		os.Exit(1)
	}

	logger.Info(ctx, "Shutdown completed successfully")
}
