// Package main provides the entry point for the PrepX worker service, which
// sends the daily streak reminder emails and serves a small admin API.
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
	"prepx/internal/database"
	"prepx/internal/handlers"
	"prepx/internal/observability"
	"prepx/internal/services"
	"prepx/internal/version"
	"prepx/internal/worker"
)

// fatalIfErr logs the error with context and exits
func fatalIfErr(ctx context.Context, logger *observability.Logger, msg string, err error, fields map[string]interface{}) {
	logger.Error(ctx, msg, err, fields)
	_ = logger.Sync()
	os.Exit(1)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.OpenTelemetry.ServiceVersion = version.Version

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "prepx-worker", cfg.Server.LogLevel)
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

	logger.Info(ctx, "Starting PrepX worker service", map[string]interface{}{
		"port":          cfg.Server.WorkerPort,
		"log_level":     cfg.Server.LogLevel,
		"reminder_hour": cfg.Email.StreakReminder.Hour,
	})

	// Migrations are owned by the API server
	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		fatalIfErr(ctx, logger, "Failed to initialize database", err, nil)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database", map[string]interface{}{"error": err.Error()})
		}
	}()

	userService := services.NewUserServiceWithLogger(db, cfg, logger)
	emailService := services.NewEmailService(cfg, logger)
	reminderService := services.NewReminderServiceWithLogger(db, cfg, logger, emailService)

	hostname, _ := os.Hostname()
	workerInstance := worker.NewWorker(reminderService, hostname, cfg, logger)
	go workerInstance.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.WorkerPort,
		Handler:      handlers.NewWorkerRouter(cfg, userService, workerInstance, logger),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Worker server starting", map[string]interface{}{"port": cfg.Server.WorkerPort})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info(ctx, "Worker server shutting down", map[string]interface{}{"service": "worker"})
	case err := <-serverErr:
		logger.Error(ctx, "Worker server failed", err, map[string]interface{}{"port": cfg.Server.WorkerPort})
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.WorkerShutdownTimeout)
	defer shutdownCancel()

	// Stop the worker first so an in-flight pass finishes with the database still open
	if err := workerInstance.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Warning: failed to shutdown worker", map[string]interface{}{"error": err.Error(), "service": "worker"})
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Worker server forced to shutdown", map[string]interface{}{"error": err.Error(), "service": "worker"})
	}

	logger.Info(ctx, "Worker server exited", map[string]interface{}{"service": "worker"})
}
