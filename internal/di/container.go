// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"prepx/internal/config"
	"prepx/internal/database"
	"prepx/internal/observability"
	"prepx/internal/ratelimit"
	"prepx/internal/services"
	contextutils "prepx/internal/utils"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetUserService() (services.UserServiceInterface, error)
	GetQuestionService() (services.QuestionServiceInterface, error)
	GetAttemptService() (services.AttemptServiceInterface, error)
	GetStatsService() (services.StatsServiceInterface, error)
	GetLeaderboardService() (services.LeaderboardServiceInterface, error)
	GetFollowService() (services.FollowServiceInterface, error)
	GetBookmarkService() (services.BookmarkServiceInterface, error)
	GetPostService() (services.PostServiceInterface, error)
	GetSearchService() (services.SearchServiceInterface, error)
	GetAdminService() (services.AdminServiceInterface, error)
	GetEmailService() (services.EmailServiceInterface, error)
	GetReminderService() (services.ReminderServiceInterface, error)
	GetAttemptLimiter() *ratelimit.Limiter
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	EnsureAdminUser(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	limiter       *ratelimit.Limiter
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize opens the database (running migrations) and sets up all services
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.InitDBWithConfig(sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	return sc.initialize(ctx)
}

// InitializeWithDB sets up all services on an already open database.
// The container does not close db on shutdown.
func (sc *ServiceContainer) InitializeWithDB(ctx context.Context, db *sql.DB) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.db = db
	return sc.initialize(ctx)
}

func (sc *ServiceContainer) initialize(ctx context.Context) error {
	if err := sc.initializeRateLimiter(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return err
	}

	sc.initializeServices(ctx)

	if err := sc.startupServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to startup services")
	}
	return nil
}

func (sc *ServiceContainer) initializeRateLimiter(ctx context.Context) error {
	limiter, client, err := ratelimit.NewFromConfig(sc.cfg.RateLimit, sc.logger)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize rate limiter")
	}
	if limiter == nil {
		sc.logger.Info(ctx, "Attempt rate limiting disabled")
		return nil
	}

	sc.limiter = limiter
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return client.Close()
	})
	sc.logger.Info(ctx, "Attempt rate limiting enabled", map[string]interface{}{
		"attempts_per_minute": sc.cfg.RateLimit.AttemptsPerMinute,
	})
	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetUserService returns the user service
func (sc *ServiceContainer) GetUserService() (services.UserServiceInterface, error) {
	return GetServiceAs[services.UserServiceInterface](sc, "user")
}

// GetQuestionService returns the question service
func (sc *ServiceContainer) GetQuestionService() (services.QuestionServiceInterface, error) {
	return GetServiceAs[services.QuestionServiceInterface](sc, "question")
}

// GetAttemptService returns the attempt service
func (sc *ServiceContainer) GetAttemptService() (services.AttemptServiceInterface, error) {
	return GetServiceAs[services.AttemptServiceInterface](sc, "attempt")
}

// GetStatsService returns the stats service
func (sc *ServiceContainer) GetStatsService() (services.StatsServiceInterface, error) {
	return GetServiceAs[services.StatsServiceInterface](sc, "stats")
}

// GetLeaderboardService returns the leaderboard service
func (sc *ServiceContainer) GetLeaderboardService() (services.LeaderboardServiceInterface, error) {
	return GetServiceAs[services.LeaderboardServiceInterface](sc, "leaderboard")
}

// GetFollowService returns the follow service
func (sc *ServiceContainer) GetFollowService() (services.FollowServiceInterface, error) {
	return GetServiceAs[services.FollowServiceInterface](sc, "follow")
}

// GetBookmarkService returns the bookmark service
func (sc *ServiceContainer) GetBookmarkService() (services.BookmarkServiceInterface, error) {
	return GetServiceAs[services.BookmarkServiceInterface](sc, "bookmark")
}

// GetPostService returns the post service
func (sc *ServiceContainer) GetPostService() (services.PostServiceInterface, error) {
	return GetServiceAs[services.PostServiceInterface](sc, "post")
}

// GetSearchService returns the search service
func (sc *ServiceContainer) GetSearchService() (services.SearchServiceInterface, error) {
	return GetServiceAs[services.SearchServiceInterface](sc, "search")
}

// GetAdminService returns the admin service
func (sc *ServiceContainer) GetAdminService() (services.AdminServiceInterface, error) {
	return GetServiceAs[services.AdminServiceInterface](sc, "admin")
}

// GetEmailService returns the email service
func (sc *ServiceContainer) GetEmailService() (services.EmailServiceInterface, error) {
	return GetServiceAs[services.EmailServiceInterface](sc, "email")
}

// GetReminderService returns the streak reminder service
func (sc *ServiceContainer) GetReminderService() (services.ReminderServiceInterface, error) {
	return GetServiceAs[services.ReminderServiceInterface](sc, "reminder")
}

// GetAttemptLimiter returns the attempt rate limiter, or nil when rate limiting is disabled
func (sc *ServiceContainer) GetAttemptLimiter() *ratelimit.Limiter {
	return sc.limiter
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// startupServices starts all services that implement the Lifecycle interface
func (sc *ServiceContainer) startupServices(ctx context.Context) error {
	for name, service := range sc.services {
		if lifecycleService, ok := service.(interface{ Startup(context.Context) error }); ok {
			sc.logger.Info(ctx, "Starting service", map[string]interface{}{"service": name})
			if err := lifecycleService.Startup(ctx); err != nil {
				return contextutils.WrapErrorf(err, "failed to startup service %s", name)
			}
		}
	}
	return nil
}

// cleanup handles shutdown of all services
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errors []error

	for name, service := range sc.services {
		if lifecycleService, ok := service.(interface{ Shutdown(context.Context) error }); ok {
			sc.logger.Info(ctx, "Shutting down service", map[string]interface{}{"service": name})
			if err := lifecycleService.Shutdown(ctx); err != nil {
				sc.logger.Error(ctx, "Failed to shutdown service", err, map[string]interface{}{"service": name})
				errors = append(errors, contextutils.WrapErrorf(err, "service %s shutdown failed", name))
			}
		}
	}

	// Reverse order of initialization
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			errors = append(errors, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errors) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errors)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(_ context.Context) {
	userService := services.NewUserServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services["user"] = userService

	sc.services["question"] = services.NewQuestionServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services["attempt"] = services.NewAttemptServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services["stats"] = services.NewStatsServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services["leaderboard"] = services.NewLeaderboardServiceWithLogger(sc.db, sc.cfg, sc.logger)

	sc.services["follow"] = services.NewFollowServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services["bookmark"] = services.NewBookmarkServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services["post"] = services.NewPostServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services["search"] = services.NewSearchServiceWithLogger(sc.db, sc.cfg, sc.logger)

	// Admin actions go through the user service for ban and role writes
	sc.services["admin"] = services.NewAdminServiceWithLogger(sc.db, sc.cfg, sc.logger, userService)

	emailService := services.NewEmailService(sc.cfg, sc.logger)
	sc.services["email"] = emailService
	sc.services["reminder"] = services.NewReminderServiceWithLogger(sc.db, sc.cfg, sc.logger, emailService)
}

// EnsureAdminUser creates the configured admin account if it doesn't exist
func (sc *ServiceContainer) EnsureAdminUser(ctx context.Context) error {
	if sc.cfg.Server.AdminUsername == "" || sc.cfg.Server.AdminPassword == "" {
		sc.logger.Warn(ctx, "Admin credentials not configured, skipping admin bootstrap")
		return nil
	}

	userService, err := sc.GetUserService()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to get user service")
	}

	return userService.EnsureAdminUserExists(ctx, sc.cfg.Server.AdminUsername, sc.cfg.Server.AdminEmail, sc.cfg.Server.AdminPassword)
}
