package handlers

import (
	"net/http"

	"prepx/internal/config"
	"prepx/internal/middleware"
	"prepx/internal/observability"
	"prepx/internal/ratelimit"
	"prepx/internal/services"
	"prepx/internal/version"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// IMPORTANT: When adding new API endpoints, make sure to:
// 1. Add a route entry (and schema if the body is new) to middleware/schemas/api.yaml
// 2. Update any relevant tests
// 3. Consider if the endpoint should be public or admin-only

// RouterDeps are the services and optional components the API is built from
type RouterDeps struct {
	UserService        services.UserServiceInterface
	QuestionService    services.QuestionServiceInterface
	AttemptService     services.AttemptServiceInterface
	StatsService       services.StatsServiceInterface
	LeaderboardService services.LeaderboardServiceInterface
	FollowService      services.FollowServiceInterface
	BookmarkService    services.BookmarkServiceInterface
	PostService        services.PostServiceInterface
	SearchService      services.SearchServiceInterface
	AdminService       services.AdminServiceInterface

	// AttemptLimiter may be nil, which disables attempt rate limiting
	AttemptLimiter *ratelimit.Limiter
	// Schemas may be nil, which disables response validation
	Schemas *middleware.SchemaLoader
}

// NewRouter creates the gin engine with all middleware and routes
func NewRouter(cfg *config.Config, deps RouterDeps, logger *observability.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger, "/health"))
	router.Use(middleware.ErrorRecoveryMiddleware(logger))

	// Health check endpoint (defined before tracing and sessions)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "prepx"})
	})

	router.Use(observability.GinMiddleware("prepx"))
	router.Use(observability.SpanErrorAttributes())

	if cfg.Server.ValidateResponses && deps.Schemas != nil {
		router.Use(middleware.ResponseValidationMiddleware(deps.Schemas, logger))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Requested-With", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
		sessionOpts.Secure = true
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.IsDevelopment = cfg.Server.Debug
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	authHandler := NewAuthHandler(deps.UserService, cfg, logger)
	userHandler := NewUserHandler(deps.UserService, deps.FollowService, deps.PostService, deps.AttemptService, cfg, logger)
	questionHandler := NewQuestionHandler(deps.QuestionService, deps.AttemptService, deps.BookmarkService, cfg, logger)
	statsHandler := NewStatsHandler(deps.StatsService, cfg, logger)
	leaderboardHandler := NewLeaderboardHandler(deps.LeaderboardService, cfg, logger)
	postHandler := NewPostHandler(deps.PostService, cfg, logger)
	socialHandler := NewSocialHandler(deps.BookmarkService, deps.FollowService, deps.SearchService, cfg, logger)
	adminHandler := NewAdminHandlerWithLogger(deps.AdminService, deps.UserService, deps.AttemptService, deps.PostService, cfg, logger)
	routeListing := NewRouteListingHandler("prepx")

	requireAuth := middleware.RequireAuth(deps.UserService)
	requireAdmin := middleware.RequireAdmin()

	api := router.Group("/api")
	{
		api.GET("/version", func(c *gin.Context) {
			middleware.Respond(c, http.StatusOK, version.Get("prepx"), "")
		})

		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("/me", userHandler.GetMe)
			users.PUT("/me", userHandler.UpdateMe)
			users.PUT("/me/password", userHandler.ChangePassword)
			users.GET("/me/attempts", userHandler.ListMyAttempts)
			// :user is a username for profiles and posts and a numeric id for follow lists
			users.GET("/:user", userHandler.GetProfile)
			users.GET("/:user/posts", userHandler.ListPosts)
			users.GET("/:user/followers", userHandler.ListFollowers)
			users.GET("/:user/following", userHandler.ListFollowing)
		}

		questions := api.Group("/questions")
		questions.Use(requireAuth)
		{
			questions.GET("", questionHandler.ListQuestions)
			questions.GET("/subjects", questionHandler.GetSubjects)
			questions.GET("/random", questionHandler.GetRandomQuestion)
			questions.GET("/:id", questionHandler.GetQuestion)
			questions.POST("/:id/attempt", middleware.AttemptRateLimit(deps.AttemptLimiter), questionHandler.SubmitAttempt)
			questions.POST("", requireAdmin, questionHandler.CreateQuestion)
			questions.PUT("/:id", requireAdmin, questionHandler.UpdateQuestion)
			questions.DELETE("/:id", requireAdmin, questionHandler.DeleteQuestion)
		}

		stats := api.Group("/stats")
		stats.Use(requireAuth)
		{
			stats.GET("/today", statsHandler.GetToday)
			stats.GET("/week", statsHandler.GetWeek)
			stats.GET("/month", statsHandler.GetMonth)
			stats.GET("/activity-graph", statsHandler.GetActivityGraph)
			stats.GET("/overall", statsHandler.GetOverall)
		}

		leaderboard := api.Group("/leaderboard")
		leaderboard.Use(requireAuth)
		{
			leaderboard.GET("/global", leaderboardHandler.GetGlobal)
			leaderboard.GET("/weekly", leaderboardHandler.GetWeekly)
			leaderboard.GET("/subject/:subject", leaderboardHandler.GetSubject)
			leaderboard.GET("/friends", leaderboardHandler.GetFriends)
			leaderboard.GET("/summary", leaderboardHandler.GetSummary)
		}

		posts := api.Group("/posts")
		posts.Use(requireAuth)
		{
			posts.POST("", postHandler.CreatePost)
			posts.GET("/feed", postHandler.GetFeed)
			posts.GET("/:id", postHandler.GetPost)
			posts.DELETE("/:id", postHandler.DeletePost)
			posts.POST("/:id/like", postHandler.LikePost)
			posts.DELETE("/:id/like", postHandler.UnlikePost)
			posts.GET("/:id/comments", postHandler.ListComments)
			posts.POST("/:id/comments", postHandler.AddComment)
			posts.DELETE("/:id/comments/:commentId", postHandler.DeleteComment)
		}

		bookmarks := api.Group("/bookmarks")
		bookmarks.Use(requireAuth)
		{
			bookmarks.POST("", socialHandler.AddBookmark)
			bookmarks.GET("", socialHandler.ListBookmarks)
			bookmarks.DELETE("/:questionId", socialHandler.RemoveBookmark)
		}

		follow := api.Group("/follow")
		follow.Use(requireAuth)
		{
			follow.POST("/:userId", socialHandler.Follow)
			follow.DELETE("/:userId", socialHandler.Unfollow)
			follow.GET("/:userId/status", socialHandler.FollowStatus)
		}

		api.GET("/search", requireAuth, socialHandler.Search)

		admin := api.Group("/admin")
		admin.Use(requireAuth, requireAdmin)
		{
			admin.GET("/dashboard", adminHandler.GetDashboard)
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/ban", adminHandler.BanUser)
			admin.PUT("/users/:id/unban", adminHandler.UnbanUser)
			admin.PUT("/users/:id/role", adminHandler.ChangeRole)
			admin.DELETE("/users/:id/attempts", adminHandler.ClearAttempts)
			admin.GET("/questions", questionHandler.AdminListQuestions)
			admin.PUT("/questions/:id/restore", questionHandler.RestoreQuestion)
			admin.DELETE("/posts/:id", adminHandler.DeletePost)
			admin.GET("/routes", routeListing.GetRouteListingJSON)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		middleware.Respond(c, http.StatusNotFound, nil, "Not found")
	})

	routeListing.CollectRoutes(router)

	return router
}
