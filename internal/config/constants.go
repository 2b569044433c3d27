package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout    = 60 * time.Second
	ServerShutdownTimeout = 15 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	TestTimeout           = 100 * time.Millisecond

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Session timeouts
	SessionMaxAge = 7 * 24 * time.Hour // 7 days

	// Worker timing
	WorkerCheckInterval   = time.Minute
	WorkerShutdownTimeout = 10 * time.Second

	// Rate limiting window for attempt submissions
	RateLimitWindow = time.Minute
)

// Defaults applied when the config leaves a value unset
const (
	DefaultServerPort             = "8080"
	DefaultWorkerPort             = "8081"
	DefaultStreakReminderHour     = 18
	WorkerMaxHistory              = 50
	DefaultPageSize               = 20
	MaxPageSize                   = 100
	SubjectLeaderboardMinAttempts = 5
	DefaultAttemptsPerMinute      = 60
	SearchResultLimit             = 20
	SearchMinQueryLength          = 2
	ActivityGraphMaxMonths        = 12
)

// Session configuration constants
const (
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionSecure   = false // Set to true in production with HTTPS

	SessionName = "prepx-session"
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data: https:;"
)
