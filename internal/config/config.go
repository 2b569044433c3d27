// Package config handles application configuration loading from a YAML file and environment variables.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "prepx/internal/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default subjects offered when the config file does not list any
var DefaultSubjects = []string{
	"Aptitude",
	"Computer Networks",
	"DBMS",
	"Data Structures",
	"Operating Systems",
	"Programming",
	"Reasoning",
}

// Difficulties is the closed set of question difficulty levels
var Difficulties = []string{"easy", "medium", "hard"}

// AuthConfig represents authentication-related configuration
type AuthConfig struct {
	SignupsDisabled bool     `json:"signups_disabled" yaml:"signups_disabled"`
	AllowedDomains  []string `json:"allowed_domains,omitempty" yaml:"allowed_domains,omitempty"`
	AllowedEmails   []string `json:"allowed_emails,omitempty" yaml:"allowed_emails,omitempty"`
}

// SystemConfig represents system-wide configuration
type SystemConfig struct {
	Auth AuthConfig `json:"auth" yaml:"auth"`
}

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Quiz catalogue and engine settings
	Quiz QuizConfig `json:"quiz" yaml:"quiz"`

	// Leaderboard settings
	Leaderboard LeaderboardConfig `json:"leaderboard" yaml:"leaderboard"`

	// Attempt submission rate limiting
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`

	System *SystemConfig `json:"system,omitempty" yaml:"system,omitempty"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Email Configuration
	Email EmailConfig `json:"email" yaml:"email"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port              string   `json:"port" yaml:"port"`
	WorkerPort        string   `json:"worker_port" yaml:"worker_port"`
	AdminUsername     string   `json:"admin_username" yaml:"admin_username"`
	AdminEmail        string   `json:"admin_email" yaml:"admin_email"`
	AdminPassword     string   `json:"admin_password" yaml:"admin_password"`
	SessionSecret     string   `json:"session_secret" yaml:"session_secret"`
	Debug             bool     `json:"debug" yaml:"debug"`
	LogLevel          string   `json:"log_level" yaml:"log_level"`
	AppBaseURL        string   `json:"app_base_url" yaml:"app_base_url"`
	CORSOrigins       []string `json:"cors_origins" yaml:"cors_origins"`
	ValidateResponses bool     `json:"validate_responses" yaml:"validate_responses"`
}

// QuizConfig holds the question catalogue settings
type QuizConfig struct {
	Subjects        []string `json:"subjects" yaml:"subjects"`
	DefaultPageSize int      `json:"default_page_size" yaml:"default_page_size"`
	MaxPageSize     int      `json:"max_page_size" yaml:"max_page_size"`
}

// LeaderboardConfig holds ranking settings
type LeaderboardConfig struct {
	// SubjectMinAttempts is the number of weekly attempts in a subject needed to appear on its board
	SubjectMinAttempts int `json:"subject_min_attempts" yaml:"subject_min_attempts"`
	TopSummarySize     int `json:"top_summary_size" yaml:"top_summary_size"`
}

// RateLimitConfig configures the Redis-backed attempt limiter. An empty RedisURL disables it.
type RateLimitConfig struct {
	RedisURL          string `json:"redis_url" yaml:"redis_url"`
	AttemptsPerMinute int    `json:"attempts_per_minute" yaml:"attempts_per_minute"`
}

// Enabled reports whether rate limiting is configured
func (r RateLimitConfig) Enabled() bool {
	return r.RedisURL != "" && r.AttemptsPerMinute > 0
}

// IsSignupDisabled returns whether signups are disabled based on configuration
func (c *Config) IsSignupDisabled() bool {
	if c.System == nil {
		return false
	}
	return c.System.Auth.SignupsDisabled
}

// IsEmailAllowed checks if an email is allowed to sign up while signups are disabled
func (c *Config) IsEmailAllowed(email string) bool {
	if c.System == nil || c.System.Auth.AllowedEmails == nil {
		return false
	}

	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	for _, allowedEmail := range c.System.Auth.AllowedEmails {
		if strings.ToLower(strings.TrimSpace(allowedEmail)) == normalizedEmail {
			return true
		}
	}
	return false
}

// IsDomainAllowed checks if a domain is allowed to sign up while signups are disabled
func (c *Config) IsDomainAllowed(domain string) bool {
	if c.System == nil || c.System.Auth.AllowedDomains == nil {
		return false
	}

	normalizedDomain := strings.ToLower(strings.TrimSpace(domain))
	for _, allowedDomain := range c.System.Auth.AllowedDomains {
		if strings.ToLower(strings.TrimSpace(allowedDomain)) == normalizedDomain {
			return true
		}
	}
	return false
}

// IsSignupAllowed checks whether a registration with the given email may proceed
func (c *Config) IsSignupAllowed(email string) bool {
	if !c.IsSignupDisabled() {
		return true
	}

	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	if !contextutils.IsValidEmail(normalizedEmail) {
		return false
	}

	if c.IsEmailAllowed(normalizedEmail) {
		return true
	}

	parts := strings.Split(normalizedEmail, "@")
	return c.IsDomainAllowed(parts[1])
}

// IsValidSubject reports whether subject is one of the configured subjects
func (c *Config) IsValidSubject(subject string) bool {
	for _, s := range c.Quiz.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// IsValidDifficulty reports whether difficulty is one of easy, medium or hard
func IsValidDifficulty(difficulty string) bool {
	for _, d := range Difficulties {
		if d == difficulty {
			return true
		}
	}
	return false
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "http://localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "prepx-backend"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// EmailConfig represents email/SMTP configuration
type EmailConfig struct {
	SMTP           SMTPConfig           `json:"smtp" yaml:"smtp"`
	StreakReminder StreakReminderConfig `json:"streak_reminder" yaml:"streak_reminder"`
	Enabled        bool                 `json:"enabled" yaml:"enabled"`
}

// SMTPConfig represents SMTP server configuration
type SMTPConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password" yaml:"password"`
	FromAddress string `json:"from_address" yaml:"from_address"`
	FromName    string `json:"from_name" yaml:"from_name"`
}

// StreakReminderConfig configures the "keep your streak" email
type StreakReminderConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// MinStreak is the smallest current streak worth a reminder
	MinStreak int `json:"min_streak" yaml:"min_streak"`
	// Hour is the UTC hour at which the worker sends the day's reminders
	Hour int `json:"hour" yaml:"hour"`
}

// NewConfig loads a .env file if present, then the YAML config, then environment overrides
func NewConfig() (result0 *Config, err error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	return config, nil
}

// applyDefaults fills in zero values that have a sensible default
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.WorkerPort == "" {
		c.Server.WorkerPort = DefaultWorkerPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if len(c.Quiz.Subjects) == 0 {
		c.Quiz.Subjects = append([]string(nil), DefaultSubjects...)
	}
	if c.Quiz.DefaultPageSize <= 0 {
		c.Quiz.DefaultPageSize = DefaultPageSize
	}
	if c.Quiz.MaxPageSize <= 0 {
		c.Quiz.MaxPageSize = MaxPageSize
	}
	if c.Leaderboard.SubjectMinAttempts <= 0 {
		c.Leaderboard.SubjectMinAttempts = SubjectLeaderboardMinAttempts
	}
	if c.Leaderboard.TopSummarySize <= 0 {
		c.Leaderboard.TopSummarySize = 3
	}
	if c.RateLimit.AttemptsPerMinute == 0 {
		c.RateLimit.AttemptsPerMinute = DefaultAttemptsPerMinute
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = DatabaseConnMaxLifetime
	}
	if c.Email.StreakReminder.MinStreak <= 0 {
		c.Email.StreakReminder.MinStreak = 1
	}
	if c.Email.StreakReminder.Hour < 0 || c.Email.StreakReminder.Hour > 23 {
		c.Email.StreakReminder.Hour = DefaultStreakReminderHour
	}
	if c.OpenTelemetry.ServiceName == "" {
		c.OpenTelemetry.ServiceName = "prepx-backend"
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

// overrideStructFromEnvWithPrefix maps each yaml tag to an upper-case env key,
// nesting struct names as prefixes (database.url -> DATABASE_URL).
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Int64:
			envVal := os.Getenv(envKey)
			if envVal == "" {
				continue
			}
			if field.Type() == reflect.TypeOf(time.Duration(0)) {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
				continue
			}
			if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
				field.SetInt(intVal)
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				if field.Type().Elem().Kind() == reflect.String {
					parts := strings.Split(envVal, ",")
					for i := range parts {
						parts[i] = strings.TrimSpace(parts[i])
					}
					field.Set(reflect.ValueOf(parts))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file named by PREPX_CONFIG_FILE, or config.yaml.
// A missing default config.yaml is not an error; the environment alone can configure the server.
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv("PREPX_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
