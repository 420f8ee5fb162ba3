// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Job backend names accepted by JOBS_BACKEND.
const (
	JobsBackendLocal = "local"
	JobsBackendAsynq = "asynq"
)

// Config holds all configuration for the application. Duration fields are not
// decoded by viper; Load converts them from the integer *_SECONDS, *_MINUTES,
// *_HOURS and *_DAYS variables.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"-"`

	// Database Configuration
	DBDriver          string        `mapstructure:"DB_DRIVER"` // "postgres" or "sqlite"
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"`
	DBSource          string        `mapstructure:"DB_SOURCE"`
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// JWT Configuration
	JWTSecretKey                string        `mapstructure:"JWT_SECRET_KEY"`
	JWTAccessTokenExpiryMinutes time.Duration `mapstructure:"-"`
	JWTRefreshTokenExpiryDays   time.Duration `mapstructure:"-"`

	// Social login
	GoogleClientID        string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID      string `mapstructure:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret  string `mapstructure:"FACEBOOK_CLIENT_SECRET"`
	GithubClientID        string `mapstructure:"GITHUB_CLIENT_ID"`
	GithubClientSecret    string `mapstructure:"GITHUB_CLIENT_SECRET"`
	GithubAuthCallbackURL string `mapstructure:"GITHUB_AUTH_CALLBACK_URL"`
	SocialCallbackBaseURL string `mapstructure:"SOCIAL_CALLBACK_BASE_URL"`

	// Authorization
	ProfileAdminGroup string `mapstructure:"PROFILE_ADMIN_GROUP"`
	RateLimitAuth     string `mapstructure:"RATE_LIMIT_AUTH"` // ulule/limiter format, e.g. "20-M"

	// Background jobs
	JobsBackend                 string        `mapstructure:"JOBS_BACKEND"`
	JobsQueue                   string        `mapstructure:"JOBS_QUEUE"`
	JobsConcurrency             int           `mapstructure:"JOBS_CONCURRENCY"`
	JobsLocalBuffer             int           `mapstructure:"JOBS_LOCAL_BUFFER"`
	JobsFailurePolicy           string        `mapstructure:"JOBS_FAILURE_POLICY"` // "drop" or "retry"
	JobsMaxAttempts             int           `mapstructure:"JOBS_MAX_ATTEMPTS"`
	JobsTimeout                 time.Duration `mapstructure:"-"`
	JobsRunWorker               bool          `mapstructure:"JOBS_RUN_WORKER"`
	JobsDeadLetterSweepSchedule string        `mapstructure:"JOBS_DEAD_LETTER_SWEEP_SCHEDULE"`
	JobsDeadLetterRetention     time.Duration `mapstructure:"-"`
	RedisURL                    string        `mapstructure:"REDIS_URL"`
	ExternalHTTPTimeout         time.Duration `mapstructure:"-"`

	// Mail
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`

	// Chat invite bot
	PybotURL       string `mapstructure:"PYBOT_URL"`
	PybotAuthToken string `mapstructure:"PYBOT_AUTH_TOKEN"`

	// Mailing list
	MailchimpAPIKey  string `mapstructure:"MAILCHIMP_API_KEY"`
	MailchimpListID  string `mapstructure:"MAILCHIMP_LIST_ID"`
	MailchimpBaseURL string `mapstructure:"MAILCHIMP_BASE_URL"` // derived from the API key when empty
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.JWTAccessTokenExpiryMinutes = time.Duration(v.GetInt("JWT_ACCESS_TOKEN_EXPIRY_MINUTES")) * time.Minute
	cfg.JWTRefreshTokenExpiryDays = time.Duration(v.GetInt("JWT_REFRESH_TOKEN_EXPIRY_DAYS")) * 24 * time.Hour
	cfg.JobsTimeout = time.Duration(v.GetInt("JOBS_TIMEOUT_SECONDS")) * time.Second
	cfg.JobsDeadLetterRetention = time.Duration(v.GetInt("JOBS_DEAD_LETTER_RETENTION_HOURS")) * time.Hour
	cfg.ExternalHTTPTimeout = time.Duration(v.GetInt("EXTERNAL_HTTP_TIMEOUT_SECONDS")) * time.Second

	cfg.JobsBackend = strings.ToLower(strings.TrimSpace(cfg.JobsBackend))
	cfg.JobsFailurePolicy = strings.ToLower(strings.TrimSpace(cfg.JobsFailurePolicy))

	// GORM uses the param-based DSN for postgres; DB_SOURCE stays as-is for sqlite paths.
	if strings.EqualFold(cfg.DBDriver, "postgres") {
		cfg.DBSource = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode, cfg.DBTimezone)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "operationcode")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_SOURCE", "operationcode.db")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", 60)
	v.SetDefault("JWT_REFRESH_TOKEN_EXPIRY_DAYS", 7)

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("FACEBOOK_CLIENT_ID", "")
	v.SetDefault("FACEBOOK_CLIENT_SECRET", "")
	v.SetDefault("GITHUB_CLIENT_ID", "")
	v.SetDefault("GITHUB_CLIENT_SECRET", "")
	v.SetDefault("GITHUB_AUTH_CALLBACK_URL", "http://localhost:3000/login/github")
	v.SetDefault("SOCIAL_CALLBACK_BASE_URL", "http://localhost:3000/login")

	v.SetDefault("PROFILE_ADMIN_GROUP", "ProfileAdmin")
	v.SetDefault("RATE_LIMIT_AUTH", "30-M")

	v.SetDefault("JOBS_BACKEND", JobsBackendLocal)
	v.SetDefault("JOBS_QUEUE", "onboarding")
	v.SetDefault("JOBS_CONCURRENCY", 4)
	v.SetDefault("JOBS_LOCAL_BUFFER", 256)
	v.SetDefault("JOBS_FAILURE_POLICY", "drop")
	v.SetDefault("JOBS_MAX_ATTEMPTS", 3)
	v.SetDefault("JOBS_TIMEOUT_SECONDS", 30)
	v.SetDefault("JOBS_RUN_WORKER", true)
	v.SetDefault("JOBS_DEAD_LETTER_SWEEP_SCHEDULE", "@hourly")
	v.SetDefault("JOBS_DEAD_LETTER_RETENTION_HOURS", 72)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("EXTERNAL_HTTP_TIMEOUT_SECONDS", 10)

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "staff@operationcode.org")

	v.SetDefault("PYBOT_URL", "")
	v.SetDefault("PYBOT_AUTH_TOKEN", "")

	v.SetDefault("MAILCHIMP_API_KEY", "")
	v.SetDefault("MAILCHIMP_LIST_ID", "")
	v.SetDefault("MAILCHIMP_BASE_URL", "")
}

// Validate checks the settings that the process cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("JWT_SECRET_KEY is not set")
	}
	switch strings.ToLower(c.DBDriver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	switch strings.ToLower(c.JobsBackend) {
	case JobsBackendLocal:
	case JobsBackendAsynq:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is required when JOBS_BACKEND=%s", JobsBackendAsynq)
		}
	default:
		return fmt.Errorf("JOBS_BACKEND must be %q or %q, got %q", JobsBackendLocal, JobsBackendAsynq, c.JobsBackend)
	}
	switch strings.ToLower(c.JobsFailurePolicy) {
	case "drop", "retry":
	default:
		return fmt.Errorf("JOBS_FAILURE_POLICY must be drop or retry, got %q", c.JobsFailurePolicy)
	}
	if c.JobsConcurrency <= 0 {
		return fmt.Errorf("JOBS_CONCURRENCY must be positive")
	}
	return nil
}
