package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndDurations(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("JOBS_TIMEOUT_SECONDS", "12")
	t.Setenv("SERVER_TIMEOUT_SECONDS", "15")
	t.Setenv("EXTERNAL_HTTP_TIMEOUT_SECONDS", "3")
	t.Setenv("JWT_REFRESH_TOKEN_EXPIRY_DAYS", "2")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.ServerPort)
	assert.Equal(t, 15*time.Second, cfg.ServerTimeout)
	assert.Equal(t, 60*time.Minute, cfg.JWTAccessTokenExpiryMinutes)
	assert.Equal(t, 2*24*time.Hour, cfg.JWTRefreshTokenExpiryDays)
	assert.Equal(t, 12*time.Second, cfg.JobsTimeout)
	assert.Equal(t, 72*time.Hour, cfg.JobsDeadLetterRetention)
	assert.Equal(t, 3*time.Second, cfg.ExternalHTTPTimeout)
	assert.Equal(t, JobsBackendLocal, cfg.JobsBackend)
	assert.Equal(t, "ProfileAdmin", cfg.ProfileAdminGroup)
	assert.Contains(t, cfg.DBSource, "host=db.internal")
}

func TestLoad_NormalizesJobsSettings(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("JOBS_BACKEND", " LOCAL ")
	t.Setenv("JOBS_FAILURE_POLICY", "Retry")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, JobsBackendLocal, cfg.JobsBackend)
	assert.Equal(t, "retry", cfg.JobsFailurePolicy)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET_KEY")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			JWTSecretKey:      "secret",
			DBDriver:          "sqlite",
			JobsBackend:       JobsBackendLocal,
			JobsFailurePolicy: "drop",
			JobsConcurrency:   1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid local", func(*Config) {}, ""},
		{"asynq with redis", func(c *Config) { c.JobsBackend = JobsBackendAsynq; c.RedisURL = "redis://localhost:6379/0" }, ""},
		{"asynq without redis", func(c *Config) { c.JobsBackend = JobsBackendAsynq }, "REDIS_URL"},
		{"unknown backend", func(c *Config) { c.JobsBackend = "sqs" }, "JOBS_BACKEND"},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, "DB_DRIVER"},
		{"unknown policy", func(c *Config) { c.JobsFailurePolicy = "forever" }, "JOBS_FAILURE_POLICY"},
		{"no workers", func(c *Config) { c.JobsConcurrency = 0 }, "JOBS_CONCURRENCY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
