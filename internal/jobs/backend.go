// File: internal/jobs/backend.go
package jobs

import (
	"fmt"
	"strings"

	"operationcode_backend/internal/config"

	"go.uber.org/zap"
)

// NewBackend builds the backend selected by JOBS_BACKEND.
func NewBackend(cfg *config.Config, logger *zap.Logger) (Backend, error) {
	policy, err := ParsePolicy(cfg.JobsFailurePolicy, cfg.JobsMaxAttempts)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.JobsBackend) {
	case config.JobsBackendAsynq:
		redisOpt, err := RedisOptFromURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewAsynqBackend(redisOpt, AsynqOptions{
			Queue:       cfg.JobsQueue,
			Concurrency: cfg.JobsConcurrency,
			Timeout:     cfg.JobsTimeout,
			Policy:      policy,
		}, logger), nil
	case config.JobsBackendLocal, "":
		return NewLocalQueue(LocalOptions{
			Queue:   cfg.JobsQueue,
			Workers: cfg.JobsConcurrency,
			Buffer:  cfg.JobsLocalBuffer,
			Timeout: cfg.JobsTimeout,
			Policy:  policy,
		}, logger), nil
	default:
		return nil, fmt.Errorf("jobs: unknown backend %q", cfg.JobsBackend)
	}
}
