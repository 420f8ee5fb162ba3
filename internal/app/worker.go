// File: internal/app/worker.go
package app

import (
	"fmt"
	"sync"

	"operationcode_backend/internal/jobs"
	"operationcode_backend/internal/onboarding"

	"go.uber.org/zap"
)

// Worker runs the onboarding jobs and the dead-letter sweep. It runs inside the HTTP
// server process or on its own through the worker subcommand.
type Worker struct {
	backend    jobs.Backend
	dispatcher *onboarding.Dispatcher
	sweepJob   *jobs.DeadLetterSweepJob
	logger     *zap.Logger

	mu      sync.Mutex
	started bool
}

func NewWorker(
	backend jobs.Backend,
	dispatcher *onboarding.Dispatcher,
	sweepJob *jobs.DeadLetterSweepJob,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		backend:    backend,
		dispatcher: dispatcher,
		sweepJob:   sweepJob,
		logger:     logger.Named("worker"),
	}
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	if err := w.dispatcher.RegisterHandlers(w.backend); err != nil {
		return fmt.Errorf("register onboarding handlers: %w", err)
	}
	if err := w.backend.Start(); err != nil {
		return fmt.Errorf("start job backend: %w", err)
	}
	if err := w.sweepJob.SetupAndStart(); err != nil {
		w.logger.Error("Failed to start dead letter sweep", zap.Error(err))
	}
	w.started = true
	w.logger.Info("Job worker started", zap.Strings("kinds", kindNames()))
	return nil
}

// Stop stops the sweep and shuts the backend down. The backend is shut down even when
// Start was never called, so an enqueue-only process still releases its connections.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		w.sweepJob.Stop()
	}
	w.backend.Shutdown()
	w.started = false
}

func kindNames() []string {
	names := make([]string, 0, len(onboarding.Kinds))
	for _, k := range onboarding.Kinds {
		names = append(names, string(k))
	}
	return names
}
