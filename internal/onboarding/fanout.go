package onboarding

import (
	"context"
	"time"

	"operationcode_backend/internal/jobs"

	"go.uber.org/zap"
)

const defaultEnqueueTimeout = 2 * time.Second

// Fanout enqueues the onboarding jobs for a newly registered user. It never reports
// failure to the caller: each enqueue error is logged and the remaining jobs still go out.
type Fanout struct {
	enqueuer jobs.Enqueuer
	timeout  time.Duration
	logger   *zap.Logger
}

func NewFanout(enqueuer jobs.Enqueuer, logger *zap.Logger) *Fanout {
	return &Fanout{
		enqueuer: enqueuer,
		timeout:  defaultEnqueueTimeout,
		logger:   logger.Named("onboarding_fanout"),
	}
}

// UserRegistered implements user.RegistrationListener.
func (f *Fanout) UserRegistered(ctx context.Context, email string) {
	// The request may finish before the queue answers; enqueueing must not be cut short by that.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	for _, kind := range Kinds {
		h, err := f.enqueuer.Enqueue(ctx, kind, Payload{Email: email})
		if err != nil {
			f.logger.Error("Could not enqueue onboarding job",
				zap.String("kind", string(kind)),
				zap.String("email", email),
				zap.Error(err))
			continue
		}
		f.logger.Debug("Enqueued onboarding job",
			zap.String("kind", string(kind)),
			zap.String("email", email),
			zap.String("job_id", h.ID))
	}
}
