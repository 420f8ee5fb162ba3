// File: internal/jobs/job.go
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names a job type. Handlers are registered per kind.
type Kind string

var (
	ErrQueueFull     = errors.New("jobs: queue is full")
	ErrQueueClosed   = errors.New("jobs: queue is shut down")
	ErrUnknownKind   = errors.New("jobs: no handler registered for kind")
	ErrDuplicateKind = errors.New("jobs: handler already registered for kind")
)

// Handle identifies an enqueued job.
type Handle struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Queue      string    `json:"queue"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// HandlerFunc processes one job payload. It reports how the attempt went instead of
// returning an error so the backend can apply the failure policy uniformly.
type HandlerFunc func(ctx context.Context, payload []byte) Outcome

// Enqueuer submits jobs. Enqueue must not block on job execution.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind Kind, payload any) (*Handle, error)
}

// Registrar binds handlers to job kinds.
type Registrar interface {
	Handle(kind Kind, fn HandlerFunc) error
}

// DeadLetterSweeper removes dead letters older than retention.
type DeadLetterSweeper interface {
	SweepDeadLetters(ctx context.Context, retention time.Duration) (int, error)
}

// Backend is a complete job queue: producer side, consumer side and housekeeping.
type Backend interface {
	Enqueuer
	Registrar
	DeadLetterSweeper
	Start() error
	Shutdown()
}

func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("jobs: encode payload: %w", err)
		}
		return b, nil
	}
}

func newHandle(kind Kind, queue string) Handle {
	return Handle{
		ID:         uuid.NewString(),
		Kind:       kind,
		Queue:      queue,
		EnqueuedAt: time.Now().UTC(),
	}
}

// invoke runs fn, converting a panic into a permanent failure.
func invoke(ctx context.Context, fn HandlerFunc, payload []byte) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Fail(fmt.Errorf("panic in job handler: %v", r))
		}
	}()
	return fn(ctx, payload)
}
