// File: internal/jobs/local.go
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DeadLetter is a job that exhausted the failure policy.
type DeadLetter struct {
	Handle   Handle
	Payload  []byte
	Attempts int
	Err      string
	FailedAt time.Time
}

// LocalOptions configures a LocalQueue.
type LocalOptions struct {
	Queue      string
	Workers    int
	Buffer     int
	Timeout    time.Duration
	Policy     Policy
	MaxDead    int
	RetryDelay func(attempt int) time.Duration
}

type localTask struct {
	handle  Handle
	payload []byte
	attempt int
}

// LocalQueue is an in-process backend: a bounded channel drained by a fixed worker pool.
// Jobs do not survive a restart.
type LocalQueue struct {
	opts   LocalOptions
	logger *zap.Logger

	tasks chan localTask
	quit  chan struct{}
	wg    sync.WaitGroup

	mu       sync.RWMutex
	handlers map[Kind]HandlerFunc
	started  bool
	stopped  bool

	deadMu sync.Mutex
	dead   []DeadLetter
}

// NewLocalQueue returns a queue that accepts jobs immediately and runs them once Start is called.
func NewLocalQueue(opts LocalOptions, logger *zap.Logger) *LocalQueue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.MaxDead <= 0 {
		opts.MaxDead = 1000
	}
	if opts.Queue == "" {
		opts.Queue = "default"
	}
	if opts.Policy.Mode == "" {
		opts.Policy = DefaultPolicy()
	}
	if opts.RetryDelay == nil {
		opts.RetryDelay = func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		}
	}
	return &LocalQueue{
		opts:     opts,
		logger:   logger.Named("local_queue"),
		tasks:    make(chan localTask, opts.Buffer),
		quit:     make(chan struct{}),
		handlers: make(map[Kind]HandlerFunc),
	}
}

func (q *LocalQueue) Handle(kind Kind, fn HandlerFunc) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.handlers[kind]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
	}
	q.handlers[kind] = fn
	return nil
}

// Enqueue never blocks: a full buffer is reported as ErrQueueFull.
func (q *LocalQueue) Enqueue(ctx context.Context, kind Kind, payload any) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	h := newHandle(kind, q.opts.Queue)
	err = q.push(localTask{handle: h, payload: body, attempt: 1})
	observeEnqueue(kind, err)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (q *LocalQueue) push(t localTask) error {
	select {
	case <-q.quit:
		return ErrQueueClosed
	default:
	}
	select {
	case q.tasks <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the worker pool. Calling it twice is a no-op.
func (q *LocalQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrQueueClosed
	}
	if q.started {
		return nil
	}
	q.started = true
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.logger.Info("Local job workers started",
		zap.Int("workers", q.opts.Workers),
		zap.Int("buffer", q.opts.Buffer),
		zap.String("policy", string(q.opts.Policy.Mode)))
	return nil
}

// Shutdown stops accepting jobs, lets workers drain what is buffered and waits for them.
// Pending retries are discarded.
func (q *LocalQueue) Shutdown() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.quit)
	q.mu.Unlock()

	q.wg.Wait()
	if n := len(q.tasks); n > 0 {
		q.logger.Warn("Local queue shut down with unprocessed jobs", zap.Int("count", n))
	}
}

func (q *LocalQueue) work() {
	defer q.wg.Done()
	for {
		select {
		case t := <-q.tasks:
			q.process(t)
		case <-q.quit:
			for {
				select {
				case t := <-q.tasks:
					q.process(t)
				default:
					return
				}
			}
		}
	}
}

func (q *LocalQueue) process(t localTask) {
	q.mu.RLock()
	fn, ok := q.handlers[t.handle.Kind]
	q.mu.RUnlock()

	var out Outcome
	if !ok {
		out = Fail(fmt.Errorf("%w: %s", ErrUnknownKind, t.handle.Kind))
	} else {
		ctx := context.Background()
		cancel := func() {}
		if q.opts.Timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, q.opts.Timeout)
		}
		out = invoke(ctx, fn, t.payload)
		cancel()
	}
	observeOutcome(t.handle.Kind, out)

	fields := []zap.Field{
		zap.String("job_id", t.handle.ID),
		zap.String("kind", string(t.handle.Kind)),
		zap.Int("attempt", t.attempt),
	}
	switch q.opts.Policy.Decide(out, t.attempt) {
	case Ack:
		q.logger.Debug("Job succeeded", fields...)
	case Drop:
		q.logger.Error("Job failed, dropping", append(fields, zap.Error(out.Err))...)
	case RetryLater:
		delay := q.opts.RetryDelay(t.attempt)
		q.logger.Warn("Job failed, scheduling retry", append(fields, zap.Error(out.Err), zap.Duration("delay", delay))...)
		next := localTask{handle: t.handle, payload: t.payload, attempt: t.attempt + 1}
		time.AfterFunc(delay, func() {
			if err := q.push(next); err != nil {
				q.logger.Error("Could not requeue job", append(fields, zap.Error(err))...)
				q.bury(next, fmt.Errorf("requeue: %w", err))
			}
		})
	case Archive:
		q.logger.Error("Job failed, moving to dead letters", append(fields, zap.Error(out.Err))...)
		q.bury(t, out.Err)
	}
}

func (q *LocalQueue) bury(t localTask, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	q.deadMu.Lock()
	defer q.deadMu.Unlock()
	if len(q.dead) >= q.opts.MaxDead {
		q.dead = q.dead[1:]
	}
	q.dead = append(q.dead, DeadLetter{
		Handle:   t.handle,
		Payload:  t.payload,
		Attempts: t.attempt,
		Err:      msg,
		FailedAt: time.Now(),
	})
}

// DeadLetters returns a copy of the current dead letters, oldest first.
func (q *LocalQueue) DeadLetters() []DeadLetter {
	q.deadMu.Lock()
	defer q.deadMu.Unlock()
	out := make([]DeadLetter, len(q.dead))
	copy(out, q.dead)
	return out
}

func (q *LocalQueue) SweepDeadLetters(_ context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	q.deadMu.Lock()
	defer q.deadMu.Unlock()
	kept := q.dead[:0]
	removed := 0
	for _, d := range q.dead {
		if d.FailedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	q.dead = kept
	return removed, nil
}

var _ Backend = (*LocalQueue)(nil)
