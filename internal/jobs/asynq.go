// File: internal/jobs/asynq.go
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AsynqOptions configures an AsynqBackend.
type AsynqOptions struct {
	Queue       string
	Concurrency int
	Timeout     time.Duration
	Policy      Policy
}

// AsynqBackend runs jobs through Redis using asynq. Enqueued jobs survive restarts and
// can be consumed by a separate worker process. Dead letters are asynq's archived tasks.
type AsynqBackend struct {
	redisOpt  asynq.RedisClientOpt
	opts      AsynqOptions
	logger    *zap.Logger
	client    *asynq.Client
	inspector *asynq.Inspector
	mux       *asynq.ServeMux

	mu       sync.Mutex
	handlers map[Kind]HandlerFunc
	srv      *asynq.Server
}

// RedisOptFromURL converts a redis:// or rediss:// URL into asynq connection options.
func RedisOptFromURL(rawURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("jobs: parse REDIS_URL: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

func NewAsynqBackend(redisOpt asynq.RedisClientOpt, opts AsynqOptions, logger *zap.Logger) *AsynqBackend {
	if opts.Queue == "" {
		opts.Queue = "default"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Policy.Mode == "" {
		opts.Policy = DefaultPolicy()
	}
	return &AsynqBackend{
		redisOpt:  redisOpt,
		opts:      opts,
		logger:    logger.Named("asynq"),
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		mux:       asynq.NewServeMux(),
		handlers:  make(map[Kind]HandlerFunc),
	}
}

func (b *AsynqBackend) Enqueue(ctx context.Context, kind Kind, payload any) (*Handle, error) {
	body, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	h := newHandle(kind, b.opts.Queue)
	taskOpts := []asynq.Option{
		asynq.TaskID(h.ID),
		asynq.Queue(b.opts.Queue),
		asynq.MaxRetry(b.opts.Policy.maxRetries()),
	}
	if b.opts.Timeout > 0 {
		taskOpts = append(taskOpts, asynq.Timeout(b.opts.Timeout))
	}

	info, err := b.client.EnqueueContext(ctx, asynq.NewTask(string(kind), body), taskOpts...)
	observeEnqueue(kind, err)
	if err != nil {
		return nil, fmt.Errorf("jobs: enqueue %s: %w", kind, err)
	}
	h.Queue = info.Queue
	return &h, nil
}

func (b *AsynqBackend) Handle(kind Kind, fn HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[kind]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
	}
	b.handlers[kind] = fn
	b.mux.HandleFunc(string(kind), b.processTask)
	return nil
}

// processTask adapts a HandlerFunc to asynq. The returned error tells asynq what to do:
// nil acks, a plain error schedules a retry, SkipRetry archives the task.
func (b *AsynqBackend) processTask(ctx context.Context, t *asynq.Task) error {
	kind := Kind(t.Type())
	b.mu.Lock()
	fn, ok := b.handlers[kind]
	b.mu.Unlock()

	var out Outcome
	if !ok {
		out = Fail(fmt.Errorf("%w: %s", ErrUnknownKind, kind))
	} else {
		out = invoke(ctx, fn, t.Payload())
	}
	observeOutcome(kind, out)

	attempt := 1
	if n, ok := asynq.GetRetryCount(ctx); ok {
		attempt = n + 1
	}
	taskID, _ := asynq.GetTaskID(ctx)
	fields := []zap.Field{
		zap.String("job_id", taskID),
		zap.String("kind", string(kind)),
		zap.Int("attempt", attempt),
	}

	switch b.opts.Policy.Decide(out, attempt) {
	case Ack:
		return nil
	case Drop:
		b.logger.Error("Job failed, dropping", append(fields, zap.Error(out.Err))...)
		return nil
	case RetryLater:
		return out.Err
	default:
		return fmt.Errorf("%v: %w", out.Err, asynq.SkipRetry)
	}
}

// Start runs the asynq server in the background.
func (b *AsynqBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.srv != nil {
		return nil
	}
	b.srv = asynq.NewServer(b.redisOpt, asynq.Config{
		Concurrency: b.opts.Concurrency,
		Queues:      map[string]int{b.opts.Queue: 1},
		Logger:      b.logger.Sugar(),
		LogLevel:    asynq.InfoLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			n, _ := asynq.GetRetryCount(ctx)
			b.logger.Warn("Job attempt failed",
				zap.String("kind", t.Type()),
				zap.Int("attempt", n+1),
				zap.Bool("archived", errors.Is(err, asynq.SkipRetry)),
				zap.Error(err))
		}),
	})
	if err := b.srv.Start(b.mux); err != nil {
		b.srv = nil
		return fmt.Errorf("jobs: start asynq server: %w", err)
	}
	b.logger.Info("Asynq worker started",
		zap.String("queue", b.opts.Queue),
		zap.Int("concurrency", b.opts.Concurrency))
	return nil
}

// Shutdown stops the worker (if running) and closes Redis connections.
func (b *AsynqBackend) Shutdown() {
	b.mu.Lock()
	srv := b.srv
	b.srv = nil
	b.mu.Unlock()
	if srv != nil {
		srv.Shutdown()
	}
	if err := b.client.Close(); err != nil {
		b.logger.Warn("Closing asynq client", zap.Error(err))
	}
	if err := b.inspector.Close(); err != nil {
		b.logger.Warn("Closing asynq inspector", zap.Error(err))
	}
}

// SweepDeadLetters deletes archived tasks in the queue whose last failure is older than retention.
func (b *AsynqBackend) SweepDeadLetters(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	const pageSize = 100
	var stale []string
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		tasks, err := b.inspector.ListArchivedTasks(b.opts.Queue, asynq.PageSize(pageSize), asynq.Page(page))
		if err != nil {
			if errors.Is(err, asynq.ErrQueueNotFound) {
				return 0, nil
			}
			return 0, fmt.Errorf("jobs: list archived tasks: %w", err)
		}
		for _, t := range tasks {
			if t.LastFailedAt.Before(cutoff) {
				stale = append(stale, t.ID)
			}
		}
		if len(tasks) < pageSize {
			break
		}
	}

	removed := 0
	for _, id := range stale {
		if err := b.inspector.DeleteTask(b.opts.Queue, id); err != nil {
			b.logger.Warn("Could not delete archived task", zap.String("job_id", id), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

var _ Backend = (*AsynqBackend)(nil)
