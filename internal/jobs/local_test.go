package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	kindA Kind = "test:a"
	kindB Kind = "test:b"
)

func newTestQueue(t *testing.T, opts LocalOptions) *LocalQueue {
	t.Helper()
	if opts.RetryDelay == nil {
		opts.RetryDelay = func(int) time.Duration { return 0 }
	}
	q := NewLocalQueue(opts, zaptest.NewLogger(t))
	t.Cleanup(q.Shutdown)
	return q
}

func TestLocalQueue_RunsHandlersWithPayload(t *testing.T) {
	q := newTestQueue(t, LocalOptions{Workers: 2})

	got := make(chan string, 1)
	require.NoError(t, q.Handle(kindA, func(_ context.Context, payload []byte) Outcome {
		got <- string(payload)
		return Succeeded()
	}))
	require.NoError(t, q.Start())

	h, err := q.Enqueue(context.Background(), kindA, map[string]string{"email": "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, kindA, h.Kind)
	assert.NotEmpty(t, h.ID)

	select {
	case p := <-got:
		assert.JSONEq(t, `{"email":"a@example.com"}`, p)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}

func TestLocalQueue_FailureIsIsolatedPerJob(t *testing.T) {
	q := newTestQueue(t, LocalOptions{Workers: 2})

	var bDone atomic.Bool
	require.NoError(t, q.Handle(kindA, func(context.Context, []byte) Outcome {
		return Retry(errors.New("smtp down"))
	}))
	require.NoError(t, q.Handle(kindB, func(context.Context, []byte) Outcome {
		bDone.Store(true)
		return Succeeded()
	}))
	require.NoError(t, q.Start())

	_, err := q.Enqueue(context.Background(), kindA, nil)
	require.NoError(t, err)
	_, err = q.Enqueue(context.Background(), kindB, nil)
	require.NoError(t, err)

	assert.Eventually(t, bDone.Load, 2*time.Second, 10*time.Millisecond)
}

func TestLocalQueue_EnqueueDoesNotBlockWhenFull(t *testing.T) {
	q := newTestQueue(t, LocalOptions{Buffer: 1})

	_, err := q.Enqueue(context.Background(), kindA, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := q.Enqueue(context.Background(), kindA, nil)
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrQueueFull)
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full buffer")
	}
}

func TestLocalQueue_EnqueueAfterShutdown(t *testing.T) {
	q := newTestQueue(t, LocalOptions{})
	require.NoError(t, q.Start())
	q.Shutdown()

	_, err := q.Enqueue(context.Background(), kindA, nil)
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.ErrorIs(t, q.Start(), ErrQueueClosed)
}

func TestLocalQueue_ShutdownDrainsBufferedJobs(t *testing.T) {
	q := newTestQueue(t, LocalOptions{Buffer: 8})

	var ran atomic.Int32
	require.NoError(t, q.Handle(kindA, func(context.Context, []byte) Outcome {
		ran.Add(1)
		return Succeeded()
	}))
	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(context.Background(), kindA, nil)
		require.NoError(t, err)
	}
	require.NoError(t, q.Start())
	q.Shutdown()

	assert.Equal(t, int32(5), ran.Load())
}

func TestLocalQueue_DuplicateHandler(t *testing.T) {
	q := newTestQueue(t, LocalOptions{})
	noop := func(context.Context, []byte) Outcome { return Succeeded() }
	require.NoError(t, q.Handle(kindA, noop))
	assert.ErrorIs(t, q.Handle(kindA, noop), ErrDuplicateKind)
}

func TestLocalQueue_RetriesThenSucceeds(t *testing.T) {
	q := newTestQueue(t, LocalOptions{Policy: Policy{Mode: ModeRetry, MaxAttempts: 3}})

	var attempts atomic.Int32
	require.NoError(t, q.Handle(kindA, func(context.Context, []byte) Outcome {
		if attempts.Add(1) < 3 {
			return Retry(errors.New("503"))
		}
		return Succeeded()
	}))
	require.NoError(t, q.Start())
	_, err := q.Enqueue(context.Background(), kindA, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return attempts.Load() == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, q.DeadLetters())
}

func TestLocalQueue_ExhaustedRetriesAreDeadLettered(t *testing.T) {
	q := newTestQueue(t, LocalOptions{Policy: Policy{Mode: ModeRetry, MaxAttempts: 2}})

	require.NoError(t, q.Handle(kindA, func(context.Context, []byte) Outcome {
		return Retry(errors.New("still down"))
	}))
	require.NoError(t, q.Start())
	h, err := q.Enqueue(context.Background(), kindA, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(q.DeadLetters()) == 1 }, 2*time.Second, 10*time.Millisecond)
	dl := q.DeadLetters()[0]
	assert.Equal(t, h.ID, dl.Handle.ID)
	assert.Equal(t, 2, dl.Attempts)
	assert.Equal(t, "still down", dl.Err)
}

func TestLocalQueue_PanicIsPermanentFailure(t *testing.T) {
	q := newTestQueue(t, LocalOptions{Policy: Policy{Mode: ModeRetry, MaxAttempts: 5}})

	var calls atomic.Int32
	require.NoError(t, q.Handle(kindA, func(context.Context, []byte) Outcome {
		calls.Add(1)
		panic("nil map")
	}))
	require.NoError(t, q.Start())
	_, err := q.Enqueue(context.Background(), kindA, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(q.DeadLetters()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, q.DeadLetters()[0].Err, "nil map")
}

func TestLocalQueue_HandlerGetsDeadline(t *testing.T) {
	q := newTestQueue(t, LocalOptions{Timeout: 50 * time.Millisecond})

	var wg sync.WaitGroup
	wg.Add(1)
	var ctxErr error
	require.NoError(t, q.Handle(kindA, func(ctx context.Context, _ []byte) Outcome {
		defer wg.Done()
		<-ctx.Done()
		ctxErr = ctx.Err()
		return Retry(ctx.Err())
	}))
	require.NoError(t, q.Start())
	_, err := q.Enqueue(context.Background(), kindA, nil)
	require.NoError(t, err)

	wg.Wait()
	assert.ErrorIs(t, ctxErr, context.DeadlineExceeded)
}

func TestLocalQueue_SweepDeadLetters(t *testing.T) {
	q := newTestQueue(t, LocalOptions{})
	q.bury(localTask{handle: newHandle(kindA, "q"), attempt: 1}, errors.New("old"))
	q.bury(localTask{handle: newHandle(kindB, "q"), attempt: 1}, errors.New("new"))
	q.dead[0].FailedAt = time.Now().Add(-48 * time.Hour)

	removed, err := q.SweepDeadLetters(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	require.Len(t, q.DeadLetters(), 1)
	assert.Equal(t, kindB, q.DeadLetters()[0].Handle.Kind)
}

func TestLocalQueue_DeadLettersAreCapped(t *testing.T) {
	q := newTestQueue(t, LocalOptions{MaxDead: 2})
	for i := 0; i < 3; i++ {
		q.bury(localTask{handle: newHandle(kindA, "q"), attempt: i + 1}, nil)
	}
	dead := q.DeadLetters()
	require.Len(t, dead, 2)
	assert.Equal(t, 2, dead[0].Attempts)
}
