package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"operationcode_backend/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"
)

func TestFanout_EnqueuesAllKindsDespiteFailures(t *testing.T) {
	enq := new(MockEnqueuer)
	want := Payload{Email: testEmail}
	enq.On("Enqueue", mock.Anything, KindWelcomeEmail, want).Return(nil, errors.New("redis down")).Once()
	enq.On("Enqueue", mock.Anything, KindChatInvite, want).Return(&jobs.Handle{ID: "2"}, nil).Once()
	enq.On("Enqueue", mock.Anything, KindMailingList, want).Return(&jobs.Handle{ID: "3"}, nil).Once()

	NewFanout(enq, zaptest.NewLogger(t)).UserRegistered(context.Background(), testEmail)

	enq.AssertExpectations(t)
}

func TestFanout_SurvivesCancelledRequestContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enq := new(MockEnqueuer)
	enq.On("Enqueue", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), mock.Anything, mock.Anything).
		Return(&jobs.Handle{}, nil).Times(3)

	NewFanout(enq, zaptest.NewLogger(t)).UserRegistered(ctx, testEmail)
	enq.AssertExpectations(t)
}

// Nothing is consuming the queue and no collaborator exists; registration must still return at once.
func TestFanout_DoesNotWaitForJobs(t *testing.T) {
	q := jobs.NewLocalQueue(jobs.LocalOptions{Buffer: 8}, zaptest.NewLogger(t))
	defer q.Shutdown()

	start := time.Now()
	NewFanout(q, zaptest.NewLogger(t)).UserRegistered(context.Background(), testEmail)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
