package jobs

import (
	"context"
	"testing"
	"time"

	"operationcode_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"
)

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepDeadLetters(ctx context.Context, retention time.Duration) (int, error) {
	args := m.Called(ctx, retention)
	return args.Int(0), args.Error(1)
}

func TestDeadLetterSweepJob_RunUsesRetention(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("SweepDeadLetters", mock.Anything, 72*time.Hour).Return(3, nil).Once()

	job := NewDeadLetterSweepJob(sweeper, zaptest.NewLogger(t), &config.Config{
		JobsDeadLetterSweepSchedule: "@hourly",
		JobsDeadLetterRetention:     72 * time.Hour,
	})
	job.Run()

	sweeper.AssertExpectations(t)
}

func TestDeadLetterSweepJob_InvalidSchedule(t *testing.T) {
	job := NewDeadLetterSweepJob(new(MockSweeper), zaptest.NewLogger(t), &config.Config{
		JobsDeadLetterSweepSchedule: "every now and then",
	})
	assert.Error(t, job.SetupAndStart())
}

func TestDeadLetterSweepJob_EmptyScheduleIsDisabled(t *testing.T) {
	job := NewDeadLetterSweepJob(new(MockSweeper), zaptest.NewLogger(t), &config.Config{})
	assert.NoError(t, job.SetupAndStart())
	job.Stop()
}
