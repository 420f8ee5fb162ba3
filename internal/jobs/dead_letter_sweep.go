// File: internal/jobs/dead_letter_sweep.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"operationcode_backend/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DeadLetterSweepJob periodically removes dead letters past their retention.
type DeadLetterSweepJob struct {
	sweeper       DeadLetterSweeper
	schedule      string
	retention     time.Duration
	logger        *zap.Logger
	cronScheduler *cron.Cron
}

func NewDeadLetterSweepJob(sweeper DeadLetterSweeper, logger *zap.Logger, cfg *config.Config) *DeadLetterSweepJob {
	return &DeadLetterSweepJob{
		sweeper:   sweeper,
		schedule:  cfg.JobsDeadLetterSweepSchedule,
		retention: cfg.JobsDeadLetterRetention,
		logger:    logger.Named("DeadLetterSweepJob"),
		cronScheduler: cron.New(
			cron.WithLogger(NewCronLogger(logger.Named("cron"))),
			cron.WithChain(cron.SkipIfStillRunning(NewCronLogger(logger.Named("cron")))),
		),
	}
}

// SetupAndStart schedules the sweep and starts the scheduler in the background.
func (j *DeadLetterSweepJob) SetupAndStart() error {
	if j.schedule == "" {
		j.logger.Warn("JOBS_DEAD_LETTER_SWEEP_SCHEDULE is empty, dead letters will not be swept")
		return nil
	}
	entryID, err := j.cronScheduler.AddFunc(j.schedule, j.Run)
	if err != nil {
		return fmt.Errorf("schedule dead letter sweep %q: %w", j.schedule, err)
	}
	j.logger.Info("Dead letter sweep scheduled",
		zap.String("spec", j.schedule),
		zap.Duration("retention", j.retention),
		zap.Int("entry_id", int(entryID)))
	j.cronScheduler.Start()
	return nil
}

// Run performs one sweep.
func (j *DeadLetterSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	removed, err := j.sweeper.SweepDeadLetters(ctx, j.retention)
	if err != nil {
		j.logger.Error("Dead letter sweep failed", zap.Error(err))
		return
	}
	deadLettersSweptTotal.Add(float64(removed))
	j.logger.Info("Dead letter sweep completed", zap.Int("removed", removed))
}

// Stop waits up to ten seconds for a running sweep to finish.
func (j *DeadLetterSweepJob) Stop() {
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Dead letter sweep scheduler stopped")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Dead letter sweep scheduler stop timed out")
	}
}

// cronLogger adapts zap.Logger to cron.Logger.
type cronLogger struct {
	zl *zap.Logger
}

func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, zapFields(keysAndValues)...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	cl.zl.Error(msg, append(zapFields(keysAndValues), zap.Error(err))...)
}

func zapFields(keysAndValues []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}
