// File: internal/jobs/policy.go
package jobs

import (
	"fmt"
	"strings"
)

// Mode selects what happens to failed jobs.
type Mode string

const (
	// ModeDrop logs failures and discards the job.
	ModeDrop Mode = "drop"
	// ModeRetry retries retryable failures up to MaxAttempts, then dead-letters.
	ModeRetry Mode = "retry"
)

// Decision is the action a backend takes after an attempt.
type Decision int

const (
	Ack Decision = iota
	RetryLater
	Drop
	Archive // moves the job to the dead letters
)

func (d Decision) String() string {
	switch d {
	case Ack:
		return "ack"
	case RetryLater:
		return "retry"
	case Drop:
		return "drop"
	case Archive:
		return "dead_letter"
	default:
		return "unknown"
	}
}

type Policy struct {
	Mode        Mode
	MaxAttempts int
}

// DefaultPolicy never retries. Onboarding jobs are not idempotent.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeDrop, MaxAttempts: 1}
}

// ParsePolicy builds a Policy from JOBS_FAILURE_POLICY and JOBS_MAX_ATTEMPTS.
func ParsePolicy(mode string, maxAttempts int) (Policy, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(mode))) {
	case ModeDrop, "":
		return Policy{Mode: ModeDrop, MaxAttempts: 1}, nil
	case ModeRetry:
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		return Policy{Mode: ModeRetry, MaxAttempts: maxAttempts}, nil
	default:
		return Policy{}, fmt.Errorf("jobs: unknown failure policy %q", mode)
	}
}

// Decide maps the outcome of attempt (1-based) to a Decision.
func (p Policy) Decide(out Outcome, attempt int) Decision {
	if out.Status == StatusSucceeded {
		return Ack
	}
	if p.Mode != ModeRetry {
		return Drop
	}
	if out.Status == StatusRetryable && attempt < p.MaxAttempts {
		return RetryLater
	}
	return Archive
}

// maxRetries is the number of attempts after the first one.
func (p Policy) maxRetries() int {
	if p.Mode != ModeRetry || p.MaxAttempts <= 1 {
		return 0
	}
	return p.MaxAttempts - 1
}
