// File: internal/jobs/outcome.go
package jobs

// Status is the result class of a single job attempt.
type Status int

const (
	StatusSucceeded Status = iota
	StatusRetryable
	StatusPermanent
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusRetryable:
		return "retryable_failure"
	case StatusPermanent:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// Outcome is what a handler reports for one attempt.
type Outcome struct {
	Status Status
	Err    error
}

func Succeeded() Outcome { return Outcome{Status: StatusSucceeded} }

// Retry reports a transient failure; the policy decides whether another attempt happens.
func Retry(err error) Outcome { return Outcome{Status: StatusRetryable, Err: err} }

// Fail reports a failure that no retry can fix.
func Fail(err error) Outcome { return Outcome{Status: StatusPermanent, Err: err} }

func (o Outcome) OK() bool { return o.Status == StatusSucceeded }
