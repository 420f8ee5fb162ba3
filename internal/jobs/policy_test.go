package jobs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyDecide(t *testing.T) {
	boom := errors.New("boom")
	retry3 := Policy{Mode: ModeRetry, MaxAttempts: 3}

	tests := []struct {
		name    string
		policy  Policy
		outcome Outcome
		attempt int
		want    Decision
	}{
		{"success acks under drop", DefaultPolicy(), Succeeded(), 1, Ack},
		{"retryable is dropped under drop", DefaultPolicy(), Retry(boom), 1, Drop},
		{"permanent is dropped under drop", DefaultPolicy(), Fail(boom), 1, Drop},
		{"retryable retries while attempts remain", retry3, Retry(boom), 2, RetryLater},
		{"retryable dead-letters on last attempt", retry3, Retry(boom), 3, Archive},
		{"permanent dead-letters immediately", retry3, Fail(boom), 1, Archive},
		{"success acks under retry", retry3, Succeeded(), 3, Ack},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.policy.Decide(tc.outcome, tc.attempt))
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("", 5)
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
	assert.Equal(t, 0, p.maxRetries())

	p, err = ParsePolicy("RETRY", 4)
	require.NoError(t, err)
	assert.Equal(t, ModeRetry, p.Mode)
	assert.Equal(t, 3, p.maxRetries())

	p, err = ParsePolicy("retry", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.MaxAttempts)

	_, err = ParsePolicy("forever", 1)
	assert.Error(t, err)
}
