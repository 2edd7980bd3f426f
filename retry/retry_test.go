package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
)

func TestIsErrorRetryable(t *testing.T) {
	s := NewStandard()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
		{"transport", &errdefs.TransportError{Err: fmt.Errorf("connection reset")}, true},
		{"validation", &errdefs.ValidationError{Path: "Input.Name", Constraint: "minLength"}, false},
		{"codec", &errdefs.CodecError{Path: "Output.Count", Reason: "malformed number"}, false},
		{"throttled code", &errdefs.APIError{Code: "ThrottlingException", StatusCode: 400}, true},
		{"throttled status", &errdefs.APIError{Code: "Whatever", StatusCode: 429}, true},
		{"server fault", &errdefs.APIError{Code: "InternalFailure", StatusCode: 503}, true},
		{"client fault", &errdefs.APIError{Code: "ResourceNotFound", StatusCode: 404}, false},
		{"plain error", fmt.Errorf("something else"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Check(t, is.Equal(s.IsErrorRetryable(tc.err), tc.want))
		})
	}
}

func TestRetryDelayBounds(t *testing.T) {
	s := NewStandard(WithMaxBackoff(4 * time.Second))

	for attempt := 1; attempt <= 6; attempt++ {
		ceiling := 4 * time.Second
		if exp := time.Duration(1<<uint(attempt)) * time.Second; exp < ceiling {
			ceiling = exp
		}
		for i := 0; i < 50; i++ {
			d, err := s.RetryDelay(attempt, nil)
			assert.NilError(t, err)
			assert.Check(t, d >= 0 && d <= ceiling, "attempt %d delay %s over ceiling %s", attempt, d, ceiling)
		}
	}
}

func TestMaxAttemptsErrorUnwraps(t *testing.T) {
	inner := &errdefs.APIError{Code: "ServiceUnavailable", StatusCode: 503}
	err := &MaxAttemptsError{Attempt: 4, Err: inner}

	ae, ok := errdefs.IsAPIError(err)
	assert.Assert(t, ok)
	assert.Check(t, is.Equal(ae.Code, "ServiceUnavailable"))
	assert.ErrorContains(t, err, "exceeded maximum number of attempts, 4")
}

func TestSleepWithContext(t *testing.T) {
	err := SleepWithContext(context.Background(), time.Millisecond)
	assert.NilError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = SleepWithContext(ctx, time.Hour)
	assert.Check(t, is.ErrorIs(err, context.Canceled))
}

func TestAdaptiveRecordsThrottles(t *testing.T) {
	a := NewAdaptive(10)

	// A throttle response halves the send rate; a success nudges it back
	// up.
	before := a.limiter.Limit()
	a.RecordResult(&errdefs.APIError{Code: "ThrottlingException", StatusCode: 429})
	halved := a.limiter.Limit()
	assert.Check(t, halved < before)

	a.RecordResult(nil)
	assert.Check(t, a.limiter.Limit() > halved)
}
