// Package retry decides whether a failed attempt is tried again and how
// long to wait before it is.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
)

// Retryer classifies errors and paces attempts. Attempt numbers are
// 1-based.
type Retryer interface {
	IsErrorRetryable(err error) bool
	MaxAttempts() int
	RetryDelay(attempt int, err error) (time.Duration, error)
}

// Defaults for the standard retryer.
const (
	DefaultMaxAttempts = 3
	DefaultMaxBackoff  = 20 * time.Second
)

// throttleCodes are service error codes retried as throttling.
var throttleCodes = map[string]struct{}{
	"Throttling":                             {},
	"ThrottlingException":                    {},
	"ThrottledException":                     {},
	"TooManyRequestsException":               {},
	"RequestThrottled":                       {},
	"RequestThrottledException":              {},
	"RequestLimitExceeded":                   {},
	"ProvisionedThroughputExceededException": {},
	"SlowDown":                               {},
	"PriorRequestNotComplete":                {},
}

// transientCodes are service error codes retried as transient faults.
var transientCodes = map[string]struct{}{
	"RequestTimeout":          {},
	"RequestTimeoutException": {},
	"InternalError":           {},
	"ServiceUnavailable":      {},
}

// MaxAttemptsError reports retry exhaustion; it wraps the last attempt
// error unchanged.
type MaxAttemptsError struct {
	Attempt int
	Err     error
}

func (e *MaxAttemptsError) Error() string {
	return fmt.Sprintf("exceeded maximum number of attempts, %d, %s", e.Attempt, e.Err)
}

func (e *MaxAttemptsError) Unwrap() error { return e.Err }

// Standard is the default retryer: full-jitter exponential backoff
// capped at MaxBackoff, retrying transport failures, 5xx responses and
// throttling codes.
type Standard struct {
	maxAttempts int
	maxBackoff  time.Duration
}

// Option mutates a Standard retryer under construction.
type Option func(*Standard)

// WithMaxAttempts sets the total attempt budget, first try included.
func WithMaxAttempts(n int) Option {
	return func(s *Standard) { s.maxAttempts = n }
}

// WithMaxBackoff caps a single backoff sleep.
func WithMaxBackoff(d time.Duration) Option {
	return func(s *Standard) { s.maxBackoff = d }
}

// NewStandard returns the default retry policy.
func NewStandard(opts ...Option) *Standard {
	s := &Standard{
		maxAttempts: DefaultMaxAttempts,
		maxBackoff:  DefaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Standard) MaxAttempts() int { return s.maxAttempts }

// IsErrorRetryable reports whether err may succeed on another attempt.
// Validation and codec errors never do; cancellation is final.
func (s *Standard) IsErrorRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errdefs.IsValidation(err) || errdefs.IsCodec(err) {
		return false
	}
	if errdefs.IsTransport(err) {
		return true
	}
	if ae, ok := errdefs.IsAPIError(err); ok {
		return IsThrottle(ae) || IsTransient(ae)
	}
	return false
}

// RetryDelay returns the full-jitter exponential backoff for the given
// attempt: a uniformly random duration up to min(maxBackoff, 2^attempt
// seconds).
func (s *Standard) RetryDelay(attempt int, err error) (time.Duration, error) {
	ceiling := s.maxBackoff
	if attempt < 63 {
		if exp := time.Duration(1<<uint(attempt)) * time.Second; exp < ceiling {
			ceiling = exp
		}
	}
	return time.Duration(rand.Int64N(int64(ceiling) + 1)), nil
}

// IsThrottle reports whether the service told us to slow down.
func IsThrottle(ae *errdefs.APIError) bool {
	if ae.StatusCode == http.StatusTooManyRequests {
		return true
	}
	_, ok := throttleCodes[ae.Code]
	return ok
}

// IsTransient reports whether the failure is a server-side fault worth
// retrying.
func IsTransient(ae *errdefs.APIError) bool {
	if ae.StatusCode >= 500 {
		return true
	}
	_, ok := transientCodes[ae.Code]
	return ok
}

// SleepWithContext waits out the backoff delay unless the context is
// canceled first; cancellation abandons the sleep immediately.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
