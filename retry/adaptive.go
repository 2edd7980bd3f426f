package retry

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
)

// Adaptive wraps Standard with client-side send-rate limiting: after a
// throttling response the token bucket shrinks, slowing subsequent
// attempts before the service has to reject them again. Successful
// attempts grow the rate back gradually.
type Adaptive struct {
	*Standard

	limiter *rate.Limiter
	minRate rate.Limit
	maxRate rate.Limit
}

// NewAdaptive returns an adaptive retryer starting at maxPerSecond.
func NewAdaptive(maxPerSecond float64, opts ...Option) *Adaptive {
	limit := rate.Limit(maxPerSecond)
	return &Adaptive{
		Standard: NewStandard(opts...),
		limiter:  rate.NewLimiter(limit, 1),
		minRate:  limit / 16,
		maxRate:  limit,
	}
}

// AcquireToken blocks until the rate limiter admits another attempt, or
// the context is canceled.
func (a *Adaptive) AcquireToken(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// RecordResult adjusts the send rate from the attempt outcome: halve on
// throttle, creep back up on success.
func (a *Adaptive) RecordResult(err error) {
	current := a.limiter.Limit()
	switch {
	case err == nil:
		next := current * 1.1
		if next > a.maxRate {
			next = a.maxRate
		}
		a.limiter.SetLimit(next)
	default:
		if ae, ok := errdefs.IsAPIError(err); ok && IsThrottle(ae) {
			next := current / 2
			if next < a.minRate {
				next = a.minRate
			}
			a.limiter.SetLimit(next)
		}
	}
}
