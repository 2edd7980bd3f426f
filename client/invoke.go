package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/containerd/log"

	"github.com/cirrusws/cirrus-sdk-go/credentials"
	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/middleware"
	"github.com/cirrusws/cirrus-sdk-go/request"
	"github.com/cirrusws/cirrus-sdk-go/retry"
	"github.com/cirrusws/cirrus-sdk-go/shape"
	"github.com/cirrusws/cirrus-sdk-go/transport"
)

// CallOption adjusts a single operation call.
type CallOption func(*callConfig)

type callConfig struct {
	bodyStream io.Reader
	bodyLen    int64
}

// WithBodyStream replaces the encoded body with a caller-supplied
// stream, for raw payload uploads. If the reader cannot seek, the call
// is never retried: replaying a partially consumed stream would corrupt
// both the body and its signature.
func WithBodyStream(r io.Reader, contentLength int64) CallOption {
	return func(cfg *callConfig) {
		cfg.bodyStream = r
		cfg.bodyLen = contentLength
	}
}

// Invoke executes one operation call through the full pipeline and
// returns its decoded output.
func (c *Client) Invoke(ctx context.Context, op *request.Operation, input shape.Value, opts ...CallOption) (shape.Value, error) {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	// One invocation id for the whole call; the request itself is
	// rebuilt on every attempt.
	ctx = middleware.WithInvocationID(ctx)

	// A seekable caller stream is rewound to this offset before every
	// retry attempt.
	var streamStart int64
	streamSeeker, canRewind := cfg.bodyStream.(io.Seeker)
	if canRewind {
		start, err := streamSeeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return shape.Value{}, err
		}
		streamStart = start
	}

	attempt := 1
	var waited time.Duration
	for {
		out, seekable, err := c.attempt(ctx, op, input, &cfg)
		if err == nil {
			return out, nil
		}
		if !c.retryer.IsErrorRetryable(err) {
			return shape.Value{}, err
		}
		if !seekable {
			log.G(ctx).WithField("operation", op.Name).
				Trace("retryable error on a one-shot body stream, not retrying")
			return shape.Value{}, err
		}
		if attempt >= c.retryer.MaxAttempts() {
			return shape.Value{}, &retry.MaxAttemptsError{Attempt: attempt, Err: err}
		}
		delay, derr := c.retryer.RetryDelay(attempt, err)
		if derr != nil {
			return shape.Value{}, derr
		}
		if c.maxWaitTime > 0 && waited+delay > c.maxWaitTime {
			return shape.Value{}, fmt.Errorf("retry wait budget %s exhausted: %w", c.maxWaitTime, err)
		}
		log.G(ctx).WithFields(log.Fields{
			"operation": op.Name,
			"attempt":   attempt,
			"delay":     delay,
		}).WithError(err).Trace("retrying request")
		if serr := retry.SleepWithContext(ctx, delay); serr != nil {
			return shape.Value{}, serr
		}
		if canRewind {
			if _, serr := streamSeeker.Seek(streamStart, io.SeekStart); serr != nil {
				return shape.Value{}, fmt.Errorf("rewinding body stream for retry: %w", serr)
			}
		}
		waited += delay
		attempt++
	}
}

// attempt runs one pass of the state machine: ResolveCredential,
// ResolveEndpoint, BuildRequest, RunMiddleware around Send, and
// ParseResponse. It also reports whether the request body could be
// replayed, which gates retry.
func (c *Client) attempt(ctx context.Context, op *request.Operation, input shape.Value, cfg *callConfig) (shape.Value, bool, error) {
	var creds credentials.Credentials
	if c.creds != nil {
		var err error
		creds, err = c.creds.Retrieve(ctx)
		if err != nil {
			return shape.Value{}, true, fmt.Errorf("resolving credentials: %w", err)
		}
	}

	var endpoint string
	if op.RequiresDiscovery && c.endpoints != nil {
		addr, err := c.endpoints.Get(ctx, c.info.ServiceName+"/"+op.Name)
		if err != nil {
			return shape.Value{}, true, fmt.Errorf("resolving endpoint: %w", err)
		}
		endpoint = addr
	}

	req, err := request.Build(ctx, c.info, op, input, endpoint)
	if err != nil {
		return shape.Value{}, true, err
	}
	if cfg.bodyStream != nil {
		if err := req.SetStream(cfg.bodyStream, cfg.bodyLen); err != nil {
			return shape.Value{}, true, err
		}
	}
	seekable := req.IsStreamSeekable()

	if limiter, ok := c.retryer.(interface{ AcquireToken(context.Context) error }); ok {
		if err := limiter.AcquireToken(ctx); err != nil {
			return shape.Value{}, seekable, err
		}
	}

	resp, err := middleware.Chain(c.sendHandler(creds), c.mw...).Handle(ctx, req)
	if recorder, ok := c.retryer.(interface{ RecordResult(error) }); ok {
		recorder.RecordResult(err)
	}
	if err != nil {
		return shape.Value{}, seekable, err
	}

	out, err := request.Unmarshal(c.info, op, resp)
	return out, seekable, err
}

// sendHandler is the innermost stage: sign, then hand the request to
// the transport. Connection failures come back as TransportError so the
// retry policy can recognize them; context cancellation is passed
// through untouched.
func (c *Client) sendHandler(creds credentials.Credentials) middleware.Handler {
	return middleware.HandlerFunc(func(ctx context.Context, req *transport.Request) (*http.Response, error) {
		if !c.anonymous {
			if err := c.signer.Sign(ctx, req.HTTP, creds, c.info.SigningName, c.info.SigningRegion, time.Now()); err != nil {
				return nil, fmt.Errorf("signing request: %w", err)
			}
		}
		resp, err := c.httpClient.Do(req.HTTP.WithContext(ctx))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, &errdefs.TransportError{Err: err}
		}
		return resp, nil
	})
}
