package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cirrusws/cirrus-sdk-go/credentials"
	"github.com/cirrusws/cirrus-sdk-go/eventstream"
	"github.com/cirrusws/cirrus-sdk-go/middleware"
	"github.com/cirrusws/cirrus-sdk-go/request"
	"github.com/cirrusws/cirrus-sdk-go/retry"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// EventStream is the readable side of a streaming response. It is not
// safe for concurrent use; one goroutine should own it and call Next
// until io.EOF, then Close.
type EventStream struct {
	body   io.ReadCloser
	dec    *eventstream.Decoder
	schema eventstream.StreamSchema
}

// Next returns the next decoded event. It returns io.EOF when the
// service closes the stream cleanly on a frame boundary. In-band
// exceptions and errors surface as *errdefs.APIError; once Next returns
// any error the stream is done.
func (s *EventStream) Next() (eventstream.Event, error) {
	msg, err := s.dec.Next()
	if err != nil {
		return eventstream.Event{}, err
	}
	return eventstream.Dispatch(msg, s.schema)
}

// Close releases the underlying connection. Safe to call more than
// once.
func (s *EventStream) Close() error {
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}

// InvokeStream executes a streaming operation and hands back the open
// event stream once the service answers 2xx. Errors before the first
// byte of the stream retry under the same policy as Invoke; after that
// the stream is the caller's to drain.
func (c *Client) InvokeStream(ctx context.Context, op *request.Operation, input shape.Value) (*EventStream, error) {
	if op.Stream == nil {
		return nil, fmt.Errorf("operation %s has no event stream", op.Name)
	}
	ctx = middleware.WithInvocationID(ctx)

	attempt := 1
	for {
		stream, err := c.attemptStream(ctx, op, input)
		if err == nil {
			return stream, nil
		}
		if !c.retryer.IsErrorRetryable(err) {
			return nil, err
		}
		if attempt >= c.retryer.MaxAttempts() {
			return nil, &retry.MaxAttemptsError{Attempt: attempt, Err: err}
		}
		delay, derr := c.retryer.RetryDelay(attempt, err)
		if derr != nil {
			return nil, derr
		}
		if serr := retry.SleepWithContext(ctx, delay); serr != nil {
			return nil, serr
		}
		attempt++
	}
}

func (c *Client) attemptStream(ctx context.Context, op *request.Operation, input shape.Value) (*EventStream, error) {
	var creds credentials.Credentials
	if c.creds != nil {
		var err error
		creds, err = c.creds.Retrieve(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving credentials: %w", err)
		}
	}

	var endpoint string
	if op.RequiresDiscovery && c.endpoints != nil {
		addr, err := c.endpoints.Get(ctx, c.info.ServiceName+"/"+op.Name)
		if err != nil {
			return nil, fmt.Errorf("resolving endpoint: %w", err)
		}
		endpoint = addr
	}

	req, err := request.Build(ctx, c.info, op, input, endpoint)
	if err != nil {
		return nil, err
	}

	resp, err := middleware.Chain(c.sendHandler(creds), c.mw...).Handle(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer drainClose(resp)
		return nil, request.UnmarshalError(c.info, resp)
	}

	return &EventStream{
		body: resp.Body,
		dec:  eventstream.NewDecoder(resp.Body),
		schema: eventstream.StreamSchema{
			Events:     op.Stream.Events,
			Exceptions: op.Stream.Exceptions,
		},
	}, nil
}

func drainClose(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.CopyN(io.Discard, resp.Body, 512)
		_ = resp.Body.Close()
	}
}
