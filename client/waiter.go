package client

import (
	"context"
	"fmt"
	"time"

	"github.com/containerd/log"

	"github.com/cirrusws/cirrus-sdk-go/request"
	"github.com/cirrusws/cirrus-sdk-go/retry"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// WaiterState is the verdict of one acceptor.
type WaiterState int

const (
	// WaiterRetry keeps polling.
	WaiterRetry WaiterState = iota
	// WaiterSuccess ends the wait successfully.
	WaiterSuccess
	// WaiterFailure ends the wait immediately with an error; the
	// resource reached a state it cannot leave.
	WaiterFailure
)

// Acceptor matches one poll result against a desired or terminal state.
type Acceptor struct {
	State WaiterState

	// Matcher inspects the poll output, or its error when err != nil.
	Matcher func(out shape.Value, err error) bool
}

// Waiter polls an operation until an acceptor reaches a terminal state.
type Waiter struct {
	Name      string
	Operation *request.Operation
	Acceptors []Acceptor

	// MaxAttempts bounds polling; zero means DefaultWaiterAttempts.
	MaxAttempts int

	// Delay is the pause between polls; zero means DefaultWaiterDelay.
	Delay time.Duration
}

const (
	DefaultWaiterAttempts = 40
	DefaultWaiterDelay    = 5 * time.Second
)

// Wait polls until an acceptor accepts, an acceptor fails, the attempt
// budget runs out, or the context ends. An unmatched error stops the
// wait; an unmatched success keeps polling.
func (c *Client) Wait(ctx context.Context, w Waiter, input shape.Value) error {
	maxAttempts := w.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultWaiterAttempts
	}
	delay := w.Delay
	if delay <= 0 {
		delay = DefaultWaiterDelay
	}

	for attempt := 1; ; attempt++ {
		out, err := c.Invoke(ctx, w.Operation, input)

		matched := false
		for _, a := range w.Acceptors {
			if !a.Matcher(out, err) {
				continue
			}
			matched = true
			switch a.State {
			case WaiterSuccess:
				return nil
			case WaiterFailure:
				if err != nil {
					return fmt.Errorf("waiter %s reached failure state: %w", w.Name, err)
				}
				return fmt.Errorf("waiter %s reached failure state", w.Name)
			}
			break
		}
		if !matched && err != nil {
			return fmt.Errorf("waiter %s: %w", w.Name, err)
		}

		if attempt >= maxAttempts {
			return fmt.Errorf("waiter %s gave up after %d attempts", w.Name, attempt)
		}
		log.G(ctx).WithFields(log.Fields{
			"waiter":  w.Name,
			"attempt": attempt,
		}).Trace("waiter state not reached, polling again")
		if serr := retry.SleepWithContext(ctx, delay); serr != nil {
			return serr
		}
	}
}
