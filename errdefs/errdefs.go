// Package errdefs defines the error taxonomy shared by the codec and
// pipeline packages, with predicates to classify an error chain without
// importing the package that produced it.
//
// The taxonomy mirrors how errors flow through a call: validation errors
// are raised before a request exists, codec errors while (de)serializing,
// transport errors while sending, and API errors when the service answers
// with a non-2xx status.
package errdefs

import (
	"errors"
	"fmt"
	"net"
)

// Fault indicates which side of the call an APIError blames.
type Fault int

const (
	FaultUnknown Fault = iota
	// FaultClient covers 4xx responses.
	FaultClient
	// FaultServer covers 5xx responses.
	FaultServer
)

func (f Fault) String() string {
	switch f {
	case FaultClient:
		return "client"
	case FaultServer:
		return "server"
	default:
		return "unknown"
	}
}

// APIError is a typed service error decoded from a non-2xx response.
// Unrecognized error codes still produce an APIError carrying the code,
// message and any extra context the response body offered.
type APIError struct {
	Code       string
	Message    string
	Fault      Fault
	StatusCode int
	RequestID  string

	// Extra holds additional top-level scalar fields from the error body.
	Extra map[string]string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api error %s: %s (status %d, request id %s)", e.Code, e.Message, e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("api error %s: %s (status %d)", e.Code, e.Message, e.StatusCode)
}

// TransportError wraps a connection or timeout failure from the HTTP
// transport. It is the only error class that is retryable by default.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport error: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was a network timeout.
func (e *TransportError) Timeout() bool {
	var nerr net.Error
	return errors.As(e.Err, &nerr) && nerr.Timeout()
}

// CodecError reports a decode failure: a required member missing, an enum
// value outside the declared set, or a malformed date or number. Path
// names the offending member relative to the shape root.
type CodecError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CodecError) Error() string {
	msg := "decode " + e.Path + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CodecError) Unwrap() error { return e.Err }

// ValidationError reports a client-side shape constraint violation. It is
// raised before a request is ever sent and never retried.
type ValidationError struct {
	Path       string
	Constraint string
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s (%s): %s", e.Path, e.Constraint, e.Message)
}

// IsAPIError returns the APIError in err's chain, if any.
func IsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	ok := errors.As(err, &ae)
	return ae, ok
}

// IsTransport reports whether err's chain contains a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsCodec reports whether err's chain contains a CodecError.
func IsCodec(err error) bool {
	var ce *CodecError
	return errors.As(err, &ce)
}

// IsValidation reports whether err's chain contains a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
