// Package transport wraps the outbound HTTP request with explicit body
// stream handling. The HTTP round trip itself is an injected
// collaborator: anything with a Do method, which *http.Client and test
// mocks both satisfy.
package transport

import (
	"bytes"
	"io"
	"net/http"
)

// Doer performs one HTTP round trip. A non-2xx response is not an
// error; only connection-level failures are.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(*http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// Request pairs an http.Request with its body stream. Buffered and
// seekable bodies can be rewound between retry attempts; a one-shot
// reader cannot, and its request must never be retried because a
// replayed partial stream would corrupt both body and signature.
type Request struct {
	HTTP *http.Request

	stream      io.Reader
	streamStart int64
	seekable    bool
}

// New returns a Request around an http.Request with no body.
func New(r *http.Request) *Request {
	return &Request{HTTP: r}
}

// SetBufferedBody installs a fully buffered, always rewindable body.
func (r *Request) SetBufferedBody(body []byte) {
	reader := bytes.NewReader(body)
	r.stream = reader
	r.streamStart = 0
	r.seekable = true
	r.HTTP.Body = io.NopCloser(reader)
	r.HTTP.ContentLength = int64(len(body))
	r.HTTP.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
}

// SetStream installs a caller-supplied body stream. If the reader can
// seek, the current offset is recorded so the stream can be rewound for
// retries; otherwise the request is marked one-shot.
func (r *Request) SetStream(body io.Reader, contentLength int64) error {
	r.stream = body
	r.HTTP.ContentLength = contentLength
	r.HTTP.GetBody = nil
	if seeker, ok := body.(io.Seeker); ok {
		start, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		r.streamStart = start
		r.seekable = true
	} else {
		r.seekable = false
	}
	if body != nil {
		r.HTTP.Body = io.NopCloser(body)
	}
	return nil
}

// StreamLength measures the bytes remaining in a seekable body stream
// without consuming it. ok is false when there is no body or its size
// cannot be determined.
func (r *Request) StreamLength() (int64, bool) {
	if r.stream == nil || !r.seekable {
		return 0, false
	}
	seeker, ok := r.stream.(io.Seeker)
	if !ok {
		return 0, false
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, false
	}
	if _, err := seeker.Seek(r.streamStart, io.SeekStart); err != nil {
		return 0, false
	}
	return end - r.streamStart, true
}

// IsStreamSeekable reports whether the body can be replayed.
func (r *Request) IsStreamSeekable() bool {
	return r.stream == nil || r.seekable
}

// RewindStream resets the body to its starting offset ahead of a retry
// attempt.
func (r *Request) RewindStream() error {
	if r.stream == nil {
		return nil
	}
	seeker, ok := r.stream.(io.Seeker)
	if !ok {
		return io.ErrNoProgress
	}
	if _, err := seeker.Seek(r.streamStart, io.SeekStart); err != nil {
		return err
	}
	r.HTTP.Body = io.NopCloser(r.stream)
	return nil
}

// Clone returns a copy sharing the body stream but owning its headers,
// so middleware mutations on one attempt do not leak into the next.
func (r *Request) Clone() *Request {
	dup := *r
	dup.HTTP = r.HTTP.Clone(r.HTTP.Context())
	return &dup
}
