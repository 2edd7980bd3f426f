package request

import (
	"fmt"
	"io"
	"net/http"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/protocol"
	"github.com/cirrusws/cirrus-sdk-go/protocol/ec2query"
	"github.com/cirrusws/cirrus-sdk-go/protocol/jsonrpc"
	"github.com/cirrusws/cirrus-sdk-go/protocol/query"
	"github.com/cirrusws/cirrus-sdk-go/protocol/rest"
	"github.com/cirrusws/cirrus-sdk-go/protocol/restjson"
	"github.com/cirrusws/cirrus-sdk-go/protocol/restxml"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// maxErrorBody bounds how much of an error response is buffered.
const maxErrorBody = 1 << 20

// Unmarshal parses the HTTP response into the operation's output value.
// Any 2xx status is a success; everything else becomes a typed error
// carrying code, message, fault and whatever extra context the body
// offered. The body is consumed; event-stream responses are handed to
// the caller undrained by client.InvokeStream and never come here.
func Unmarshal(info ClientInfo, op *Operation, resp *http.Response) (shape.Value, error) {
	defer drainBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return shape.Value{}, UnmarshalError(info, resp)
	}

	var body []byte
	if resp.Body != nil {
		var err error
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return shape.Value{}, &errdefs.TransportError{Err: fmt.Errorf("reading response body: %w", err)}
		}
	}

	var out shape.Value
	var err error
	switch info.Protocol {
	case protocol.Query:
		out, err = query.Unmarshal(op.Name, op.Output, body)
	case protocol.EC2Query:
		out, err = ec2query.Unmarshal(op.Name, op.Output, body)
	case protocol.JSONRPC:
		out, err = jsonrpc.Unmarshal(op.Output, body)
	case protocol.RESTJSON:
		out, err = restjson.UnmarshalBody(op.Output, body)
	default:
		out, err = restxml.UnmarshalBody(op.Output, body)
	}
	if err != nil {
		return shape.Value{}, err
	}

	if op.Output != nil {
		if err := rest.UnmarshalMeta(resp, op.Output, &out); err != nil {
			return shape.Value{}, err
		}
	}
	return out, nil
}

// UnmarshalError builds the typed error for a non-2xx response.
func UnmarshalError(info ClientInfo, resp *http.Response) error {
	var body []byte
	if resp.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	}

	var ae *errdefs.APIError
	switch info.Protocol {
	case protocol.Query:
		ae = query.UnmarshalError(resp, body)
	case protocol.EC2Query:
		ae = ec2query.UnmarshalError(resp, body)
	case protocol.JSONRPC:
		ae = jsonrpc.UnmarshalError(resp, body)
	case protocol.RESTJSON:
		ae = restjson.UnmarshalError(resp, body)
	default:
		ae = restxml.UnmarshalError(resp, body)
	}
	if ae.RequestID == "" {
		ae.RequestID = resp.Header.Get(RequestIDHeader)
	}
	return ae
}

// drainBody lets the transport reuse the connection; see the same
// pattern in any long-lived HTTP client.
func drainBody(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.CopyN(io.Discard, resp.Body, 512)
		_ = resp.Body.Close()
	}
}
