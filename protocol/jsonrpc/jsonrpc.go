// Package jsonrpc implements the JSON body protocol: the whole input is
// one JSON document, the content type carries the protocol version, and
// an operation with no input still sends {} on non-GET/HEAD methods.
package jsonrpc

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/protocol/jsonutil"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// ErrorTypeHeader carries the error code on some JSON services.
const ErrorTypeHeader = "X-Amzn-Errortype"

// Build serializes the input as the JSON request body. JSON-protocol
// servers require a body, so a nil input yields {} unless the method is
// GET or HEAD.
func Build(method string, m *shape.Member, v shape.Value) ([]byte, error) {
	if m == nil || v.IsZero() {
		if method == http.MethodGet || method == http.MethodHead {
			return nil, nil
		}
		return []byte("{}"), nil
	}
	return jsonutil.Encode(m, v)
}

// Unmarshal decodes a JSON response body.
func Unmarshal(m *shape.Member, body []byte) (shape.Value, error) {
	if m == nil {
		return shape.Struct(), nil
	}
	return jsonutil.Decode(m, body)
}

// UnmarshalError extracts a typed error from a JSON error body: the code
// from the error-type header or a __type/code field, the message by
// case-insensitive lookup, and any other top-level scalars as context.
func UnmarshalError(resp *http.Response, body []byte) *errdefs.APIError {
	ae := &errdefs.APIError{
		Code:       "UnknownError",
		Message:    http.StatusText(resp.StatusCode),
		StatusCode: resp.StatusCode,
	}
	if resp.StatusCode >= 500 {
		ae.Fault = errdefs.FaultServer
	} else if resp.StatusCode >= 400 {
		ae.Fault = errdefs.FaultClient
	}
	if h := resp.Header.Get(ErrorTypeHeader); h != "" {
		ae.Code = sanitizeCode(h)
	}
	if rid := resp.Header.Get("X-Request-Id"); rid != "" {
		ae.RequestID = rid
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return ae
	}
	for k, raw := range fields {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		switch {
		case k == "__type" || strings.EqualFold(k, "code"):
			if ae.Code == "UnknownError" {
				ae.Code = sanitizeCode(s)
			}
		case strings.EqualFold(k, "message"):
			ae.Message = s
		default:
			if ae.Extra == nil {
				ae.Extra = map[string]string{}
			}
			ae.Extra[k] = s
		}
	}
	return ae
}

// sanitizeCode strips the namespace prefix and URI suffix some services
// attach, e.g. "com.example#Code:http://..." becomes "Code".
func sanitizeCode(code string) string {
	if i := strings.IndexByte(code, ':'); i >= 0 {
		code = code[:i]
	}
	if i := strings.LastIndexByte(code, '#'); i >= 0 {
		code = code[i+1:]
	}
	return code
}
