// Package ec2query implements the EC2 variant of the Query protocol:
// identical framing, but the first letter of every key segment is
// upper-cased on encode, and errors arrive in a <Response><Errors>
// envelope rather than the standard <ErrorResponse> one. Decoding
// applies no case transformation.
package ec2query

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/protocol/query"
	"github.com/cirrusws/cirrus-sdk-go/protocol/queryutil"
	"github.com/cirrusws/cirrus-sdk-go/protocol/xmlutil"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// Build serializes the input as an EC2 Query form body.
func Build(action, version string, m *shape.Member, v shape.Value) ([]byte, error) {
	body := url.Values{
		"Action":  {action},
		"Version": {version},
	}
	if m != nil {
		if err := queryutil.Build(body, m, v, true); err != nil {
			return nil, fmt.Errorf("failed encoding EC2 Query request: %w", err)
		}
	}
	return []byte(body.Encode()), nil
}

// Unmarshal decodes an EC2 XML response. EC2 responses put the result
// members directly under the <ActionResponse> root.
func Unmarshal(action string, m *shape.Member, body []byte) (shape.Value, error) {
	if m == nil || len(bytes.TrimSpace(body)) == 0 {
		return shape.Struct(), nil
	}
	root, err := xmlutil.Parse(bytes.NewReader(body))
	if err != nil {
		return shape.Value{}, &errdefs.CodecError{Path: action, Reason: "malformed xml response", Err: err}
	}
	return xmlutil.Unmarshal(m, root)
}

// UnmarshalError decodes the EC2 <Response><Errors><Error> envelope,
// surfacing the first error entry.
func UnmarshalError(resp *http.Response, body []byte) *errdefs.APIError {
	ae := &errdefs.APIError{
		Code:       "UnknownError",
		Message:    http.StatusText(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Fault:      errdefs.FaultUnknown,
	}
	if resp.StatusCode >= 500 {
		ae.Fault = errdefs.FaultServer
	} else if resp.StatusCode >= 400 {
		ae.Fault = errdefs.FaultClient
	}
	root, err := xmlutil.Parse(bytes.NewReader(body))
	if err != nil {
		return ae
	}
	if errNode := root.FindPath("Errors", "Error"); errNode != nil {
		query.FillFromXML(ae, errNode)
	}
	if rid := root.Child("RequestID"); rid != nil {
		ae.RequestID = rid.Text
	} else if rid := root.Child("RequestId"); rid != nil {
		ae.RequestID = rid.Text
	}
	return ae
}
