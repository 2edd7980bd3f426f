// Package query implements the Query wire protocol: a sorted
// key=value form body carrying Action and Version, with XML responses.
package query

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/protocol/queryutil"
	"github.com/cirrusws/cirrus-sdk-go/protocol/xmlutil"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// Build serializes the input as the Query form body. The body always
// carries Action and Version, and keys are sorted so the same input
// yields byte-identical output.
func Build(action, version string, m *shape.Member, v shape.Value) ([]byte, error) {
	body := url.Values{
		"Action":  {action},
		"Version": {version},
	}
	if m != nil {
		if err := queryutil.Build(body, m, v, false); err != nil {
			return nil, fmt.Errorf("failed encoding Query request: %w", err)
		}
	}
	return []byte(body.Encode()), nil
}

// Unmarshal decodes a Query XML response body. The payload sits either
// under the conventional <ActionResponse><ActionResult> wrapper or at
// the document root.
func Unmarshal(action string, m *shape.Member, body []byte) (shape.Value, error) {
	if m == nil || len(bytes.TrimSpace(body)) == 0 {
		return shape.Struct(), nil
	}
	root, err := xmlutil.Parse(bytes.NewReader(body))
	if err != nil {
		return shape.Value{}, &errdefs.CodecError{Path: action, Reason: "malformed xml response", Err: err}
	}
	node := root
	if result := root.Child(action + "Result"); result != nil {
		node = result
	}
	return xmlutil.Unmarshal(m, node)
}

// UnmarshalError decodes the <ErrorResponse><Error> envelope. An
// unrecognizable body still produces a typed error carrying the HTTP
// status.
func UnmarshalError(resp *http.Response, body []byte) *errdefs.APIError {
	ae := &errdefs.APIError{
		Code:       "UnknownError",
		Message:    http.StatusText(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Fault:      faultFor(resp.StatusCode),
	}
	root, err := xmlutil.Parse(bytes.NewReader(body))
	if err != nil {
		return ae
	}
	errNode := root.Child("Error")
	if errNode == nil && root.Name.Local == "Error" {
		errNode = root
	}
	if errNode == nil {
		return ae
	}
	FillFromXML(ae, errNode)
	if rid := root.Child("RequestId"); rid != nil {
		ae.RequestID = rid.Text
	}
	return ae
}

// FillFromXML copies code, message and any other scalar children of an
// <Error> element into ae.
func FillFromXML(ae *errdefs.APIError, errNode *xmlutil.Node) {
	for _, c := range errNode.Children {
		if len(c.Children) > 0 {
			continue
		}
		switch {
		case c.Name.Local == "Code":
			ae.Code = c.Text
		case strings.EqualFold(c.Name.Local, "Message"):
			ae.Message = c.Text
		case c.Name.Local == "Type":
			if strings.EqualFold(c.Text, "Sender") {
				ae.Fault = errdefs.FaultClient
			} else if strings.EqualFold(c.Text, "Receiver") {
				ae.Fault = errdefs.FaultServer
			}
		default:
			if ae.Extra == nil {
				ae.Extra = map[string]string{}
			}
			ae.Extra[c.Name.Local] = c.Text
		}
	}
}

func faultFor(status int) errdefs.Fault {
	switch {
	case status >= 500:
		return errdefs.FaultServer
	case status >= 400:
		return errdefs.FaultClient
	default:
		return errdefs.FaultUnknown
	}
}
