// Package protocol holds the pieces shared by every wire codec: the
// protocol families, their exact content-type strings, timestamp
// formatting, RFC 3986 path escaping and URI/host template expansion.
package protocol

// Kind is one of the wire-format families governing the default body
// encoding of an operation.
type Kind int

const (
	// Query serializes the input as a sorted key=value form body.
	Query Kind = iota
	// EC2Query is the Query variant that upper-cases the first letter of
	// every key segment.
	EC2Query
	// JSONRPC serializes the whole input as a JSON body with an
	// application/x-amz-json-<version> content type.
	JSONRPC
	// RESTJSON combines REST location bindings with a JSON body.
	RESTJSON
	// RESTXML combines REST location bindings with an XML body.
	RESTXML
)

func (k Kind) String() string {
	switch k {
	case Query:
		return "query"
	case EC2Query:
		return "ec2"
	case JSONRPC:
		return "json"
	case RESTJSON:
		return "rest-json"
	case RESTXML:
		return "rest-xml"
	default:
		return "unknown"
	}
}

// Wire-level constants reproduced exactly.
const (
	// ContentTypeForm is the body content type of the Query and EC2
	// protocols.
	ContentTypeForm = "application/x-www-form-urlencoded; charset=utf-8"

	// ContentTypeJSON is the REST-JSON body content type.
	ContentTypeJSON = "application/json"

	// ContentTypeJSONRPCPrefix is completed with the protocol version,
	// e.g. application/x-amz-json-1.1.
	ContentTypeJSONRPCPrefix = "application/x-amz-json-"

	// ContentTypeOctetStream is the REST-XML fallback when an explicit
	// payload carries no content type of its own.
	ContentTypeOctetStream = "application/octet-stream"

	// ContentTypeBinaryPayload is the default for raw byte payloads.
	ContentTypeBinaryPayload = "binary/octet-stream"

	ContentTypeXML = "application/xml"
)

// BodyContentType returns the Content-Type header value for the
// protocol's default body. jsonVersion is only used by JSONRPC.
func BodyContentType(k Kind, jsonVersion string) string {
	switch k {
	case Query, EC2Query:
		return ContentTypeForm
	case JSONRPC:
		if jsonVersion == "" {
			jsonVersion = "1.1"
		}
		return ContentTypeJSONRPCPrefix + jsonVersion
	case RESTJSON:
		return ContentTypeJSON
	default:
		return ContentTypeOctetStream
	}
}
