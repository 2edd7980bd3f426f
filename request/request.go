// Package request turns an operation call into a framed HTTP request
// and an HTTP response back into a typed value or typed error. It is
// the meeting point of the codec engine: the protocol kind picks the
// body codec, and location bindings route the rest of the members into
// the HTTP envelope.
package request

import (
	"github.com/cirrusws/cirrus-sdk-go/protocol"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// ChecksumKind selects the body digest an operation requires.
type ChecksumKind int

const (
	ChecksumNone ChecksumKind = iota
	// ChecksumMD5 sets Content-MD5.
	ChecksumMD5
	// ChecksumSHA256 sets X-Cirrus-Checksum-Sha256.
	ChecksumSHA256
	// ChecksumCRC32 sets X-Cirrus-Checksum-Crc32.
	ChecksumCRC32
)

// Paginator names the token members a paginated operation threads
// between pages.
type Paginator struct {
	InputToken  string
	OutputToken string
	LimitKey    string
}

// Operation is the generated, static description of one API operation.
type Operation struct {
	Name       string
	HTTPMethod string

	// HTTPPath may contain {name} and {name+} placeholders filled from
	// uri-bound members.
	HTTPPath string

	// HostPrefix may contain {name} placeholders filled from host-label
	// members, prepended to the endpoint hostname.
	HostPrefix string

	Input  *shape.Member
	Output *shape.Member

	// RequiresDiscovery routes the call through the endpoint-discovery
	// cache.
	RequiresDiscovery bool

	Checksum ChecksumKind

	Paginator *Paginator

	// Stream describes the typed events of a streaming response.
	Stream *StreamInfo
}

// StreamInfo marks an operation whose response body is an event stream.
type StreamInfo struct {
	Events     map[string]*shape.Member
	Exceptions map[string]*shape.Member
}

// ClientInfo is the per-service configuration shared by every operation
// of one client.
type ClientInfo struct {
	ServiceName string
	APIVersion  string

	Protocol protocol.Kind

	// JSONVersion completes the application/x-amz-json-<version>
	// content type of the JSONRPC protocol.
	JSONVersion string

	// TargetPrefix builds the JSONRPC target header value,
	// <TargetPrefix>.<OperationName>.
	TargetPrefix string

	// Endpoint is the service base URL, scheme included.
	Endpoint string

	SigningName   string
	SigningRegion string
}

// TargetHeader carries the operation name on JSONRPC requests.
const TargetHeader = "X-Cirrus-Target"

// RequestIDHeader is echoed by the service for correlation.
const RequestIDHeader = "X-Cirrus-Request-Id"
