package request

import (
	"context"
	"io"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/protocol"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

func queryInfo() ClientInfo {
	return ClientInfo{
		ServiceName: "queue",
		APIVersion:  "2012-11-05",
		Protocol:    protocol.Query,
		Endpoint:    "https://queue.example.com",
	}
}

func TestBuildQueryProtocol(t *testing.T) {
	op := &Operation{
		Name: "CreateQueue",
		Input: &shape.Member{
			Name: "CreateQueueInput",
			Type: shape.TypeStruct,
			Fields: []shape.Member{
				{Name: "QueueName", Type: shape.TypeString},
			},
		},
	}
	input := shape.Struct(shape.Field("QueueName", shape.String("jobs")))

	req, err := Build(context.Background(), queryInfo(), op, input, "")
	assert.NilError(t, err)

	assert.Check(t, is.Equal(req.HTTP.Method, "POST"))
	assert.Check(t, is.Equal(req.HTTP.URL.Path, "/"))
	assert.Check(t, is.Equal(req.HTTP.Header.Get("Content-Type"), "application/x-www-form-urlencoded; charset=utf-8"))

	body, err := io.ReadAll(req.HTTP.Body)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(body), "Action=CreateQueue&QueueName=jobs&Version=2012-11-05"))
}

func TestBuildJSONProtocolEmptyInput(t *testing.T) {
	info := ClientInfo{
		ServiceName:  "table",
		APIVersion:   "2012-08-10",
		Protocol:     protocol.JSONRPC,
		JSONVersion:  "1.0",
		TargetPrefix: "TableService",
		Endpoint:     "https://table.example.com",
	}
	op := &Operation{Name: "ListTables", HTTPMethod: "POST"}

	req, err := Build(context.Background(), info, op, shape.Value{}, "")
	assert.NilError(t, err)

	assert.Check(t, is.Equal(req.HTTP.Header.Get("Content-Type"), "application/x-amz-json-1.0"))
	assert.Check(t, is.Equal(req.HTTP.Header.Get(TargetHeader), "TableService.ListTables"))

	body, err := io.ReadAll(req.HTTP.Body)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(body), "{}"))
}

func restInfo() ClientInfo {
	return ClientInfo{
		ServiceName: "storage",
		Protocol:    protocol.RESTJSON,
		Endpoint:    "https://storage.example.com",
	}
}

func TestBuildURIEscaping(t *testing.T) {
	op := &Operation{
		Name:       "GetObject",
		HTTPMethod: "GET",
		HTTPPath:   "/{Key}",
		Input: &shape.Member{
			Name: "GetObjectInput",
			Type: shape.TypeStruct,
			Fields: []shape.Member{
				{Name: "Key", Type: shape.TypeString, Location: shape.LocationURI},
			},
		},
	}
	input := shape.Struct(shape.Field("Key", shape.String("Test me/once+")))

	req, err := Build(context.Background(), restInfo(), op, input, "")
	assert.NilError(t, err)
	assert.Check(t, is.Equal(req.HTTP.URL.RawPath, "/Test%20me%2Fonce%2B"))
	assert.Check(t, is.Equal(req.HTTP.URL.Path, "/Test me/once+"))

	// The greedy form keeps "/" as a segment separator.
	op.HTTPPath = "/{Key+}"
	req, err = Build(context.Background(), restInfo(), op, input, "")
	assert.NilError(t, err)
	assert.Check(t, is.Equal(req.HTTP.URL.RawPath, "/Test%20me/once%2B"))
}

func TestBuildHostPrefix(t *testing.T) {
	op := &Operation{
		Name:       "PutRecord",
		HTTPMethod: "POST",
		HTTPPath:   "/record",
		HostPrefix: "{AccountId}.",
		Input: &shape.Member{
			Name: "PutRecordInput",
			Type: shape.TypeStruct,
			Fields: []shape.Member{
				{Name: "AccountId", Type: shape.TypeString, Location: shape.LocationHostLabel},
				{Name: "Data", Type: shape.TypeString},
			},
		},
	}
	input := shape.Struct(
		shape.Field("AccountId", shape.String("12345")),
		shape.Field("Data", shape.String("x")),
	)

	req, err := Build(context.Background(), restInfo(), op, input, "")
	assert.NilError(t, err)
	assert.Check(t, is.Equal(req.HTTP.URL.Host, "12345.storage.example.com"))
	assert.Check(t, is.Equal(req.HTTP.Host, "12345.storage.example.com"))
}

func TestBuildDiscoveredEndpointOverrides(t *testing.T) {
	op := &Operation{
		Name:       "Describe",
		HTTPMethod: "POST",
		HTTPPath:   "/describe",
	}
	req, err := Build(context.Background(), restInfo(), op, shape.Value{}, "https://cell-7.example.com")
	assert.NilError(t, err)
	assert.Check(t, is.Equal(req.HTTP.URL.Host, "cell-7.example.com"))
}

func TestBuildValidatesInput(t *testing.T) {
	op := &Operation{
		Name: "CreateQueue",
		Input: &shape.Member{
			Name: "CreateQueueInput",
			Type: shape.TypeStruct,
			Fields: []shape.Member{
				{Name: "QueueName", Type: shape.TypeString, Required: true},
			},
		},
	}

	_, err := Build(context.Background(), queryInfo(), op, shape.Struct(), "")
	assert.Check(t, errdefs.IsValidation(err))
}

func TestBuildBlobPayloadContentType(t *testing.T) {
	op := &Operation{
		Name:       "PutObject",
		HTTPMethod: "PUT",
		HTTPPath:   "/{Key}",
		Input: &shape.Member{
			Name: "PutObjectInput",
			Type: shape.TypeStruct,
			Fields: []shape.Member{
				{Name: "Key", Type: shape.TypeString, Location: shape.LocationURI},
				{Name: "Body", Type: shape.TypeBlob, Location: shape.LocationPayload},
			},
		},
	}
	input := shape.Struct(
		shape.Field("Key", shape.String("k")),
		shape.Field("Body", shape.Blob([]byte("raw bytes"))),
	)

	req, err := Build(context.Background(), restInfo(), op, input, "")
	assert.NilError(t, err)
	assert.Check(t, is.Equal(req.HTTP.Header.Get("Content-Type"), "binary/octet-stream"))

	body, err := io.ReadAll(req.HTTP.Body)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(body), "raw bytes"))
}

func TestBuildChecksum(t *testing.T) {
	op := &Operation{
		Name:       "PutItem",
		HTTPMethod: "POST",
		HTTPPath:   "/item",
		Checksum:   ChecksumCRC32,
		Input: &shape.Member{
			Name: "PutItemInput",
			Type: shape.TypeStruct,
			Fields: []shape.Member{
				{Name: "Name", Type: shape.TypeString},
			},
		},
	}
	input := shape.Struct(shape.Field("Name", shape.String("a")))

	req, err := Build(context.Background(), restInfo(), op, input, "")
	assert.NilError(t, err)
	assert.Check(t, req.HTTP.Header.Get(ChecksumCRC32Header) != "")
}
