package eventstream

import (
	"bytes"
	"strings"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/protocol/jsonutil"
	"github.com/cirrusws/cirrus-sdk-go/protocol/xmlutil"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// Well-known headers steering message dispatch.
const (
	MessageTypeHeader   = ":message-type"
	EventTypeHeader     = ":event-type"
	ExceptionTypeHeader = ":exception-type"
	ErrorCodeHeader     = ":error-code"
	ErrorMessageHeader  = ":error-message"
	ContentTypeHeader   = ":content-type"
)

// Event is one decoded, typed push event.
type Event struct {
	// Type is the value of the :event-type header.
	Type  string
	Value shape.Value
}

// StreamSchema maps event and exception type names to their payload
// shapes. A nil member means the payload is raw bytes.
type StreamSchema struct {
	Events     map[string]*shape.Member
	Exceptions map[string]*shape.Member
}

// Dispatch routes a decoded message by its :message-type header:
// "event" yields an Event, "exception" and "error" yield typed errors,
// anything else is a framing failure. The payload codec is selected by
// the :content-type header.
func Dispatch(msg Message, schema StreamSchema) (Event, error) {
	messageType, ok := msg.Headers[MessageTypeHeader]
	if !ok {
		return Event{}, &FramingError{Kind: MissingHeader, Detail: MessageTypeHeader}
	}
	switch messageType {
	case "event":
		eventType, ok := msg.Headers[EventTypeHeader]
		if !ok {
			return Event{}, &FramingError{Kind: MissingHeader, Detail: EventTypeHeader}
		}
		v, err := decodePayload(msg, schema.Events[eventType])
		if err != nil {
			return Event{}, err
		}
		return Event{Type: eventType, Value: v}, nil
	case "exception":
		exceptionType, ok := msg.Headers[ExceptionTypeHeader]
		if !ok {
			return Event{}, &FramingError{Kind: MissingHeader, Detail: ExceptionTypeHeader}
		}
		ae := &errdefs.APIError{Code: exceptionType, Fault: errdefs.FaultServer}
		if v, err := decodePayload(msg, schema.Exceptions[exceptionType]); err == nil {
			if m := v.Get("message"); m.Kind == shape.KindString {
				ae.Message = m.Str
			} else if m := v.Get("Message"); m.Kind == shape.KindString {
				ae.Message = m.Str
			}
		}
		return Event{}, ae
	case "error":
		return Event{}, &errdefs.APIError{
			Code:    msg.Headers[ErrorCodeHeader],
			Message: msg.Headers[ErrorMessageHeader],
			Fault:   errdefs.FaultServer,
		}
	default:
		return Event{}, &FramingError{Kind: UnknownMessageType, Detail: messageType}
	}
}

func decodePayload(msg Message, m *shape.Member) (shape.Value, error) {
	contentType := msg.Headers[ContentTypeHeader]
	switch {
	case m == nil, contentType == "application/octet-stream":
		return shape.Blob(msg.Payload), nil
	case contentType == "application/json", contentType == "":
		return jsonutil.Decode(m, msg.Payload)
	case contentType == "text/xml", contentType == "application/xml":
		root, err := xmlutil.Parse(bytes.NewReader(msg.Payload))
		if err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: m.Name, Reason: "malformed xml event payload", Err: err}
		}
		return xmlutil.Unmarshal(m, root)
	case strings.HasPrefix(contentType, "application/x-amz-json-"):
		return jsonutil.Decode(m, msg.Payload)
	default:
		return shape.Value{}, &FramingError{Kind: CorruptPayload, Detail: "unsupported content type " + contentType}
	}
}
