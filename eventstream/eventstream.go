// Package eventstream decodes the binary framing of server-push
// streaming responses. Each frame is an 8-byte length prelude with its
// own CRC32, a block of string headers, a payload, and a trailing CRC32
// over the whole message:
//
//	total_length:u32 | headers_length:u32 | prelude_crc:u32 |
//	headers | payload | message_crc:u32
//
// All integers are big-endian. A message is only surfaced after both
// checksums pass.
package eventstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"sort"
)

const (
	// preludeLen covers the two length words and the prelude CRC.
	preludeLen = 12
	// minMessageLen is a prelude plus the trailing message CRC.
	minMessageLen = preludeLen + 4
	// maxMessageLen bounds a frame so a corrupt length word cannot make
	// a reader buffer gigabytes.
	maxMessageLen = 16 * 1024 * 1024

	headerValueTypeString = 7
)

// ErrNeedMoreData reports that the buffer ends before the frame does.
// It is the one recoverable framing condition: callers wait for more
// bytes and retry.
var ErrNeedMoreData = errors.New("eventstream: need more data")

// FramingKind classifies terminal framing failures.
type FramingKind int

const (
	CorruptPayload FramingKind = iota
	CorruptHeader
	MissingHeader
	UnknownMessageType
)

func (k FramingKind) String() string {
	switch k {
	case CorruptPayload:
		return "corrupt payload"
	case CorruptHeader:
		return "corrupt header"
	case MissingHeader:
		return "missing header"
	case UnknownMessageType:
		return "unknown message type"
	default:
		return "framing error"
	}
}

// FramingError is a terminal decode failure; the stream cannot be
// resynchronized after one.
type FramingError struct {
	Kind   FramingKind
	Detail string
}

func (e *FramingError) Error() string {
	if e.Detail == "" {
		return "eventstream: " + e.Kind.String()
	}
	return fmt.Sprintf("eventstream: %s: %s", e.Kind, e.Detail)
}

// Message is one decoded frame.
type Message struct {
	Headers map[string]string
	Payload []byte
}

// DecodeMessage decodes one frame from the front of buf, returning the
// message and the number of bytes consumed. ErrNeedMoreData means buf
// holds less than one complete frame.
func DecodeMessage(buf []byte) (Message, int, error) {
	if len(buf) < preludeLen {
		return Message{}, 0, ErrNeedMoreData
	}

	total := binary.BigEndian.Uint32(buf[0:4])
	headersLen := binary.BigEndian.Uint32(buf[4:8])
	preludeCRC := binary.BigEndian.Uint32(buf[8:12])

	if crc32.ChecksumIEEE(buf[0:8]) != preludeCRC {
		return Message{}, 0, &FramingError{Kind: CorruptPayload, Detail: "prelude checksum mismatch"}
	}
	if total < minMessageLen || total > maxMessageLen || headersLen > total-minMessageLen {
		return Message{}, 0, &FramingError{Kind: CorruptPayload, Detail: "implausible frame lengths"}
	}
	if uint32(len(buf)) < total {
		return Message{}, 0, ErrNeedMoreData
	}

	msgCRC := binary.BigEndian.Uint32(buf[total-4 : total])
	if crc32.ChecksumIEEE(buf[:total-4]) != msgCRC {
		return Message{}, 0, &FramingError{Kind: CorruptPayload, Detail: "message checksum mismatch"}
	}

	headers, err := decodeHeaders(buf[preludeLen : preludeLen+headersLen])
	if err != nil {
		return Message{}, 0, err
	}

	payload := buf[preludeLen+headersLen : total-4]
	msg := Message{Headers: headers}
	if len(payload) > 0 {
		msg.Payload = append([]byte(nil), payload...)
	}
	return msg, int(total), nil
}

// decodeHeaders parses the header block: repeated
// {name_len:u8, name, value_type:u8, value_len:u16, value} entries.
// Only string values (type 7) appear in the protocol.
func decodeHeaders(block []byte) (map[string]string, error) {
	headers := map[string]string{}
	for len(block) > 0 {
		nameLen := int(block[0])
		block = block[1:]
		if nameLen == 0 || len(block) < nameLen {
			return nil, &FramingError{Kind: CorruptHeader, Detail: "truncated header name"}
		}
		name := string(block[:nameLen])
		block = block[nameLen:]

		if len(block) < 1 {
			return nil, &FramingError{Kind: CorruptHeader, Detail: "missing value type"}
		}
		if block[0] != headerValueTypeString {
			return nil, &FramingError{Kind: CorruptHeader, Detail: fmt.Sprintf("unsupported value type %d for %q", block[0], name)}
		}
		block = block[1:]

		if len(block) < 2 {
			return nil, &FramingError{Kind: CorruptHeader, Detail: "truncated value length"}
		}
		valueLen := int(binary.BigEndian.Uint16(block))
		block = block[2:]
		if len(block) < valueLen {
			return nil, &FramingError{Kind: CorruptHeader, Detail: "truncated header value"}
		}
		headers[name] = string(block[:valueLen])
		block = block[valueLen:]
	}
	return headers, nil
}

// EncodeMessage frames msg, computing both checksums. Used by tests and
// by bidirectional streams.
func EncodeMessage(msg Message) ([]byte, error) {
	var headers []byte
	for _, name := range headerNames(msg.Headers) {
		value := msg.Headers[name]
		if len(name) == 0 || len(name) > 255 {
			return nil, fmt.Errorf("eventstream: header name length %d out of range", len(name))
		}
		if len(value) > 65535 {
			return nil, fmt.Errorf("eventstream: header value for %q too long", name)
		}
		headers = append(headers, byte(len(name)))
		headers = append(headers, name...)
		headers = append(headers, headerValueTypeString)
		headers = binary.BigEndian.AppendUint16(headers, uint16(len(value)))
		headers = append(headers, value...)
	}

	total := minMessageLen + len(headers) + len(msg.Payload)
	out := make([]byte, 0, total)
	out = binary.BigEndian.AppendUint32(out, uint32(total))
	out = binary.BigEndian.AppendUint32(out, uint32(len(headers)))
	out = binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(out[:8]))
	out = append(out, headers...)
	out = append(out, msg.Payload...)
	out = binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(out))
	return out, nil
}

func headerNames(h map[string]string) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
