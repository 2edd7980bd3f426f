package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// Timestamp layouts, constructed once and immutable afterwards.
const (
	// ISO8601Format is the Query/EC2/XML wire format: millisecond
	// precision, always UTC.
	ISO8601Format = "2006-01-02T15:04:05.000Z"

	// HTTPDateFormat is the RFC 7231 date used by header bindings.
	HTTPDateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"
)

// iso8601ParseFormats accepts the precision variants services answer
// with; encoding always uses ISO8601Format.
var iso8601ParseFormats = []string{
	ISO8601Format,
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05Z",
}

// FormatTime renders t using the member's format, falling back to the
// given protocol default when the member does not pick one.
func FormatTime(t time.Time, format, fallback shape.TimestampFormat) string {
	if format == shape.TimeDefault {
		format = fallback
	}
	switch format {
	case shape.TimeEpochSeconds:
		// Fractional seconds are preserved to millisecond precision.
		ms := t.UnixNano() / int64(time.Millisecond)
		if ms%1000 == 0 {
			return strconv.FormatInt(ms/1000, 10)
		}
		return strconv.FormatFloat(float64(ms)/1000, 'f', -1, 64)
	case shape.TimeHTTPDate:
		return t.UTC().Format(HTTPDateFormat)
	default:
		return t.UTC().Format(ISO8601Format)
	}
}

// ParseTime is the inverse of FormatTime.
func ParseTime(s string, format, fallback shape.TimestampFormat) (time.Time, error) {
	if format == shape.TimeDefault {
		format = fallback
	}
	switch format {
	case shape.TimeEpochSeconds:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("malformed epoch timestamp %q: %w", s, err)
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), nil
	case shape.TimeHTTPDate:
		t, err := time.Parse(HTTPDateFormat, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("malformed http date %q: %w", s, err)
		}
		return t, nil
	default:
		for _, layout := range iso8601ParseFormats {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("malformed iso8601 timestamp %q", s)
	}
}

// DefaultTimeFormat returns the protocol's default timestamp encoding
// for body members.
func DefaultTimeFormat(k Kind) shape.TimestampFormat {
	switch k {
	case JSONRPC, RESTJSON:
		return shape.TimeEpochSeconds
	default:
		return shape.TimeISO8601
	}
}

// EqualFoldAny reports whether s equals any candidate under Unicode
// case-folding. Error bodies spell "message" with whatever casing the
// service feels like.
func EqualFoldAny(s string, candidates ...string) bool {
	for _, c := range candidates {
		if strings.EqualFold(s, c) {
			return true
		}
	}
	return false
}
