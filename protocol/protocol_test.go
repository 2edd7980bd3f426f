package protocol

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// "+" and "/" are valid URL characters but must still be encoded inside
// a literal path value.
func TestEscapePath(t *testing.T) {
	assert.Check(t, is.Equal(EscapePath("Test me/once+", true), "Test%20me%2Fonce%2B"))
	assert.Check(t, is.Equal(EscapePath("Test me/once+", false), "Test%20me/once%2B"))
	assert.Check(t, is.Equal(EscapePath("AZaz09-._~", true), "AZaz09-._~"))
}

func TestExpandPath(t *testing.T) {
	labels := map[string]string{"Key": "Test me/once+"}

	got, err := ExpandPath("/bucket/{Key}", labels)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(got, "/bucket/Test%20me%2Fonce%2B"))

	got, err = ExpandPath("/bucket/{Key+}", labels)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(got, "/bucket/Test%20me/once%2B"))
}

func TestExpandPathMissingLabel(t *testing.T) {
	_, err := ExpandPath("/bucket/{Key}", map[string]string{})
	assert.ErrorContains(t, err, "no value for path placeholder")
}

func TestExpandHostPrefix(t *testing.T) {
	got, err := ExpandHostPrefix("{AccountId}.", map[string]string{"AccountId": "12345"})
	assert.NilError(t, err)
	assert.Check(t, is.Equal(got, "12345."))

	_, err = ExpandHostPrefix("{AccountId}.", map[string]string{"AccountId": "not/a/label"})
	assert.ErrorContains(t, err, "not a valid DNS label")
}

func TestTimeFormats(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)

	assert.Check(t, is.Equal(FormatTime(ts, shape.TimeISO8601, shape.TimeISO8601), "2024-05-01T12:30:45.000Z"))
	assert.Check(t, is.Equal(FormatTime(ts, shape.TimeEpochSeconds, shape.TimeISO8601), "1714566645"))
	assert.Check(t, is.Equal(FormatTime(ts, shape.TimeHTTPDate, shape.TimeISO8601), "Wed, 01 May 2024 12:30:45 GMT"))

	for _, text := range []string{"2024-05-01T12:30:45.000Z", "2024-05-01T12:30:45Z"} {
		got, err := ParseTime(text, shape.TimeISO8601, shape.TimeISO8601)
		assert.NilError(t, err)
		assert.Check(t, is.Equal(got.UTC(), ts))
	}

	got, err := ParseTime("1714566645", shape.TimeEpochSeconds, shape.TimeEpochSeconds)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(got.UTC(), ts))
}
