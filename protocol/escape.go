package protocol

import (
	"bytes"
	"fmt"
)

var noEscape [256]bool

func init() {
	for i := 0; i < len(noEscape); i++ {
		// RFC 3986 unreserved characters.
		noEscape[i] = (i >= 'A' && i <= 'Z') ||
			(i >= 'a' && i <= 'z') ||
			(i >= '0' && i <= '9') ||
			i == '-' || i == '.' || i == '_' || i == '~'
	}
}

// EscapePath percent-encodes a URI path value against the RFC 3986
// unreserved set. Unlike net/url, "+" and "/" inside a literal segment
// are always encoded; encodeSep=false preserves "/" for greedy {name+}
// placeholders.
func EscapePath(path string, encodeSep bool) string {
	var buf bytes.Buffer
	for i := 0; i < len(path); i++ {
		c := path[i]
		if noEscape[c] || (c == '/' && !encodeSep) {
			buf.WriteByte(c)
		} else {
			fmt.Fprintf(&buf, "%%%02X", c)
		}
	}
	return buf.String()
}
