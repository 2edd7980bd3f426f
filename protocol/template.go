package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

var hostLabelRe = regexp.MustCompile(`^[a-zA-Z0-9-]{1,63}$`)

// ExpandPath substitutes labels into a path template. A "{name}"
// placeholder is replaced by the percent-encoded value with "/" escaped;
// "{name+}" preserves "/". A placeholder with no matching label is a
// programming error in the generated operation table, surfaced as a
// fatal (non-retryable) error.
func ExpandPath(template string, labels map[string]string) (string, error) {
	var buf strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			buf.WriteString(rest)
			return buf.String(), nil
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			return "", fmt.Errorf("unterminated placeholder in path template %q", template)
		}
		closing += open

		buf.WriteString(rest[:open])
		name := rest[open+1 : closing]
		greedy := strings.HasSuffix(name, "+")
		if greedy {
			name = strings.TrimSuffix(name, "+")
		}
		value, ok := labels[name]
		if !ok {
			return "", fmt.Errorf("no value for path placeholder {%s} in template %q", name, template)
		}
		buf.WriteString(EscapePath(value, !greedy))
		rest = rest[closing+1:]
	}
}

// ExpandHostPrefix substitutes labels into a host-prefix template such
// as "{AccountId}." and validates each substituted label as a DNS label.
// The result is prepended to the endpoint hostname.
func ExpandHostPrefix(template string, labels map[string]string) (string, error) {
	var buf strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			buf.WriteString(rest)
			return buf.String(), nil
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			return "", fmt.Errorf("unterminated placeholder in host prefix %q", template)
		}
		closing += open

		buf.WriteString(rest[:open])
		name := rest[open+1 : closing]
		value, ok := labels[name]
		if !ok {
			return "", fmt.Errorf("no value for host prefix placeholder {%s}", name)
		}
		if !hostLabelRe.MatchString(value) {
			return "", fmt.Errorf("host prefix label %s=%q is not a valid DNS label", name, value)
		}
		buf.WriteString(value)
		rest = rest[closing+1:]
	}
}
