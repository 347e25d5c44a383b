package registry

import "strings"

// EmptyHost is the sentinel canonical key for a missing or blank Host header.
const EmptyHost = ""

// NormalizeHost canonicalizes a Host header value: trim, lowercase, strip
// port. Bracketed IPv6 literals ("[::1]:8080") are handled explicitly so the
// closing bracket, not the first colon, terminates the host — spec.md §9
// flags this as unhandled in the reference source; here it is resolved.
func NormalizeHost(raw string) string {
	h := strings.ToLower(strings.TrimSpace(raw))
	if h == "" {
		return EmptyHost
	}
	if strings.HasPrefix(h, "[") {
		if end := strings.IndexByte(h, ']'); end >= 0 {
			return h[:end+1]
		}
		return h
	}
	if i := strings.IndexByte(h, ':'); i >= 0 {
		return h[:i]
	}
	return h
}
