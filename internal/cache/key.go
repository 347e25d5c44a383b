// Package cache implements the RFC-9111-flavored shared HTTP cache of
// spec.md §4.4: cache keying, freshness, cacheability, Vary discrimination,
// conditional revalidation, and a bounded LRU store.
package cache

import (
	"net/http"
	"sort"
)

// Key addresses a stored response: (method, host, path_with_query,
// vary_fingerprint). A "simple key" is the same tuple with an empty
// fingerprint. Keys are immutable and compared structurally (Key is a
// plain comparable struct, usable directly as a map key).
type Key struct {
	Method string
	Host   string // normalized, per spec.md §9: always include the host
	Path   string // path + "?" + raw query, if any
	Vary   string // canonical encoding of the vary fingerprint
}

// SimpleKey builds the Vary-less key for a resource.
func SimpleKey(method, host, path string) Key {
	return Key{Method: method, Host: host, Path: path}
}

// VaryFingerprint is the ordered mapping from lowercased header name to the
// exact request header value, built from the set of names the stored
// response declared in its Vary header.
type VaryFingerprint map[string]string

// Encode canonicalizes a fingerprint into a stable string so it can be
// embedded in a comparable Key — ordering must not depend on header
// insertion order.
func (f VaryFingerprint) Encode() string {
	if len(f) == 0 {
		return ""
	}
	names := make([]string, 0, len(f))
	for n := range f {
		names = append(names, n)
	}
	sort.Strings(names)
	var out []byte
	for _, n := range names {
		out = append(out, n...)
		out = append(out, '=')
		out = append(out, f[n]...)
		out = append(out, '\x00')
	}
	return string(out)
}

// VariantKey builds the Vary-discriminated key for a resource given the
// names listed in a stored response's Vary header and the current request
// headers to sample them from. Absent headers contribute no entry.
func VariantKey(method, host, path string, varyNames []string, requestHeaders http.Header) Key {
	fp := make(VaryFingerprint, len(varyNames))
	for _, name := range varyNames {
		if v := requestHeaders.Get(name); v != "" {
			fp[toLowerASCII(name)] = v
		}
	}
	return Key{Method: method, Host: host, Path: path, Vary: fp.Encode()}
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
