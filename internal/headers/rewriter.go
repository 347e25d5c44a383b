// Package headers implements spec.md §4.7: hop-by-hop header filtering and
// X-Forwarded-* construction. It is applied to outgoing request headers,
// to inbound response headers before they reach the client, and to
// response headers before they are ever handed to the cache — so a stored
// entry's headers are already clean (spec.md §9).
package headers

import (
	"net"
	"net/http"
	"net/textproto"
	"strings"
)

// hopByHop is the static set from spec.md §4.7, lowercased.
var hopByHop = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailers":            {},
	"transfer-encoding":   {},
	"upgrade":             {},
}

// Filter removes hop-by-hop headers from h in place: the static set above,
// plus every token named in h's own Connection header.
func Filter(h http.Header) {
	for _, line := range h.Values("Connection") {
		for _, tok := range strings.Split(line, ",") {
			tok = textproto.TrimString(tok)
			if tok != "" {
				h.Del(tok)
			}
		}
	}
	for name := range hopByHop {
		h.Del(name)
	}
}

// Clone deep-copies an http.Header so callers can mutate it without
// aliasing the original (the inbound request's headers, the stored cache
// entry's headers, etc).
func Clone(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		cc := make([]string, len(vv))
		copy(cc, vv)
		out[k] = cc
	}
	return out
}

// Merge overlays src onto dst: for every header name present in src, dst's
// prior values for that name are replaced. Used for the 304-revalidation
// header merge of spec.md §4.4.5 ("later overrides earlier on conflict").
func Merge(dst, src http.Header) {
	for k, vv := range src {
		dst.Del(k)
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

// PrepareUpstream builds the outgoing request header set per spec.md §4.6
// step 10: copy everything except Host and hop-by-hop headers, append
// X-Forwarded-For, and set X-Forwarded-Proto / X-Forwarded-Host.
func PrepareUpstream(inbound http.Header, remoteAddr, scheme, originalHost string) http.Header {
	out := Clone(inbound)
	out.Del("Host")
	Filter(out)
	appendForwardedFor(out, remoteAddr)
	out.Set("X-Forwarded-Proto", scheme)
	out.Set("X-Forwarded-Host", originalHost)
	return out
}

func appendForwardedFor(h http.Header, remoteAddr string) {
	ip := remoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
		ip = host
	}
	if ip == "" {
		return
	}
	const key = "X-Forwarded-For"
	if prior := h.Get(key); prior != "" {
		h.Set(key, prior+", "+ip)
	} else {
		h.Set(key, ip)
	}
}

// PrepareDownstream filters hop-by-hop headers from an upstream response
// before it is written to the client (or stored in the cache).
func PrepareDownstream(resp http.Header) http.Header {
	out := Clone(resp)
	Filter(out)
	return out
}
