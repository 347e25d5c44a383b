package cache

import (
	"strconv"
	"strings"
)

// Directives holds the parsed Cache-Control state spec.md §4.4.8 requires.
// MaxAge/SMaxAge use a pointer-free "present" flag (Has*) since zero is a
// valid value ("max-age=0").
type Directives struct {
	MaxAge          int
	HasMaxAge       bool
	SMaxAge         int
	HasSMaxAge      bool
	NoCache         bool
	NoStore         bool
	MustRevalidate  bool
	ProxyRevalidate bool
	IsPrivate       bool
	IsPublic        bool
}

// ParseDirectives tokenizes a Cache-Control header value on "," per
// spec.md §9: strip whitespace around each token, split on "=" before
// classification. Malformed max-age/s-maxage values (non-numeric or
// negative) are rejected, i.e. left unset, rather than matched by lax
// substring containment.
func ParseDirectives(cacheControl string) Directives {
	var d Directives
	if cacheControl == "" {
		return d
	}
	for _, tok := range strings.Split(cacheControl, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		name, value, hasValue := strings.Cut(tok, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.Trim(strings.TrimSpace(value), `"`)

		switch name {
		case "max-age":
			if hasValue {
				if n, err := strconv.Atoi(value); err == nil && n >= 0 {
					d.MaxAge = n
					d.HasMaxAge = true
				}
			}
		case "s-maxage":
			if hasValue {
				if n, err := strconv.Atoi(value); err == nil && n >= 0 {
					d.SMaxAge = n
					d.HasSMaxAge = true
				}
			}
		case "no-cache":
			d.NoCache = true
		case "no-store":
			d.NoStore = true
		case "must-revalidate":
			d.MustRevalidate = true
		case "proxy-revalidate":
			d.ProxyRevalidate = true
		case "private":
			d.IsPrivate = true
		case "public":
			d.IsPublic = true
		}
	}
	return d
}

// EffectiveLifetime returns the shared-cache lifetime per spec.md §4.4.4:
// s-maxage if present, else max-age, else "not fresh" (no heuristic
// freshness for this cache).
func (d Directives) EffectiveLifetime() (seconds int, ok bool) {
	if d.HasSMaxAge {
		return d.SMaxAge, true
	}
	if d.HasMaxAge {
		return d.MaxAge, true
	}
	return 0, false
}

// MustAlwaysRevalidate reports the spec.md §4.4.4 directives that force
// revalidation before reuse regardless of age.
func (d Directives) MustAlwaysRevalidate() bool {
	return d.NoCache || d.MustRevalidate || d.ProxyRevalidate
}

// Insertable reports cacheability on insert per spec.md §4.4.1, rules 2-3
// (status and Vary:* are checked by the caller, which has that context).
func (d Directives) Insertable() bool {
	if d.NoStore || d.IsPrivate {
		return false
	}
	_, hasLifetime := d.EffectiveLifetime()
	return d.IsPublic || hasLifetime
}
