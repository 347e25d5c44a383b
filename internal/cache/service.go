package cache

import (
	"net/http"
	"strings"
	"time"
)

// Service implements the RFC-9111-style behavior on top of a Store:
// cacheability on insert, key construction (simple vs. Vary-discriminated),
// lookup with Vary fallback, freshness, and revalidation bookkeeping
// (spec.md §4.4.1-§4.4.5).
type Service struct {
	store *Store
	now   func() time.Time
}

func NewService(store *Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Lookup implements spec.md §4.4.3: try the simple key, then fall back to
// the vary index. Every hit is re-checked for cacheability against its own
// stored directives, and a hit that fails is deleted and reported as a miss.
func (s *Service) Lookup(method, host, path string, requestHeaders http.Header) (*Entry, bool) {
	simple := SimpleKey(method, host, path)

	if e, ok := s.store.Get(simple); ok {
		if !e.Cacheable() {
			s.store.Delete(simple)
			return nil, false
		}
		return e, true
	}

	varyHeader, ok := s.store.GetVary(simple)
	if !ok || strings.TrimSpace(varyHeader) == "" {
		return nil, false
	}
	variant := VariantKey(method, host, path, splitVaryNames(varyHeader), requestHeaders)
	if e, ok := s.store.Get(variant); ok {
		if !e.Cacheable() {
			s.store.Delete(variant)
			return nil, false
		}
		return e, true
	}
	s.store.DeleteVary(simple)
	return nil, false
}

// Insertable reports spec.md §4.4.1's insert-time cacheability rules for a
// backend response to a safe request.
func Insertable(status int, responseHeaders http.Header) bool {
	if status != http.StatusOK {
		return false
	}
	if isVaryStar(responseHeaders) {
		return false
	}
	d := ParseDirectives(responseHeaders.Get("Cache-Control"))
	return d.Insertable()
}

func isVaryStar(h http.Header) bool {
	return strings.TrimSpace(h.Get("Vary")) == "*"
}

// Insert stores a cacheable backend response, or purges any existing entry
// for the resource if the response declares Vary: * (spec.md §4.4.1).
// responseHeaders must already be filtered of hop-by-hop headers.
func (s *Service) Insert(method, host, path string, requestHeaders, responseHeaders http.Header, status int, body []byte) {
	if isVaryStar(responseHeaders) {
		s.store.PurgeResource(host, path)
		return
	}
	if !Insertable(status, responseHeaders) {
		return
	}

	d := ParseDirectives(responseHeaders.Get("Cache-Control"))
	entry := &Entry{
		Status:     status,
		Headers:    responseHeaders,
		Body:       body,
		CachedAt:   s.now(),
		Directives: d,
		Validators: Validators{
			ETag:         responseHeaders.Get("ETag"),
			LastModified: responseHeaders.Get("Last-Modified"),
		},
	}

	varyRaw := strings.TrimSpace(responseHeaders.Get("Vary"))
	simple := SimpleKey(method, host, path)
	if varyRaw == "" {
		s.store.Put(simple, entry)
		s.store.DeleteVary(simple)
		return
	}

	variant := VariantKey(method, host, path, splitVaryNames(varyRaw), requestHeaders)
	s.store.Put(variant, entry)
	s.store.SetVary(simple, varyRaw)
}

// InvalidateUnsafe implements spec.md §4.4.6: before forwarding a request
// whose method is not GET/HEAD, purge every cached GET/HEAD entry for
// (host, path). Idempotent.
func (s *Service) InvalidateUnsafe(host, path string) {
	s.store.InvalidateResource(host, path)
}

// RevalidationHeaders builds the If-None-Match / If-Modified-Since pair
// spec.md §4.4.5 appends when forwarding a request whose cached entry has
// validators.
func RevalidationHeaders(e *Entry) http.Header {
	h := http.Header{}
	if e.Validators.ETag != "" {
		h.Set("If-None-Match", e.Validators.ETag)
	}
	if e.Validators.LastModified != "" {
		h.Set("If-Modified-Since", e.Validators.LastModified)
	}
	return h
}

// ApplyRevalidation updates a cached entry in place after a 304 response,
// per spec.md §4.4.5: cached_at resets to now; an ETag in the 304 overwrites
// the stored one; any Cache-Control in the 304 is re-parsed and overwrites
// the matching directive fields (fields the 304 doesn't mention keep their
// prior value).
func (s *Service) ApplyRevalidation(e *Entry, responseHeaders http.Header) {
	e.CachedAt = s.now()
	if et := responseHeaders.Get("ETag"); et != "" {
		e.Validators.ETag = et
	}
	if cc := responseHeaders.Get("Cache-Control"); cc != "" {
		fresh := ParseDirectives(cc)
		e.Directives = mergeDirectives(e.Directives, fresh, cc)
	}
}

// mergeDirectives overwrites fields the 304's own Cache-Control header
// actually mentions, leaving the rest of the stored directives untouched.
func mergeDirectives(stored, fresh Directives, raw string) Directives {
	out := stored
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "max-age") && fresh.HasMaxAge {
		out.MaxAge, out.HasMaxAge = fresh.MaxAge, true
	}
	if strings.Contains(lower, "s-maxage") && fresh.HasSMaxAge {
		out.SMaxAge, out.HasSMaxAge = fresh.SMaxAge, true
	}
	out.NoCache = out.NoCache || fresh.NoCache
	out.NoStore = out.NoStore || fresh.NoStore
	out.MustRevalidate = out.MustRevalidate || fresh.MustRevalidate
	out.ProxyRevalidate = out.ProxyRevalidate || fresh.ProxyRevalidate
	out.IsPrivate = out.IsPrivate || fresh.IsPrivate
	out.IsPublic = out.IsPublic || fresh.IsPublic
	return out
}

// MergedHeaders builds the header set spec.md §4.4.5 returns for a
// synthesized 200 after a 304: stored headers overlaid with the 304's own
// filtered headers, later overriding earlier on conflict.
func MergedHeaders(stored http.Header, threeOhFour http.Header) http.Header {
	out := make(http.Header, len(stored))
	for k, vv := range stored {
		cc := make([]string, len(vv))
		copy(cc, vv)
		out[k] = cc
	}
	for k, vv := range threeOhFour {
		out.Del(k)
		for _, v := range vv {
			out.Add(k, v)
		}
	}
	return out
}

func splitVaryNames(vary string) []string {
	parts := strings.Split(vary, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
