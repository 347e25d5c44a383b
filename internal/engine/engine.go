// Package engine implements the ProxyEngine of spec.md §4.6: the request
// pipeline that ties host resolution, the cache, the load balancer, and
// upstream forwarding together into a single http.Handler.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mira-labs/edgecache/internal/cache"
	"github.com/mira-labs/edgecache/internal/headers"
	"github.com/mira-labs/edgecache/internal/lb"
	"github.com/mira-labs/edgecache/internal/metrics"
	"github.com/mira-labs/edgecache/internal/registry"
)

// DefaultMaxBodyBytes is the hard request-body cap of spec.md §4.6 step 1.
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	UpstreamTimeout time.Duration
	MaxBodyBytes    int64
	Metrics         *metrics.Registry // optional
	Logger          *slog.Logger      // optional, defaults to slog.Default()
}

// Engine orchestrates the pipeline of spec.md §4.6. It is stateless beyond
// its constructor arguments; all mutable state (health bits, cache
// entries, round-robin counters) lives in the registry, cache, and
// balancers it holds references to.
type Engine struct {
	registry  *registry.Registry
	cache     *cache.Service
	balancers map[string]lb.Balancer // keyed by service domain, not name (spec.md §9)
	client    *http.Client

	upstreamTimeout time.Duration
	maxBodyBytes    int64

	metrics *metrics.Registry
	log     *slog.Logger
}

var _ http.Handler = (*Engine)(nil)

// New builds an Engine. transport is the shared RoundTripper every
// forwarded request and the response body read use; the caller owns its
// lifecycle.
func New(reg *registry.Registry, cacheSvc *cache.Service, transport http.RoundTripper, opts Options) *Engine {
	upstreamTimeout := opts.UpstreamTimeout
	if upstreamTimeout <= 0 {
		upstreamTimeout = 30 * time.Second
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	balancers := make(map[string]lb.Balancer)
	for _, svc := range reg.Services() {
		balancers[svc.Domain] = lb.ForStrategy(svc.Strategy)
	}

	return &Engine{
		registry:        reg,
		cache:           cacheSvc,
		balancers:       balancers,
		client:          &http.Client{Transport: transport},
		upstreamTimeout: upstreamTimeout,
		maxBodyBytes:    maxBody,
		metrics:         opts.Metrics,
		log:             logger,
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func isBodiedMethod(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := uuid.NewString()
	log := e.log.With("request_id", reqID, "method", r.Method, "path", r.URL.Path)

	sw := &statusWriter{ResponseWriter: w}
	var serviceName, upstreamAddr string
	defer func() {
		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		log.Info("request handled", "status", status, "duration_ms", d.Milliseconds(), "bytes", sw.bytes, "service", serviceName, "upstream", upstreamAddr)
		if e.metrics != nil {
			e.metrics.ObserveRequest(serviceName, r.Method, strconv.Itoa(status), d)
		}
	}()

	body, perr := e.readBody(r)
	if perr != nil {
		writeError(sw, perr)
		return
	}

	if r.Host == "" {
		writeError(sw, errMissingHost())
		return
	}

	svc, ok := e.registry.Resolve(r.Host)
	if !ok {
		writeError(sw, errUnknownHost())
		return
	}
	serviceName = svc.Name

	pathWithQuery := r.URL.Path
	if r.URL.RawQuery != "" {
		pathWithQuery += "?" + r.URL.RawQuery
	}

	safe := isSafeMethod(r.Method)
	if !safe {
		e.cache.InvalidateUnsafe(svc.Domain, pathWithQuery)
	}

	var revalHeaders http.Header
	var stale *cache.Entry
	if safe {
		if entry, hit := e.cache.Lookup(r.Method, svc.Domain, pathWithQuery, r.Header); hit {
			if entry.Fresh(time.Now()) {
				e.incCacheHit()
				e.serveCached(sw, entry, r.Method == http.MethodHead)
				return
			}
			revalHeaders = cache.RevalidationHeaders(entry)
			stale = entry
		} else {
			e.incCacheMiss()
		}
	}

	healthy := e.registry.HealthyHosts(svc)
	if len(healthy) == 0 {
		log.Warn("no healthy host", "service", svc.Name)
		writeError(sw, errNoHealthyHost())
		return
	}

	balancer := e.balancers[svc.Domain]
	host := balancer.Select(healthy)
	if host == nil {
		log.Warn("load balancer returned no host", "service", svc.Name)
		writeError(sw, errNoHealthyHost())
		return
	}
	upstreamAddr = host.HostPort()
	if e.metrics != nil {
		e.metrics.IncLBSelection(svc.Name, upstreamAddr)
	}

	upstreamURL := fmt.Sprintf("http://%s%s", upstreamAddr, pathWithQuery)

	outHeaders := headers.PrepareUpstream(r.Header, r.RemoteAddr, "http", r.Host)
	if revalHeaders != nil {
		headers.Merge(outHeaders, revalHeaders)
	}

	var bodyReader io.Reader
	if isBodiedMethod(r.Method) {
		bodyReader = bytes.NewReader(body)
	}

	ctx, cancel := context.WithTimeout(r.Context(), e.upstreamTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, r.Method, upstreamURL, bodyReader)
	if err != nil {
		writeError(sw, errInternal(err))
		return
	}
	req.Header = outHeaders

	resp, err := e.client.Do(req)
	if err != nil {
		log.Warn("upstream transport error", "host", upstreamAddr, "error", err)
		e.registry.MarkUnhealthy(svc, host)
		writeError(sw, errUpstreamTransport(err))
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("upstream response read error", "host", upstreamAddr, "error", err)
		writeError(sw, errUpstreamTransport(err))
		return
	}
	respHeaders := headers.PrepareDownstream(resp.Header)

	if resp.StatusCode == http.StatusNotModified && stale != nil {
		e.cache.ApplyRevalidation(stale, respHeaders)
		merged := cache.MergedHeaders(stale.Headers, respHeaders)
		e.writeResponse(sw, http.StatusOK, merged, stale.Body, r.Method == http.MethodHead)
		return
	}

	if safe && resp.StatusCode == http.StatusOK {
		e.cache.Insert(r.Method, svc.Domain, pathWithQuery, r.Header, respHeaders, resp.StatusCode, respBody)
		if e.metrics != nil && cache.Insertable(resp.StatusCode, respHeaders) {
			e.metrics.CacheInserts.Inc()
		}
	}

	e.writeResponse(sw, resp.StatusCode, respHeaders, respBody, r.Method == http.MethodHead)
}

func (e *Engine) writeResponse(w http.ResponseWriter, status int, h http.Header, body []byte, headOnly bool) {
	for k, vv := range h {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(status)
	if headOnly {
		return
	}
	_, _ = w.Write(body)
}

// serveCached writes a fresh cache hit directly to the client without
// contacting upstream.
func (e *Engine) serveCached(w http.ResponseWriter, entry *cache.Entry, headOnly bool) {
	e.writeResponse(w, entry.Status, entry.Headers, entry.Body, headOnly)
}

func (e *Engine) readBody(r *http.Request) ([]byte, *PipelineError) {
	defer r.Body.Close()
	limited := io.LimitReader(r.Body, e.maxBodyBytes+1)
	b, err := io.ReadAll(limited)
	if err != nil {
		return nil, errInternal(err)
	}
	if int64(len(b)) > e.maxBodyBytes {
		return nil, errBodyTooLarge()
	}
	return b, nil
}

func (e *Engine) incCacheHit() {
	if e.metrics != nil {
		e.metrics.CacheHits.Inc()
	}
}

func (e *Engine) incCacheMiss() {
	if e.metrics != nil {
		e.metrics.CacheMisses.Inc()
	}
}
