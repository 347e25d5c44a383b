// Package transport builds the outbound HTTP/1.1 transport used to reach
// backend hosts (spec.md §6: plain HTTP, no TLS, connection reuse
// desirable). Health probes use their own client in internal/health.
package transport

import (
	"net"
	"net/http"
	"time"
)

// Options tunes the shared transport. No TLS knobs exist here — spec.md §1
// Non-goals excludes TLS termination, and this proxy never dials upstream
// over https.
type Options struct {
	DialTimeout   time.Duration
	DialKeepAlive time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	MaxConnsPerHost     int // 0 = unlimited

	ExpectContinueTimeout time.Duration
	ResponseHeaderTimeout time.Duration // optional, 0 disables
}

func DefaultOptions() Options {
	return Options{
		DialTimeout:           5 * time.Second,
		DialKeepAlive:         60 * time.Second,
		MaxIdleConns:          512,
		MaxIdleConnsPerHost:   128,
		IdleConnTimeout:       90 * time.Second,
		MaxConnsPerHost:       0,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// New builds a single *http.Transport strictly for plain HTTP/1.1 upstream
// traffic, shared across every forwarded request.
func New(opts Options) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   opts.DialTimeout,
		KeepAlive: opts.DialKeepAlive,
	}
	tr := &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     false,
		MaxIdleConns:          opts.MaxIdleConns,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       opts.IdleConnTimeout,
		MaxConnsPerHost:       opts.MaxConnsPerHost,
		ExpectContinueTimeout: opts.ExpectContinueTimeout,
	}
	if opts.ResponseHeaderTimeout > 0 {
		tr.ResponseHeaderTimeout = opts.ResponseHeaderTimeout
	}
	return tr
}
