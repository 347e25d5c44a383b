// Package health runs the active liveness sweep described in spec.md §4.5:
// on a fixed interval, probe every configured host's /health endpoint and
// flip its registry health bit accordingly. Probes for different hosts run
// concurrently, bounded by a worker pool rather than one goroutine per host.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alitto/pond"

	"github.com/mira-labs/edgecache/internal/metrics"
	"github.com/mira-labs/edgecache/internal/model"
	"github.com/mira-labs/edgecache/internal/registry"
)

const (
	DefaultInterval     = 30 * time.Second
	DefaultInitialDelay = 2 * time.Second
	DefaultProbeTimeout = 3 * time.Second
	DefaultPoolSize     = 16
	DefaultQueueSize    = 1024
)

// Options configures a Checker. Zero values fall back to the defaults
// above.
type Options struct {
	Interval     time.Duration
	InitialDelay time.Duration
	ProbeTimeout time.Duration
	PoolSize     int

	Metrics *metrics.Registry // optional
	Logger  *slog.Logger      // optional, defaults to slog.Default()
}

// Checker periodically probes every host in a Registry and records the
// result back into it.
type Checker struct {
	reg    *registry.Registry
	client *http.Client
	pool   *pond.WorkerPool

	interval     time.Duration
	initialDelay time.Duration
	probeTimeout time.Duration

	metrics *metrics.Registry
	log     *slog.Logger
}

func New(reg *registry.Registry, opts Options) *Checker {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	initialDelay := opts.InitialDelay
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}
	probeTimeout := opts.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Checker{
		reg:          reg,
		client:       &http.Client{Timeout: probeTimeout},
		pool:         pond.New(poolSize, DefaultQueueSize),
		interval:     interval,
		initialDelay: initialDelay,
		probeTimeout: probeTimeout,
		metrics:      opts.Metrics,
		log:          logger,
	}
}

// Run blocks, sweeping on a ticker until ctx is cancelled. The first sweep
// fires after the configured initial delay, giving freshly started
// upstreams time to come up before their first probe.
func (c *Checker) Run(ctx context.Context) {
	timer := time.NewTimer(c.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.pool.StopAndWait()
			return
		case <-timer.C:
			c.sweep(ctx)
			timer.Reset(c.interval)
		}
	}
}

// sweep fans every host of every service out to the worker pool and blocks
// until the whole round completes.
func (c *Checker) sweep(ctx context.Context) {
	services := c.reg.Services()

	var wg sync.WaitGroup
	for i := range services {
		svc := &services[i]
		for _, host := range svc.Hosts {
			host := host
			wg.Add(1)
			c.pool.Submit(func() {
				defer wg.Done()
				c.probe(ctx, svc, host)
			})
		}
	}
	wg.Wait()

	if c.metrics != nil {
		for i := range services {
			svc := &services[i]
			c.metrics.SetHealthyHosts(svc.Name, len(c.reg.HealthyHosts(svc)))
		}
	}
}

func (c *Checker) probe(ctx context.Context, svc *model.Service, host *model.Host) {
	reqCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	url := fmt.Sprintf("http://%s/health", host.HostPort())
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		c.reg.MarkUnhealthy(svc, host)
		return
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("health probe failed", "service", svc.Name, "host", host.HostPort(), "error", err)
		c.reg.MarkUnhealthy(svc, host)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if !c.reg.IsHealthy(svc, host) {
			c.log.Info("host recovered", "service", svc.Name, "host", host.HostPort())
		}
		c.reg.MarkHealthy(svc, host)
		return
	}

	if c.reg.IsHealthy(svc, host) {
		c.log.Warn("host failed health probe", "service", svc.Name, "host", host.HostPort(), "status", resp.StatusCode)
	}
	c.reg.MarkUnhealthy(svc, host)
}

// Stop releases the underlying worker pool immediately, without waiting for
// in-flight probes. Prefer cancelling the context passed to Run for a
// graceful shutdown.
func (c *Checker) Stop() {
	c.pool.Stop()
}
