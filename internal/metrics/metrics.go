// Package metrics wires the proxy's observable counters to Prometheus's
// client library, replacing a hand-rolled text exporter with the real
// client used elsewhere in the retrieval pack (kcp-dev/kcp,
// mercator-hq/jupiter, pokt-network/taiji all vendor
// prometheus/client_golang directly).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Registry holds every metric series this proxy exposes.
type Registry struct {
	reg *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	CacheInserts    prometheus.Counter
	CacheEvictions  prometheus.Counter
	HealthyHosts    *prometheus.GaugeVec
	LBSelections    *prometheus.CounterVec
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proxy_requests_total",
			Help: "Total number of downstream requests handled.",
		}, []string{"service", "method", "status"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proxy_upstream_latency_seconds",
			Help:    "Time to handle a downstream request end to end, in seconds, including cache hits and locally generated errors.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_hits_total",
			Help: "Total cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_misses_total",
			Help: "Total cache misses.",
		}),
		CacheInserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_inserts_total",
			Help: "Total cache insertions.",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_evictions_total",
			Help: "Total LRU evictions.",
		}),
		HealthyHosts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "proxy_healthy_hosts",
			Help: "Number of hosts currently marked healthy, per service.",
		}, []string{"service"}),
		LBSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proxy_lb_selections_total",
			Help: "Total load-balancer selections, per service and host.",
		}, []string{"service", "host"}),
	}

	reg.MustRegister(
		r.RequestsTotal,
		r.UpstreamLatency,
		r.CacheHits,
		r.CacheMisses,
		r.CacheInserts,
		r.CacheEvictions,
		r.HealthyHosts,
		r.LBSelections,
	)
	return r
}

// Handler returns the /metrics http.Handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Registry) ObserveRequest(service, method, status string, d time.Duration) {
	r.RequestsTotal.WithLabelValues(service, method, status).Inc()
	r.UpstreamLatency.WithLabelValues(service).Observe(d.Seconds())
}

func (r *Registry) IncLBSelection(service, host string) {
	r.LBSelections.WithLabelValues(service, host).Inc()
}

func (r *Registry) SetHealthyHosts(service string, n int) {
	r.HealthyHosts.WithLabelValues(service).Set(float64(n))
}
