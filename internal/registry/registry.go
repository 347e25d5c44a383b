// Package registry holds the immutable service/host configuration and the
// mutable liveness model on top of it (spec.md §4.2).
package registry

import (
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/mira-labs/edgecache/internal/model"
)

type healthState struct {
	healthy       bool
	lastCheckedAt time.Time
}

// Registry maps canonical host -> Service and tracks per-host health bits.
//
// The domain index and the per-service host slices are built once at
// construction and never mutated, so lookups need no lock. Health bits are
// the only mutable state and live in an xsync.Map keyed by a stable
// "serviceIndex:hostIndex" identity, giving the acquire/release semantics
// spec.md §5 requires without a registry-wide mutex.
type Registry struct {
	services []model.Service
	byDomain map[string]int // canonical domain -> index into services

	health *xsync.Map[string, *healthState]
}

// New builds a Registry from an ordered list of services. All hosts start
// healthy unless initiallyHealthy is false.
func New(services []model.Service, initiallyHealthy bool) *Registry {
	r := &Registry{
		services: services,
		byDomain: make(map[string]int, len(services)),
		health:   xsync.NewMap[string, *healthState](),
	}
	for i, svc := range services {
		r.byDomain[strings.ToLower(svc.Domain)] = i
		for j := range svc.Hosts {
			r.health.Store(healthKey(i, j), &healthState{healthy: initiallyHealthy, lastCheckedAt: time.Time{}})
		}
	}
	return r
}

func healthKey(serviceIdx, hostIdx int) string {
	return itoa(serviceIdx) + ":" + itoa(hostIdx)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Resolve normalizes hostHeader and looks up the matching Service. Returns
// (nil, false) on no match — the engine translates that to a 404.
func (r *Registry) Resolve(hostHeader string) (*model.Service, bool) {
	key := NormalizeHost(hostHeader)
	if key == EmptyHost {
		return nil, false
	}
	idx, ok := r.byDomain[key]
	if !ok {
		return nil, false
	}
	return &r.services[idx], true
}

// serviceIndex returns the index of svc within the registry by pointer
// identity, used to key health state stably (spec.md §9: key by identity,
// not display name).
func (r *Registry) serviceIndex(svc *model.Service) int {
	for i := range r.services {
		if &r.services[i] == svc {
			return i
		}
	}
	return -1
}

// HealthyHosts materializes the subsequence of svc.Hosts whose health bit is
// set, preserving configured order (required for round-robin determinism).
func (r *Registry) HealthyHosts(svc *model.Service) []*model.Host {
	si := r.serviceIndex(svc)
	if si < 0 {
		return nil
	}
	out := make([]*model.Host, 0, len(svc.Hosts))
	for j, h := range svc.Hosts {
		if st, ok := r.health.Load(healthKey(si, j)); ok && st.healthy {
			out = append(out, h)
		}
	}
	return out
}

// IsHealthy reports the current health bit for a specific host of svc.
func (r *Registry) IsHealthy(svc *model.Service, host *model.Host) bool {
	si := r.serviceIndex(svc)
	hi := hostIndex(svc, host)
	if si < 0 || hi < 0 {
		return false
	}
	st, ok := r.health.Load(healthKey(si, hi))
	return ok && st.healthy
}

// MarkHealthy flips the health bit on for host within svc. Idempotent.
func (r *Registry) MarkHealthy(svc *model.Service, host *model.Host) {
	r.setHealth(svc, host, true)
}

// MarkUnhealthy flips the health bit off for host within svc. Idempotent.
func (r *Registry) MarkUnhealthy(svc *model.Service, host *model.Host) {
	r.setHealth(svc, host, false)
}

func (r *Registry) setHealth(svc *model.Service, host *model.Host, healthy bool) {
	si := r.serviceIndex(svc)
	hi := hostIndex(svc, host)
	if si < 0 || hi < 0 {
		return
	}
	r.health.Store(healthKey(si, hi), &healthState{healthy: healthy, lastCheckedAt: time.Now()})
}

func hostIndex(svc *model.Service, host *model.Host) int {
	for i, h := range svc.Hosts {
		if h == host {
			return i
		}
	}
	return -1
}

// Services returns the full, immutable service list in configured order —
// used by the health checker to enumerate every host to probe.
func (r *Registry) Services() []model.Service {
	return r.services
}
