// Package lb implements the pluggable per-service load-balancing policies
// of spec.md §4.3: a Balancer picks one healthy host given an already
// materialized healthy-host list, returning nil iff that list is empty.
package lb

import (
	"math/rand/v2"
	"sync/atomic"

	"github.com/mira-labs/edgecache/internal/model"
)

// Balancer selects a single host from a healthy-host list already
// materialized by the caller (the registry).
type Balancer interface {
	Select(healthy []*model.Host) *model.Host
}

// RoundRobin keeps one monotonically increasing counter. Selection reads and
// increments it atomically, then picks index |counter| mod N. Overflow
// wraps via absolute value, matching spec.md §4.3.
//
// A RoundRobin instance is meant to be held one-per-service, keyed by the
// service's domain — never by its display name, which spec.md §9 flags as
// a collision hazard when two services share a name.
type RoundRobin struct {
	counter atomic.Int64
}

func NewRoundRobin() *RoundRobin { return &RoundRobin{} }

func (b *RoundRobin) Select(healthy []*model.Host) *model.Host {
	n := len(healthy)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return healthy[0]
	}
	c := b.counter.Add(1) - 1
	if c < 0 {
		c = -c
	}
	return healthy[int(c)%n]
}

// Random selects uniformly over the healthy hosts using math/rand/v2's
// package-level generator, which is already safe for concurrent use without
// an explicit lock.
type Random struct{}

func NewRandom() *Random { return &Random{} }

func (b *Random) Select(healthy []*model.Host) *model.Host {
	n := len(healthy)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return healthy[0]
	}
	return healthy[rand.IntN(n)]
}

// ForStrategy returns the Balancer implementation for a configured strategy.
func ForStrategy(s model.Strategy) Balancer {
	if s == model.StrategyRandom {
		return NewRandom()
	}
	return NewRoundRobin()
}
