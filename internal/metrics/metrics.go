// Package metrics exposes Prometheus counters for catalog lookups and
// resource cache activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "xmlcatalog"

// Lookup outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
)

// Cache events.
const (
	EventHit    = "hit"
	EventMiss   = "miss"
	EventStore  = "store"
	EventExpire = "expire"
	EventEvict  = "evict"
	EventDelete = "delete"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	lookups     *prometheus.CounterVec
	cacheEvents *prometheus.CounterVec
}

// New creates the collectors and registers them on reg when reg is not nil.
// Collectors already registered on reg are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Catalog lookups by identifier kind and outcome.",
		}, []string{"kind", "outcome"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Resource cache events.",
		}, []string{"event"}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.lookups, err = register(reg, m.lookups); err != nil {
		return nil, err
	}
	if m.cacheEvents, err = register(reg, m.cacheEvents); err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

// Lookup records one lookup of kind.
func (m *Metrics) Lookup(kind string, found bool) {
	if m == nil {
		return
	}
	outcome := OutcomeNotFound
	if found {
		outcome = OutcomeFound
	}
	m.lookups.WithLabelValues(kind, outcome).Inc()
}

// CacheEvent records one cache event.
func (m *Metrics) CacheEvent(event string) {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues(event).Inc()
}
