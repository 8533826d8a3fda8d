package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup kinds used as the "kind" label.
const (
	KindID      = "id"
	KindName    = "name"
	KindHistory = "history"
	KindProfile = "profile"
)

// Metrics holds the Prometheus collectors mirroring the cache counters.
type Metrics struct {
	Lookups       *prometheus.CounterVec
	StoreQueries  *prometheus.CounterVec
	StoreUpdates  prometheus.Counter
	StoreFailures prometheus.Counter
	RemoteQueries prometheus.Counter
	RemoteErrors  prometheus.Counter
}

// New creates the collectors and registers them with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "playercache_lookups_total",
			Help: "Logical lookups served by the cache, by kind",
		}, []string{"kind"}),
		StoreQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "playercache_store_queries_total",
			Help: "Durable store round trips made on cache misses, by kind",
		}, []string{"kind"}),
		StoreUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "playercache_store_updates_total",
			Help: "Write batches forwarded to the durable store",
		}),
		StoreFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "playercache_store_failures_total",
			Help: "Durable store operations that failed",
		}),
		RemoteQueries: factory.NewCounter(prometheus.CounterOpts{
			Name: "playercache_remote_queries_total",
			Help: "Calls made to the remote identity service",
		}),
		RemoteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "playercache_remote_errors_total",
			Help: "Remote identity service calls that failed",
		}),
	}
}

// Inc methods are no-ops on a nil *Metrics.
func (m *Metrics) IncLookup(kind string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncStoreQuery(kind string) {
	if m == nil {
		return
	}
	m.StoreQueries.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncStoreUpdate() {
	if m == nil {
		return
	}
	m.StoreUpdates.Inc()
}

func (m *Metrics) IncStoreFailure() {
	if m == nil {
		return
	}
	m.StoreFailures.Inc()
}

func (m *Metrics) IncRemoteQuery() {
	if m == nil {
		return
	}
	m.RemoteQueries.Inc()
}

func (m *Metrics) IncRemoteError() {
	if m == nil {
		return
	}
	m.RemoteErrors.Inc()
}
