// Package metrics exposes Prometheus collectors for the broadcast and offer
// paths. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "collectibles"

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	broadcasts      prometheus.Counter
	deliveries      prometheus.Counter
	droppedSessions prometheus.Counter
	openSessions    prometheus.Gauge
	priceUpdates    *prometheus.CounterVec
	offersAccepted  prometheus.Counter
	offersRejected  *prometheus.CounterVec
	persistFailures prometheus.Counter
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_broadcasts_total",
			Help:      "Price change events fanned out to sessions.",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_deliveries_total",
			Help:      "Successful per-session price deliveries.",
		}),
		droppedSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_sessions_dropped_total",
			Help:      "Sessions removed after a failed send.",
		}),
		openSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_sessions_open",
			Help:      "Currently registered WebSocket sessions.",
		}),
		priceUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_updates_total",
			Help:      "Price update requests by result.",
		}, []string{"result"}),
		offersAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_accepted_total",
			Help:      "Offers recorded in the ledger.",
		}),
		offersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_rejected_total",
			Help:      "Offer submissions rejected, by field or reason.",
		}, []string{"reason"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_persist_failures_total",
			Help:      "Ledger snapshot writes that failed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.broadcasts,
		m.deliveries,
		m.droppedSessions,
		m.openSessions,
		m.priceUpdates,
		m.offersAccepted,
		m.offersRejected,
		m.persistFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveBroadcast(delivered, dropped int) {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
	m.deliveries.Add(float64(delivered))
	m.droppedSessions.Add(float64(dropped))
}

func (m *Metrics) SetOpenSessions(n int) {
	if m == nil {
		return
	}
	m.openSessions.Set(float64(n))
}

// PriceUpdate counts one update attempt; result is "ok", "invalid",
// "not_found" or "error".
func (m *Metrics) PriceUpdate(result string) {
	if m == nil {
		return
	}
	m.priceUpdates.WithLabelValues(result).Inc()
}

func (m *Metrics) OfferAccepted() {
	if m == nil {
		return
	}
	m.offersAccepted.Inc()
}

func (m *Metrics) OfferRejected(reason string) {
	if m == nil {
		return
	}
	m.offersRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}
