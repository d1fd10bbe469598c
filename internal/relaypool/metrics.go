package relaypool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// poolMetrics holds the pool's prometheus collectors. The collectors always
// exist so call sites stay unconditional; they are only registered when the
// config supplies a Registerer.
type poolMetrics struct {
	eventsReceived  *prometheus.CounterVec
	duplicateEvents *prometheus.CounterVec
	queueDrops      *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	reconnects      prometheus.Counter
	connectAttempts prometheus.Counter
}

func newPoolMetrics(reg prometheus.Registerer) *poolMetrics {
	m := &poolMetrics{
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaypool",
			Name:      "events_received_total",
			Help:      "Distinct content events seen, per relay.",
		}, []string{"relay"}),
		duplicateEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaypool",
			Name:      "duplicate_events_total",
			Help:      "Content events already present in the dedup ledger, per relay.",
		}, []string{"relay"}),
		queueDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaypool",
			Name:      "queue_dropped_total",
			Help:      "Outbound requests refused because the per-relay queue bound was hit.",
		}, []string{"relay"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relaypool",
			Name:      "queue_depth",
			Help:      "Total outbound requests currently queued across all relays.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relaypool",
			Name:      "stale_reconnects_total",
			Help:      "Force-reconnects of connections stuck in the connecting state.",
		}),
		connectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relaypool",
			Name:      "connect_attempts_total",
			Help:      "Connect attempts started by the reconciliation pass.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.eventsReceived,
			m.duplicateEvents,
			m.queueDrops,
			m.queueDepth,
			m.reconnects,
			m.connectAttempts,
		)
	}
	return m
}
