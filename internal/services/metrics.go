package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// statusTransitions counts applied status changes by source and target.
	// Both label sets are bounded by the five lifecycle stages.
	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Applied order status transitions.",
		},
		[]string{"from", "to"},
	)

	// backendFallbacks counts mutations applied locally after a backend
	// failure, by operation.
	backendFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_backend_fallbacks_total",
			Help: "Mutations applied to the local snapshot after a backend failure.",
		},
		[]string{"op"},
	)

	// snapshotClients gauges the number of clients in the current snapshot.
	snapshotClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_snapshot_clients",
			Help: "Clients in the current in-memory snapshot.",
		},
	)
)

func init() {
	prometheus.MustRegister(statusTransitions, backendFallbacks, snapshotClients)
}
