package notify

import "github.com/prometheus/client_golang/prometheus"

// Result label values for notificationsTotal.
const (
	resultSent     = "sent"
	resultFailed   = "failed"
	resultDisabled = "disabled"
)

var (
	// notificationsTotal counts dispatch attempts by channel and result.
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification dispatch attempts by channel and result.",
		},
		[]string{"channel", "result"},
	)

	// notifyLatency records hand-off latency; it excludes rendering.
	notifyLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_handoff_duration_seconds",
			Help:    "Duration of notification hand-offs in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)
)

func init() {
	prometheus.MustRegister(notificationsTotal, notifyLatency)
}
