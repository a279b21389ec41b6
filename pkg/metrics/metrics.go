package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebound_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// MessagesSent counts messages accepted by the conversation store.
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rebound_messages_sent_total",
			Help: "Total number of direct messages stored",
		},
	)

	// NotificationFanout counts notification writes by type and result (ok|error).
	NotificationFanout = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebound_notification_fanout_total",
			Help: "Total number of notification fan-out writes",
		},
		[]string{"type", "result"},
	)

	// RealtimeDeliveries counts realtime events enqueued to connected clients per stream.
	RealtimeDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebound_realtime_deliveries_total",
			Help: "Total number of realtime events enqueued for delivery",
		},
		[]string{"stream"},
	)

	// RealtimeDrops counts realtime events dropped due to slow or absent subscribers.
	RealtimeDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebound_realtime_drops_total",
			Help: "Total number of realtime events dropped",
		},
		[]string{"stream", "reason"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rebound_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
