package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stalk_connections_active",
			Help: "Currently open client connections",
		},
	)

	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stalk_connections_total",
			Help: "Total client connections accepted",
		},
		[]string{"verified"}, // "true" or "false"
	)

	// Event metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stalk_events_total",
			Help: "Total inbound events processed",
		},
		[]string{"event"},
	)

	EventErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stalk_event_errors_total",
			Help: "Total events that failed with an internal error",
		},
		[]string{"event"},
	)

	// Business metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stalk_messages_sent_total",
			Help: "Total messages persisted",
		},
	)

	CallsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stalk_calls_relayed_total",
			Help: "Total call signaling payloads relayed",
		},
		[]string{"type"}, // "offer", "answer", "ice", "end"
	)

	// Login throttle metrics
	LoginFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stalk_login_failures_total",
			Help: "Total failed login attempts",
		},
	)

	LoginBans = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stalk_login_bans_total",
			Help: "Total subnet bans issued",
		},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stalk_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stalk_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)
)
