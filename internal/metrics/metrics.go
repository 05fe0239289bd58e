package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smarttalk_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smarttalk_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Socket metrics
	SocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smarttalk_socket_connections",
			Help: "Currently connected websocket clients",
		},
	)

	HandshakeRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smarttalk_handshake_rejections_total",
			Help: "Rejected websocket handshakes",
		},
		[]string{"reason"},
	)

	MessagesRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smarttalk_messages_routed_total",
			Help: "Inbound chat messages routed",
		},
		[]string{"kind"}, // "plain" or "assistant"
	)

	BroadcastsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smarttalk_broadcasts_dropped_total",
			Help: "Frames dropped because a client send buffer was full",
		},
	)

	// Completion metrics
	CompletionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smarttalk_completion_duration_seconds",
			Help:    "AI completion call duration",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	CompletionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smarttalk_completion_failures_total",
			Help: "Failed AI completion calls",
		},
		[]string{"reason"}, // "provider", "timeout" or "empty"
	)

	// Persistence metrics
	PersistenceFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smarttalk_persistence_failures_total",
			Help: "Message appends that failed and were delivered unpersisted",
		},
	)
)
