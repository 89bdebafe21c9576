package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	sessionsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "botfleet",
			Subsystem: "sessions",
			Name:      "current",
			Help:      "Registered bot sessions by kind (total, connected, max).",
		},
		[]string{"kind"},
	)
	reconnectAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "botfleet",
			Subsystem: "sessions",
			Name:      "reconnect_attempts_total",
			Help:      "Scheduled reconnection attempts.",
		},
	)
	sessionClosures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "botfleet",
			Subsystem: "sessions",
			Name:      "closures_total",
			Help:      "Sessions that reached the closed state, by cause.",
		},
		[]string{"cause"},
	)
	messagesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "botfleet",
			Subsystem: "sessions",
			Name:      "messages_received_total",
			Help:      "Inbound messages processed across all sessions.",
		},
	)
	pairingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "botfleet",
			Subsystem: "pairing",
			Name:      "requests_total",
			Help:      "Pairing code requests by result.",
		},
		[]string{"result"},
	)
	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "botfleet",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Observer events dropped because a subscriber backlog was full.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "botfleet",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "botfleet",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			sessionsGauge,
			reconnectAttempts,
			sessionClosures,
			messagesReceived,
			pairingRequests,
			eventsDropped,
			httpRequests,
			httpDuration,
		)
	})
}

func SetFleetGauges(total, connected, maxBots int) {
	RegisterMetrics()
	sessionsGauge.WithLabelValues("total").Set(float64(total))
	sessionsGauge.WithLabelValues("connected").Set(float64(connected))
	sessionsGauge.WithLabelValues("max").Set(float64(maxBots))
}

func RecordReconnectAttempt() {
	RegisterMetrics()
	reconnectAttempts.Inc()
}

func RecordSessionClosed(cause string) {
	RegisterMetrics()
	sessionClosures.WithLabelValues(cause).Inc()
}

func RecordMessageReceived() {
	RegisterMetrics()
	messagesReceived.Inc()
}

func RecordPairing(result string) {
	RegisterMetrics()
	pairingRequests.WithLabelValues(result).Inc()
}

func RecordEventDropped() {
	RegisterMetrics()
	eventsDropped.Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
