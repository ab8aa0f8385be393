package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sc2ctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests seen by the peer-side server.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sc2ctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sc2ctl",
			Subsystem: "session",
			Name:      "exchanges_total",
			Help:      "Client exchanges by request kind and error class.",
		},
		[]string{"kind", "class"},
	)
	exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sc2ctl",
			Subsystem: "session",
			Name:      "exchange_duration_seconds",
			Help:      "Client exchange duration in seconds, write through validation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"kind"},
	)
	handshakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sc2ctl",
			Subsystem: "session",
			Name:      "handshakes_total",
			Help:      "Connection establishment outcomes.",
		},
		[]string{"result"},
	)
	handshakeAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sc2ctl",
			Subsystem: "session",
			Name:      "handshake_attempts",
			Help:      "Dial attempts needed per connection establishment.",
			Buckets:   prometheus.LinearBuckets(1, 5, 8),
		},
	)
	handshakeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sc2ctl",
			Subsystem: "session",
			Name:      "handshake_duration_seconds",
			Help:      "Connection establishment duration in seconds, retries included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			exchanges, exchangeDuration,
			handshakes, handshakeAttempts, handshakeDuration,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordExchange counts one client exchange. class is "none" on success.
func RecordExchange(kind, class string, duration time.Duration) {
	RegisterMetrics()
	exchanges.WithLabelValues(kind, class).Inc()
	exchangeDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordHandshake(result string, attempts int, duration time.Duration) {
	RegisterMetrics()
	handshakes.WithLabelValues(result).Inc()
	handshakeAttempts.Observe(float64(attempts))
	handshakeDuration.WithLabelValues(result).Observe(duration.Seconds())
}
