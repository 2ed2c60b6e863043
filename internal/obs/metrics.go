package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections",
		Help: "Open realtime notification connections.",
	})

	notificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notifications persisted, by recipient kind.",
		},
		[]string{"kind"},
	)

	pushDispatchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_dispatch_failures_total",
		Help: "Best-effort push deliveries that failed after the notification was persisted.",
	})
)

// Init registers all service metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		wsConnections,
		notificationsCreated,
		pushDispatchFailures,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RealtimeConnectionOpened / RealtimeConnectionClosed track the connection gauge.
func RealtimeConnectionOpened() { wsConnections.Inc() }

func RealtimeConnectionClosed() { wsConnections.Dec() }

// NotificationCreated counts a persisted notification for the given recipient kind.
func NotificationCreated(kind string) {
	notificationsCreated.WithLabelValues(kind).Inc()
}

// PushDispatchFailed counts a swallowed push-provider failure.
func PushDispatchFailed() { pushDispatchFailures.Inc() }

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses resource identifiers so metric label cardinality
// stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(segments) >= 3 && segments[0] == "v1":
		switch segments[1] {
		case "notifications", "properties", "saved-properties", "users", "agents", "subscriptions":
			segments[2] = ":id"
		case "zipforms":
			if segments[2] == "webhooks" && len(segments) == 4 {
				segments[3] = ":scope"
			}
		}
	}
	return "/" + strings.Join(segments, "/")
}

// statusWriter records the response code for metric labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
