// Package obs holds the Prometheus collectors shared by the HTTP layer and services.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "techcare_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "techcare_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "techcare_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// PermissionDenials counts mutations rejected by the role gate.
	PermissionDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "techcare_permission_denials_total",
			Help: "Mutating operations rejected by the role gate.",
		},
		[]string{"action"},
	)

	// AIFallbacks counts suggestion/relevance calls that returned the fallback value.
	AIFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "techcare_ai_fallbacks_total",
			Help: "Assistant calls answered with the fallback value.",
		},
		[]string{"operation"},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{httpInFlight, httpRequestsTotal, httpRequestDuration, PermissionDenials, AIFallbacks} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records in-flight, count and latency per route. route maps a
// request to a low-cardinality label (ids stripped).
func Instrument(next http.Handler, route func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		label := r.URL.Path
		if route != nil {
			label = route(r)
		}

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, label, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, label, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
