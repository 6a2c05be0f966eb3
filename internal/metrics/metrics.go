// Package metrics exposes Prometheus instrumentation for the review engine
// and its HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every admit collector. A dedicated registry keeps tests
// free of duplicate-registration panics from the default one.
var Registry = prometheus.NewRegistry()

var (
	engineOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admit_engine_operations_total",
			Help: "Review session operations by name and result",
		},
		[]string{"op", "result"},
	)

	saves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admit_saves_total",
			Help: "Save attempts by result (saved, needs_confirmation, error)",
		},
		[]string{"result"},
	)

	unverifiedAtSave = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "admit_unverified_at_save",
			Help:    "Unverified authority criteria per committed save",
			Buckets: []float64{0, 1, 2, 4, 8},
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admit_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admit_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(engineOperations, saves, unverifiedAtSave, httpRequests, httpDuration)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordOperation counts one engine operation.
func RecordOperation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	engineOperations.WithLabelValues(op, result).Inc()
}

// RecordSave counts a save attempt. unverified is observed only for
// committed saves.
func RecordSave(result string, unverified int) {
	saves.WithLabelValues(result).Inc()
	if result == "saved" {
		unverifiedAtSave.Observe(float64(unverified))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.status = http.StatusOK
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// Middleware records request count and latency. Routes are labelled by the
// ServeMux pattern to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
