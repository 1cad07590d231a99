// Package metrics exposes Prometheus instrumentation for the portal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests processed, by method, path and status code.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	leadsSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_leads_saved_total",
			Help: "Lead records written, by category and operation.",
		},
		[]string{"category", "operation"},
	)

	statusUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_status_updates_total",
			Help: "Lead status transitions, by category and resulting status.",
		},
		[]string{"category", "status"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_events_published_total",
			Help: "Notification events fanned out, by event name.",
		},
		[]string{"event"},
	)

	storeRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_store_retries_total",
			Help: "Store operations that needed a retry.",
		},
	)

	wsClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_websocket_clients",
			Help: "Currently connected websocket clients.",
		},
	)
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		leadsSaved,
		statusUpdates,
		eventsPublished,
		storeRetries,
		wsClients,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// RecordLeadSaved counts a lead write.
func RecordLeadSaved(category string, created bool) {
	op := "update"
	if created {
		op = "create"
	}
	leadsSaved.WithLabelValues(category, op).Inc()
}

// RecordStatusUpdate counts a status transition.
func RecordStatusUpdate(category, status string) {
	statusUpdates.WithLabelValues(category, status).Inc()
}

// RecordEventPublished counts a fanned-out event.
func RecordEventPublished(event string) {
	eventsPublished.WithLabelValues(event).Inc()
}

// RecordStoreRetry counts a retried store call.
func RecordStoreRetry() {
	storeRetries.Inc()
}

// SetWebsocketClients tracks the live client count.
func SetWebsocketClients(n int) {
	wsClients.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument wraps an HTTP handler with request counting and latency
// observation. path should be the route pattern, not the raw URL, to
// keep label cardinality bounded.
func Instrument(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
