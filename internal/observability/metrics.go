package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	patchesApplied  prometheus.Counter
	patchesDropped  prometheus.Counter
	archivesBuilt   prometheus.Counter
	archivesFailed  prometheus.Counter
}

// NewMetrics initialises the registry and the base metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hostdesk_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hostdesk_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	patchesApplied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostdesk_recon_patches_applied_total",
		Help: "Inbound reconciliation patches applied successfully.",
	})
	patchesDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostdesk_recon_patches_dropped_total",
		Help: "Inbound reconciliation patches rejected and dropped.",
	})
	archivesBuilt := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostdesk_archive_bundles_built_total",
		Help: "Archive bundles built successfully.",
	})
	archivesFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostdesk_archive_bundles_failed_total",
		Help: "Archive bundle builds that failed.",
	})
	registry.MustRegister(requests, duration, patchesApplied, patchesDropped, archivesBuilt, archivesFailed)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		patchesApplied:  patchesApplied,
		patchesDropped:  patchesDropped,
		archivesBuilt:   archivesBuilt,
		archivesFailed:  archivesFailed,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// IncPatchApplied counts a successfully applied inbound patch.
func (m *Metrics) IncPatchApplied() {
	if m != nil {
		m.patchesApplied.Inc()
	}
}

// IncPatchDropped counts a rejected inbound patch.
func (m *Metrics) IncPatchDropped() {
	if m != nil {
		m.patchesDropped.Inc()
	}
}

// IncArchiveBuilt counts a completed archive bundle.
func (m *Metrics) IncArchiveBuilt() {
	if m != nil {
		m.archivesBuilt.Inc()
	}
}

// IncArchiveFailed counts a failed archive build.
func (m *Metrics) IncArchiveFailed() {
	if m != nil {
		m.archivesFailed.Inc()
	}
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
