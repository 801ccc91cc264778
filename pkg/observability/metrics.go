package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Assembly metrics
	BuildsTotal          *prometheus.CounterVec
	BuildDuration        prometheus.Histogram
	StepDuration         *prometheus.HistogramVec
	RegistrySourceTotal  *prometheus.CounterVec
	PluginsDiscovered    prometheus.Gauge
	NamespacesRegistered prometheus.Gauge
	RulesAppliedTotal    *prometheus.CounterVec
	RulesSkippedTotal    *prometheus.CounterVec

	// Resolver cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Snapshot storage metrics
	SnapshotOperationsTotal   *prometheus.CounterVec
	SnapshotOperationDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hub_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Assembly metrics
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_assembly_builds_total",
				Help: "Total number of container assemblies",
			},
			[]string{"status"},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hub_assembly_build_duration_seconds",
				Help:    "Container assembly duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hub_assembly_step_duration_seconds",
				Help:    "Duration of a single assembly step in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"step"},
		),
		RegistrySourceTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_registry_source_total",
				Help: "Where the plugin registry of an assembly came from",
			},
			[]string{"source"},
		),
		PluginsDiscovered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hub_plugins_discovered",
				Help: "Number of plugins in the last assembled registry",
			},
		),
		NamespacesRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hub_namespaces_registered",
				Help: "Number of namespace roots in the last assembled container",
			},
		),
		RulesAppliedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_rules_applied_total",
				Help: "Total number of replace and proxy rules added to a table",
			},
			[]string{"kind"},
		),
		RulesSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_rules_skipped_total",
				Help: "Total number of rules skipped during assembly",
			},
			[]string{"kind", "reason"},
		),

		// Resolver cache metrics
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),

		// Snapshot storage metrics
		SnapshotOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_snapshot_operations_total",
				Help: "Total number of registry snapshot operations",
			},
			[]string{"operation", "backend", "status"},
		),
		SnapshotOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hub_snapshot_operation_duration_seconds",
				Help:    "Registry snapshot operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "backend"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.BuildsTotal,
		m.BuildDuration,
		m.StepDuration,
		m.RegistrySourceTotal,
		m.PluginsDiscovered,
		m.NamespacesRegistered,
		m.RulesAppliedTotal,
		m.RulesSkippedTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.SnapshotOperationsTotal,
		m.SnapshotOperationDuration,
	)

	return m
}

// ObserveStep records the duration of one assembly step since start
func (m *Metrics) ObserveStep(step string, start time.Time) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// ObserveBuild records the outcome of one assembly
func (m *Metrics) ObserveBuild(start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.BuildsTotal.WithLabelValues(status).Inc()
	m.BuildDuration.Observe(time.Since(start).Seconds())
}

// ObserveSnapshot records one snapshot store operation
func (m *Metrics) ObserveSnapshot(operation, backend string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.SnapshotOperationsTotal.WithLabelValues(operation, backend, status).Inc()
	m.SnapshotOperationDuration.WithLabelValues(operation, backend).Observe(time.Since(start).Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// pathLabel maps a request to a low-cardinality label, such as its route template.
func HTTPMetricsMiddleware(metrics *Metrics, pathLabel func(*http.Request) string) func(http.Handler) http.Handler {
	if pathLabel == nil {
		pathLabel = func(r *http.Request) string { return r.URL.Path }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			path := pathLabel(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, path).Observe(float64(rw.bytesWritten))
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
