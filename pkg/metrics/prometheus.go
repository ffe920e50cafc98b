// Package metrics provides Prometheus metrics for the timeclock service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by timeclock.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	distanceBuckets  []float64
	enabled          bool
	registry         prometheus.Registerer

	// Attendance engine
	clockActions      *prometheus.CounterVec
	geofenceDistance  prometheus.Histogram
	fallbackLocations prometheus.Counter
	idempotentReplays prometheus.Counter
	complianceChecks  *prometheus.CounterVec
	dayRecordsBuilt   prometheus.Counter
	unmatchedPunches  prometheus.Counter

	// Incidents
	incidentsCreated  *prometheus.CounterVec
	incidentsReviewed *prometheus.CounterVec

	// Repository
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // custom registry keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "timeclock",
		subsystem:        "attendance",
		histogramBuckets: prometheus.DefBuckets,
		distanceBuckets:  []float64{5, 10, 25, 50, 75, 100, 150, 250, 500, 1000, 5000},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.clockActions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "clock_actions_total",
		Help:      "Clock actions by kind and result",
	}, []string{"kind", "result"})

	m.geofenceDistance = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "geofence_distance_meters",
		Help:      "Distance between reported and registered location on clock actions",
		Buckets:   m.distanceBuckets,
	})

	m.fallbackLocations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fallback_locations_total",
		Help:      "Clock actions that used the fallback coordinate",
	})

	m.idempotentReplays = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "idempotent_replays_total",
		Help:      "Clock requests answered from the idempotency cache",
	})

	m.complianceChecks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "compliance_checks_total",
		Help:      "Schedule compliance checks by outcome",
	}, []string{"outcome"})

	m.dayRecordsBuilt = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "day_records_built_total",
		Help:      "Day records derived from raw clock events",
	})

	m.unmatchedPunches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unmatched_punches_total",
		Help:      "Clock events dropped by entry/exit pairing",
	})

	m.incidentsCreated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "incidents_created_total",
		Help:      "Incidents reported by kind",
	}, []string{"kind"})

	m.incidentsReviewed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "incidents_reviewed_total",
		Help:      "Incidents reviewed by resulting status",
	}, []string{"status"})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_latency_milliseconds",
		Help:      "Repository operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"driver", "operation"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Repository operation failures",
	}, []string{"driver", "operation"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_type_total",
		Help:      "Errors by type and severity",
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_endpoint_total",
		Help:      "Errors by HTTP endpoint",
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "error_latency_milliseconds",
		Help:      "Latency of failed operations in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordClockAction counts a clock attempt. result is one of accepted,
// invalid_transition, out_of_range, error.
func RecordClockAction(kind, result string) {
	if globalManager.enabled {
		globalManager.clockActions.WithLabelValues(kind, result).Inc()
	}
}

// ObserveGeofenceDistance records the measured distance of a clock attempt.
func ObserveGeofenceDistance(meters float64) {
	if globalManager.enabled {
		globalManager.geofenceDistance.Observe(meters)
	}
}

// RecordFallbackLocation counts clock actions that had no reported position.
func RecordFallbackLocation() {
	if globalManager.enabled {
		globalManager.fallbackLocations.Inc()
	}
}

// RecordIdempotentReplay counts clock requests served from the replay cache.
func RecordIdempotentReplay() {
	if globalManager.enabled {
		globalManager.idempotentReplays.Inc()
	}
}

// RecordComplianceCheck counts a compliance evaluation by outcome.
func RecordComplianceCheck(outcome string) {
	if globalManager.enabled {
		globalManager.complianceChecks.WithLabelValues(outcome).Inc()
	}
}

// RecordDayRecords counts built day records and the punches pairing dropped.
func RecordDayRecords(records, unmatched int) {
	if !globalManager.enabled {
		return
	}
	globalManager.dayRecordsBuilt.Add(float64(records))
	globalManager.unmatchedPunches.Add(float64(unmatched))
}

// RecordIncidentCreated counts a reported incident.
func RecordIncidentCreated(kind string) {
	if globalManager.enabled {
		globalManager.incidentsCreated.WithLabelValues(kind).Inc()
	}
}

// RecordIncidentReviewed counts a review decision.
func RecordIncidentReviewed(status string) {
	if globalManager.enabled {
		globalManager.incidentsReviewed.WithLabelValues(status).Inc()
	}
}

// RecordStoreLatency records the latency of a repository operation.
func RecordStoreLatency(driver, operation string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeLatency.WithLabelValues(driver, operation).Observe(latencyMs)
	}
}

// RecordStoreError counts a failed repository operation.
func RecordStoreError(driver, operation string) {
	if globalManager.enabled {
		globalManager.storeErrors.WithLabelValues(driver, operation).Inc()
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByType counts errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint counts errors by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorLatency records how long a failing operation took.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
	}
}

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
