package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	HTTPRequests         *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	StoreOperations      *prometheus.CounterVec
	StoreDuration        *prometheus.HistogramVec
	StoreCacheInvalidate *prometheus.CounterVec
	AuditEntriesLogged   *prometheus.CounterVec
	RecorderDropped      prometheus.Counter
	ReportsGenerated     *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics against reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audittrail_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and method",
			Buckets: durationBuckets,
		}, []string{"route", "method"}),
		StoreOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_store_operations_total",
			Help: "Total number of file store operations by collection, operation and result",
		}, []string{"collection", "op", "result"}),
		StoreDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audittrail_store_operation_duration_seconds",
			Help:    "Duration of file store load/save operations",
			Buckets: durationBuckets,
		}, []string{"collection", "op"}),
		StoreCacheInvalidate: f.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_store_cache_invalidations_total",
			Help: "Number of cache invalidations triggered by file system events",
		}, []string{"collection"}),
		AuditEntriesLogged: f.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_audit_entries_logged_total",
			Help: "Total number of audit entries appended by action",
		}, []string{"action"}),
		RecorderDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "audittrail_recorder_dropped_total",
			Help: "Audit events dropped because the recorder buffer was full",
		}),
		ReportsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_reports_generated_total",
			Help: "Total number of compliance reports generated by type",
		}, []string{"report_type"}),
	}
}

// ObserveStore records one store operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveStore(collection, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOperations.WithLabelValues(collection, op, result).Inc()
	m.StoreDuration.WithLabelValues(collection, op).Observe(time.Since(start).Seconds())
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(route, method string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, statusClass(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
}

// IncrementAuditLogged records an appended audit entry
func (m *Metrics) IncrementAuditLogged(action string) {
	if m == nil {
		return
	}
	m.AuditEntriesLogged.WithLabelValues(action).Inc()
}

// IncrementReportGenerated records a generated report
func (m *Metrics) IncrementReportGenerated(reportType string) {
	if m == nil {
		return
	}
	m.ReportsGenerated.WithLabelValues(reportType).Inc()
}

// IncrementRecorderDropped records an event dropped by the recorder
func (m *Metrics) IncrementRecorderDropped() {
	if m == nil {
		return
	}
	m.RecorderDropped.Inc()
}

// IncrementCacheInvalidated records an external change to a collection file
func (m *Metrics) IncrementCacheInvalidated(collection string) {
	if m == nil {
		return
	}
	m.StoreCacheInvalidate.WithLabelValues(collection).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
