package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attendly/fieldforce-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	checkIns        prometheus.Counter
	checkOuts       prometheus.Counter
	classifications *prometheus.CounterVec
	confirmations   prometheus.Counter
	approvals       *prometheus.CounterVec
	travelDecisions *prometheus.CounterVec
	sweepInserts    prometheus.Counter
	geofenceMisses  prometheus.Counter
}

// NewMetricsService registers the engine's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	checkIns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_check_ins_total",
		Help: "Total accepted check-ins",
	})

	checkOuts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_check_outs_total",
		Help: "Total accepted check-outs",
	})

	classifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_classifications_total",
		Help: "Classification outcomes by status and timing reason",
	}, []string{"status", "reason"})

	confirmations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_confirmations_total",
		Help: "Total delegate confirmations applied",
	})

	approvals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_approvals_total",
		Help: "Admin approvals by mode",
	}, []string{"mode"})

	travelDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travel_decisions_total",
		Help: "Travel request decisions by outcome",
	}, []string{"outcome"})

	sweepInserts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sweep_inserts_total",
		Help: "Records synthesized by the end-of-day sweep",
	})

	geofenceMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_geofence_misses_total",
		Help: "Check-ins reported outside the site geofence",
	})

	registry.MustRegister(requestDuration, requestTotal, checkIns, checkOuts,
		classifications, confirmations, approvals, travelDecisions, sweepInserts, geofenceMisses)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		checkIns:        checkIns,
		checkOuts:       checkOuts,
		classifications: classifications,
		confirmations:   confirmations,
		approvals:       approvals,
		travelDecisions: travelDecisions,
		sweepInserts:    sweepInserts,
		geofenceMisses:  geofenceMisses,
	}
}

// Handler serves the /metrics scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics for the middleware.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// CheckInAccepted counts an accepted check-in.
func (m *MetricsService) CheckInAccepted() {
	if m != nil {
		m.checkIns.Inc()
	}
}

// CheckOutAccepted counts an accepted check-out.
func (m *MetricsService) CheckOutAccepted() {
	if m != nil {
		m.checkOuts.Inc()
	}
}

// Classified counts a classification outcome.
func (m *MetricsService) Classified(status models.AttendanceStatus, reason models.TimingReason) {
	if m != nil {
		m.classifications.WithLabelValues(string(status), string(reason)).Inc()
	}
}

// Confirmed counts a delegate confirmation.
func (m *MetricsService) Confirmed() {
	if m != nil {
		m.confirmations.Inc()
	}
}

// Approved counts an admin approval; mode is "single" or "bulk".
func (m *MetricsService) Approved(mode string) {
	if m != nil {
		m.approvals.WithLabelValues(mode).Inc()
	}
}

// TravelDecided counts a travel decision outcome.
func (m *MetricsService) TravelDecided(outcome models.TravelStatus) {
	if m != nil {
		m.travelDecisions.WithLabelValues(string(outcome)).Inc()
	}
}

// SweptUnmarked counts synthesized not-marked records.
func (m *MetricsService) SweptUnmarked(count int) {
	if m != nil && count > 0 {
		m.sweepInserts.Add(float64(count))
	}
}

// GeofenceMiss counts an out-of-fence check-in report.
func (m *MetricsService) GeofenceMiss() {
	if m != nil {
		m.geofenceMisses.Inc()
	}
}
