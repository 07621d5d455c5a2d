package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counter
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Registration counter
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_register_total",
			Help: "Total number of storefront registration attempts",
		},
	)

	// Turnover report submissions
	TurnoverSubmissionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_turnover_submissions_total",
			Help: "Total number of turnover report submissions",
		},
	)

	// Turnover review decisions by outcome
	TurnoverDecisionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_turnover_decisions_total",
			Help: "Total number of turnover report review decisions",
		},
		[]string{"decision"}, // "approve" or "reject"
	)

	// Document conversion failures
	ConversionFailureCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_pdf_conversion_failures_total",
			Help: "Total number of failed document-to-PDF conversions",
		},
	)

	// Change request decisions by outcome
	RequestDecisionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_change_request_decisions_total",
			Help: "Total number of staff change request decisions",
		},
		[]string{"decision"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // type can be "login_failure", "invalid_token", etc.
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Pending registrations awaiting admin review
	PendingRegistrationsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_pending_registrations",
			Help: "Number of storefront registrations awaiting approval",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portal_info",
			Help: "Information about the portal service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(TurnoverSubmissionCounter)
	prometheus.MustRegister(TurnoverDecisionCounter)
	prometheus.MustRegister(ConversionFailureCounter)
	prometheus.MustRegister(RequestDecisionCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(PendingRegistrationsGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordTurnoverDecision records a turnover review decision
func RecordTurnoverDecision(decision string) {
	TurnoverDecisionCounter.With(prometheus.Labels{"decision": decision}).Inc()
}

// RecordRequestDecision records a change request decision
func RecordRequestDecision(decision string) {
	RequestDecisionCounter.With(prometheus.Labels{"decision": decision}).Inc()
}
