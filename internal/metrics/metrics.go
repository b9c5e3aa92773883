package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Check metrics
	checksTotal    *prometheus.CounterVec
	checkDuration  prometheus.Histogram
	checksInFlight prometheus.Gauge
	sessionsActive prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_checks_total",
			Help: "Total number of settled health checks",
		},
		[]string{"outcome"},
	)
	r.checkDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_check_duration_seconds",
			Help:    "Time from submit to settle of a health check",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	r.checksInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_checks_in_flight",
			Help: "Number of health checks awaiting the scoring API",
		},
	)
	r.sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_sessions_active",
			Help: "Number of live web sessions",
		},
	)

	reg.MustRegister(r.checksTotal)
	reg.MustRegister(r.checkDuration)
	reg.MustRegister(r.checksInFlight)
	reg.MustRegister(r.sessionsActive)

	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// CheckStarted marks a health check as in flight.
func (r *Registry) CheckStarted() {
	r.checksInFlight.Inc()
}

// CheckFinished records a settled health check.
func (r *Registry) CheckFinished(outcome string, duration time.Duration) {
	r.checksInFlight.Dec()
	r.checksTotal.WithLabelValues(outcome).Inc()
	r.checkDuration.Observe(duration.Seconds())
}

// SetSessions sets the number of live web sessions.
func (r *Registry) SetSessions(n int) {
	r.sessionsActive.Set(float64(n))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
