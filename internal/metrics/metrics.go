// Package metrics collects and exposes Prometheus metrics for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/natthaphon/secretkeeper/internal/middleware"
)

// Collector records authentication and HTTP metrics.
type Collector struct {
	loginSuccess    *prometheus.CounterVec
	loginFailure    *prometheus.CounterVec
	registrations   prometheus.Counter
	secretsUpdated  prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics with the given
// registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secretkeeper_login_success_total",
			Help: "Successful logins by authentication method.",
		}, []string{"method"}),
		loginFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secretkeeper_login_failure_total",
			Help: "Failed logins by authentication method.",
		}, []string{"method"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secretkeeper_registrations_total",
			Help: "Local registrations.",
		}),
		secretsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secretkeeper_secrets_updated_total",
			Help: "Secret submissions and overwrites.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secretkeeper_http_status_total",
			Help: "Responses by HTTP status code.",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "secretkeeper_request_duration_seconds",
			Help:    "Request handling latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFailure,
		c.registrations,
		c.secretsUpdated,
		c.httpStatus,
		c.requestDuration,
	)

	return c
}

// RecordLoginSuccess records a successful login for the given method
// ("local", "google", "facebook").
func (c *Collector) RecordLoginSuccess(method string) {
	c.loginSuccess.WithLabelValues(method).Inc()
}

// RecordLoginFailure records a failed login for the given method.
func (c *Collector) RecordLoginFailure(method string) {
	c.loginFailure.WithLabelValues(method).Inc()
}

// RecordRegistration records a local registration.
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordSecretUpdated records a secret submission.
func (c *Collector) RecordSecretUpdated() {
	c.secretsUpdated.Inc()
}

// Middleware records status codes and latency for every request.
func (c *Collector) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := middleware.NewStatusRecorder(w)

			next.ServeHTTP(rec, r)

			c.httpStatus.WithLabelValues(strconv.Itoa(rec.Status)).Inc()
			c.requestDuration.Observe(time.Since(start).Seconds())
		})
	}
}

// Handler returns the Prometheus scrape handler for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
