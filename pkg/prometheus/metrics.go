package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/finledger/qbo-connector/pkg/monitor"
)

// Metrics holds all Prometheus metrics for the QuickBooks connector
type Metrics struct {
	// Outbound QBO API metrics
	APIRequestDuration *prometheus.HistogramVec
	APIRequestTotal    *prometheus.CounterVec
	APIRequestErrors   *prometheus.CounterVec

	// Token lifecycle metrics
	TokenExchanges      *prometheus.CounterVec
	TokenRefreshes      *prometheus.CounterVec
	TokenRefreshFailure *prometheus.CounterVec

	// Webhook metrics
	WebhookEvents *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	initOnce      sync.Once
)

// InitMetrics registers the connector metrics with the shared registry.
// Safe to call more than once.
func InitMetrics() *Metrics {
	initOnce.Do(func() {
		registry := monitor.Registry()

		m := &Metrics{
			APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "qbo_api_request_duration_seconds",
				Help:    "Duration of outbound requests to the QuickBooks API",
				Buckets: prometheus.DefBuckets,
			}, []string{"operation", "resource", "status"}),

			APIRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "qbo_api_requests_total",
				Help: "Total number of outbound requests to the QuickBooks API",
			}, []string{"operation", "resource", "status"}),

			APIRequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "qbo_api_request_errors_total",
				Help: "Total number of failed outbound requests to the QuickBooks API",
			}, []string{"operation", "resource", "error_type"}),

			TokenExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "qbo_token_exchanges_total",
				Help: "Total number of authorization-code token exchanges",
			}, []string{"status"}),

			TokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "qbo_token_refreshes_total",
				Help: "Total number of refresh-token exchanges",
			}, []string{"status"}),

			TokenRefreshFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "qbo_token_refresh_failures_total",
				Help: "Refresh failures by error type",
			}, []string{"error_type"}),

			WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "qbo_webhook_events_total",
				Help: "Inbound webhook event notifications by entity and status",
			}, []string{"entity", "status"}),
		}

		registry.MustRegister(
			m.APIRequestDuration,
			m.APIRequestTotal,
			m.APIRequestErrors,
			m.TokenExchanges,
			m.TokenRefreshes,
			m.TokenRefreshFailure,
			m.WebhookEvents,
		)

		globalMetrics = m
	})

	return globalMetrics
}

// M returns the global metrics, initializing them if needed.
func M() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// RecordAPIRequest records one outbound QBO API call.
func RecordAPIRequest(operation, resource, status string, duration time.Duration) {
	m := M()
	m.APIRequestDuration.WithLabelValues(operation, resource, status).Observe(duration.Seconds())
	m.APIRequestTotal.WithLabelValues(operation, resource, status).Inc()
}

// RecordAPIError records a failed outbound QBO API call.
func RecordAPIError(operation, resource, errorType string) {
	M().APIRequestErrors.WithLabelValues(operation, resource, errorType).Inc()
}

// RecordTokenExchange records an authorization-code exchange outcome.
func RecordTokenExchange(status string) {
	M().TokenExchanges.WithLabelValues(status).Inc()
}

// RecordTokenRefresh records a refresh exchange outcome.
func RecordTokenRefresh(status string) {
	M().TokenRefreshes.WithLabelValues(status).Inc()
}

// RecordTokenRefreshFailure records a refresh failure by error type.
func RecordTokenRefreshFailure(errorType string) {
	M().TokenRefreshFailure.WithLabelValues(errorType).Inc()
}

// RecordWebhookEvent records one inbound webhook entity event.
func RecordWebhookEvent(entity, status string) {
	M().WebhookEvents.WithLabelValues(entity, status).Inc()
}
