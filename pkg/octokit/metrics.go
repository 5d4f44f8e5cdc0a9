package octokit

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "octokit"

// Metrics contains the Prometheus metrics of the client.
type Metrics struct {
	// Requests.
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CacheHitsTotal  *prometheus.CounterVec

	// GitHub API.
	RateLimitRemaining prometheus.Gauge

	// Webhooks.
	WebhookDeliveriesTotal *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of GitHub API requests",
			},
			[]string{"operation", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "GitHub API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "method"},
		),
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of responses served from the ETag cache",
			},
			[]string{"operation"},
		),
		RateLimitRemaining: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rate_limit_remaining",
				Help:      "Requests remaining in the current GitHub rate limit window",
			},
		),
		WebhookDeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Total number of webhook deliveries by event and outcome",
			},
			[]string{"event", "valid"},
		),
	}
}

// RecordRequest records one API request.
func (m *Metrics) RecordRequest(operation, method, status string, duration time.Duration, fromCache bool) {
	m.RequestsTotal.WithLabelValues(operation, method, status).Inc()
	m.RequestDuration.WithLabelValues(operation, method).Observe(duration.Seconds())

	if fromCache {
		m.CacheHitsTotal.WithLabelValues(operation).Inc()
	}
}

// SetRateLimitRemaining sets the remaining rate limit gauge.
func (m *Metrics) SetRateLimitRemaining(remaining float64) {
	m.RateLimitRemaining.Set(remaining)
}

// RecordWebhookDelivery records a verified or rejected webhook delivery.
func (m *Metrics) RecordWebhookDelivery(event string, valid bool) {
	m.WebhookDeliveriesTotal.WithLabelValues(event, strconv.FormatBool(valid)).Inc()
}
