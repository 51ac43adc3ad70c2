package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the bot's Prometheus collectors
type Metrics struct {
	UpdatesTotal      *prometheus.CounterVec
	UpdateDuration    prometheus.Histogram
	UpstreamRequests  *prometheus.CounterVec
	UpstreamLatency   *prometheus.HistogramVec
	BreakerState      *prometheus.GaugeVec
	WebhookQueueDepth prometheus.Gauge
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpdatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "weatherbot_updates_total",
			Help: "Telegram updates processed, by outcome",
		}, []string{"outcome"}),

		UpdateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "weatherbot_update_duration_seconds",
			Help:    "Time to answer one update",
			Buckets: prometheus.DefBuckets,
		}),

		UpstreamRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "weatherbot_upstream_requests_total",
			Help: "Outbound API calls, by upstream and result",
		}, []string{"upstream", "result"}),

		UpstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weatherbot_upstream_latency_seconds",
			Help:    "Outbound API call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"upstream"}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weatherbot_circuit_breaker_state",
			Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
		}, []string{"upstream"}),

		WebhookQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "weatherbot_webhook_queue_depth",
			Help: "Updates waiting in the async webhook queue",
		}),
	}
}
