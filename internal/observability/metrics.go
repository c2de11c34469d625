package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	QueriesTotal        *prometheus.CounterVec
	ProviderErrors      *prometheus.CounterVec
	MessagesTotal       *prometheus.CounterVec
	ExplainRetries      prometheus.Counter
	ExplainFallbacks    prometheus.Counter
	QueryLatency        prometheus.Histogram
	ActiveConversations prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		QueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Conversational queries by routed agent and outcome.",
		}, []string{"agent", "outcome"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		MessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Persisted conversation messages by role.",
		}, []string{"role"}),
		ExplainRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explain_retries_total",
			Help:      "Retries of the result explanation call after transient provider failures.",
		}),
		ExplainFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explain_fallbacks_total",
			Help:      "Explanations that degraded to raw row output after exhausting retries.",
		}),
		QueryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_latency_ms",
			Help:      "End-to-end conversational query latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 15000},
		}),
		ActiveConversations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Number of active (not soft-deleted) conversations seen by the service.",
		}),
	}
}

// All observe helpers tolerate a nil receiver so components can be exercised
// in tests without registering instruments.

func (m *Metrics) ObserveQuery(agent string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.QueriesTotal.WithLabelValues(agent, outcome).Inc()
	m.QueryLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveProviderError(provider, code string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, code).Inc()
}

func (m *Metrics) ObserveMessage(role string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(role).Inc()
}

func (m *Metrics) ObserveExplainRetry() {
	if m == nil {
		return
	}
	m.ExplainRetries.Inc()
}

func (m *Metrics) ObserveExplainFallback() {
	if m == nil {
		return
	}
	m.ExplainFallbacks.Inc()
}

func (m *Metrics) ObserveConversationActive(delta int) {
	if m == nil {
		return
	}
	m.ActiveConversations.Add(float64(delta))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
