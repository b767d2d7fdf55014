package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Generation metrics
	GenerationsTotal    *prometheus.CounterVec
	GenerationDuration  *prometheus.HistogramVec
	FailoversTotal      *prometheus.CounterVec
	ProviderHealth      *prometheus.GaugeVec
	ModerationsRejected prometheus.Counter

	// Billing metrics
	CreditsSpentTotal   *prometheus.CounterVec
	CreditsGrantedTotal *prometheus.CounterVec
	PaymentEventsTotal  *prometheus.CounterVec
	QuotaRejectedTotal  *prometheus.CounterVec

	// Session metrics
	ActiveSessions prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vidgo"
	}

	return &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		// Generation metrics
		GenerationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "requests_total",
				Help:      "Total number of generation requests",
			},
			[]string{"task_type", "provider", "status"},
		),
		GenerationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "duration_seconds",
				Help:      "Generation request duration in seconds",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"task_type", "provider"},
		),
		FailoversTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "failovers_total",
				Help:      "Total number of calls served by the backup provider",
			},
			[]string{"task_type"},
		),
		ProviderHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "provider_health",
				Help:      "Provider health status (1=healthy, 0=unhealthy)",
			},
			[]string{"provider"},
		),
		ModerationsRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "moderations_rejected_total",
				Help:      "Total number of prompts rejected by the moderation gate",
			},
		),

		// Billing metrics
		CreditsSpentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "credits_spent_total",
				Help:      "Total credits spent on generations",
			},
			[]string{"task_type"},
		),
		CreditsGrantedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "credits_granted_total",
				Help:      "Total credits granted, by bucket",
			},
			[]string{"bucket"},
		),
		PaymentEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "payment_events_total",
				Help:      "Total number of payment events",
			},
			[]string{"provider", "event"},
		),
		QuotaRejectedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "quota_rejected_total",
				Help:      "Total number of requests rejected by daily quota",
			},
			[]string{"tier"},
		),

		// Session metrics
		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "active",
				Help:      "Number of sessions with a recent heartbeat",
			},
		),
	}
}

// --- Convenience methods ---
//
// All methods tolerate a nil receiver so components can run unmetered,
// which keeps test construction free of global registry collisions.

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusStr := statusCodeToString(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGeneration records a generation request outcome.
func (m *Metrics) RecordGeneration(taskType, provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(taskType, provider, status).Inc()
	m.GenerationDuration.WithLabelValues(taskType, provider).Observe(duration.Seconds())
}

// RecordFailover records a call served by the backup provider.
func (m *Metrics) RecordFailover(taskType string) {
	if m == nil {
		return
	}
	m.FailoversTotal.WithLabelValues(taskType).Inc()
}

// SetProviderHealth sets the health status of a provider.
func (m *Metrics) SetProviderHealth(provider string, healthy bool) {
	if m == nil {
		return
	}
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ProviderHealth.WithLabelValues(provider).Set(value)
}

// RecordModerationRejected records a prompt rejected by the moderation gate.
func (m *Metrics) RecordModerationRejected() {
	if m == nil {
		return
	}
	m.ModerationsRejected.Inc()
}

// RecordCreditsSpent records credits spent on a generation.
func (m *Metrics) RecordCreditsSpent(taskType string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.CreditsSpentTotal.WithLabelValues(taskType).Add(float64(amount))
}

// RecordCreditsGranted records credits granted to a bucket.
func (m *Metrics) RecordCreditsGranted(bucket string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.CreditsGrantedTotal.WithLabelValues(bucket).Add(float64(amount))
}

// RecordPaymentEvent records a payment event.
func (m *Metrics) RecordPaymentEvent(provider, event string) {
	if m == nil {
		return
	}
	m.PaymentEventsTotal.WithLabelValues(provider, event).Inc()
}

// RecordQuotaRejected records a request rejected by daily quota.
func (m *Metrics) RecordQuotaRejected(tier string) {
	if m == nil {
		return
	}
	m.QuotaRejectedTotal.WithLabelValues(tier).Inc()
}

// SetActiveSessions sets the active session gauge.
func (m *Metrics) SetActiveSessions(count int64) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(count))
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
