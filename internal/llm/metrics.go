package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/abhisek/brainbrew/internal/store"
)

// Metrics counts provider traffic. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	tokens   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics registers the LLM collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainbrew",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "LLM provider calls by purpose and result.",
		}, []string{"purpose", "result"}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainbrew",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by direction.",
		}, []string{"purpose", "direction"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "brainbrew",
			Subsystem: "llm",
			Name:      "request_seconds",
			Help:      "Provider call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"purpose"}),
	}
}

func (m *Metrics) observe(purpose string, data store.LLMRequestEventData, err error) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case IsRateLimit(err):
		result = "rate_limited"
	default:
		result = "error"
	}
	m.requests.WithLabelValues(purpose, result).Inc()
	m.tokens.WithLabelValues(purpose, "input").Add(float64(data.InputTokens))
	m.tokens.WithLabelValues(purpose, "output").Add(float64(data.OutputTokens))
	m.latency.WithLabelValues(purpose).Observe(float64(data.LatencyMs) / 1000)
}
