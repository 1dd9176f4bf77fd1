package tutor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the controller's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	grades            *prometheus.CounterVec
	difficultyChanges *prometheus.CounterVec
}

// NewMetrics registers the tutor collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainbrew",
			Subsystem: "tutor",
			Name:      "operations_total",
			Help:      "Dialogue controller operations by result.",
		}, []string{"op", "result"}),
		operationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "brainbrew",
			Subsystem: "tutor",
			Name:      "operation_seconds",
			Help:      "Wall time of dialogue controller operations.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 45, 90},
		}, []string{"op"}),
		grades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainbrew",
			Subsystem: "tutor",
			Name:      "grades_total",
			Help:      "Graded answers by quality.",
		}, []string{"quality"}),
		difficultyChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainbrew",
			Subsystem: "tutor",
			Name:      "difficulty_changes_total",
			Help:      "Difficulty adjustments by direction.",
		}, []string{"direction"}),
	}
}

func (m *Metrics) observeOp(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case IsRateLimited(err):
		result = "rate_limited"
	default:
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeGrade(q Quality) {
	if m == nil {
		return
	}
	m.grades.WithLabelValues(string(q)).Inc()
}

func (m *Metrics) observeDecision(d Decision) {
	if m == nil || d == DecisionNone {
		return
	}
	m.difficultyChanges.WithLabelValues(d.String()).Inc()
}
