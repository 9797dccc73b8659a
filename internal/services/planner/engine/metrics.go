package engine

import (
	"sync"

	apperrors "github.com/rallypoint/rallypoint/internal/platform/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutcomeOK labels operations that returned no error.
const OutcomeOK = "ok"

// Metrics counts engine operations by name and outcome. The outcome is
// "ok" or the lower-case error kind.
type Metrics struct {
	operations *prometheus.CounterVec

	// registerOnce ensures Prometheus metrics are only registered once
	registerOnce sync.Once
}

// NewMetrics returns unregistered metrics; recording is a no-op until
// Register is called.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Register registers Prometheus metrics with the given registry.
// If registry is nil, this is a no-op. Subsequent calls are no-ops.
func (m *Metrics) Register(registry prometheus.Registerer) {
	if m == nil || registry == nil {
		return
	}
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)
		m.operations = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rallypoint_planner_operations_total",
			Help: "Total number of planner engine operations by outcome",
		}, []string{"operation", "outcome"})
	})
}

func (m *Metrics) record(operation string, err error) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcomeOf(err)).Inc()
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return "validation"
	case apperrors.KindNotFound:
		return "not_found"
	case apperrors.KindForbidden:
		return "forbidden"
	case apperrors.KindConflict:
		return "conflict"
	case apperrors.KindInvalidState:
		return "invalid_state"
	default:
		return "internal"
	}
}
