package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aleung/fsm/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by machine lifecycle hooks.
// Series are labelled by definition rather than by instance, so the number
// of series does not grow with the number of machines.
type Metrics struct {
	Transitions    *prometheus.CounterVec
	ActionFailures *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsm_transitions_total",
				Help: "Total number of completed transitions",
			},
			[]string{"definition", "from", "to", "scope"},
		),
		ActionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsm_action_failures_total",
				Help: "Total number of failed or panicking actions",
			},
			[]string{"definition", "phase"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fsm_transition_duration_seconds",
				Help:    "Duration of transitions including all actions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"definition"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.ActionFailures, m.Duration)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m under the given
// definition name, whatever the name of the machine they are attached to.
func (m *Metrics) Hooks(definition string) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransitionEnd: func(ctx context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(definition, e.From, e.To, string(e.Scope)).Inc()
			m.Duration.WithLabelValues(definition).Observe(e.Duration.Seconds())
		},
		OnActionError: func(ctx context.Context, f *domain.ActionFailure) {
			m.ActionFailures.WithLabelValues(definition, string(f.Err.Phase)).Inc()
		},
	}
}
