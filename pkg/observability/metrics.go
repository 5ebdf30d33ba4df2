package observability

import (
	"context"
	"errors"

	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the simulation collectors.
type Metrics struct {
	steps    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	active   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors that are already registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoflow_steps_total",
				Help: "Total number of simulated node executions",
			},
			[]string{"node_type", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autoflow_step_duration_seconds",
				Help:    "Duration of simulated node executions, including the simulated delay",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node_type"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoflow_runs_total",
				Help: "Total number of finished runs by final status",
			},
			[]string{"status"},
		),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autoflow_runs_active",
			Help: "Number of runs currently in progress",
		}),
	}

	var err error
	if m.steps, err = register(reg, m.steps); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.runs, err = register(reg, m.runs); err != nil {
		return nil, err
	}
	if m.active, err = register(reg, m.active); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Hooks records every step that reaches a handler.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			}
			m.steps.WithLabelValues(string(e.NodeType), outcome).Inc()
			m.duration.WithLabelValues(string(e.NodeType)).Observe(e.Duration.Seconds())
		},
	}
}

// OnLog is a no-op; steps are counted by Hooks.
func (m *Metrics) OnLog(context.Context, string, domain.LogEntry) {}

// OnStatus tracks run starts and ends.
func (m *Metrics) OnStatus(_ context.Context, _ string, state domain.RunState) {
	if state.Status == domain.RunRunning {
		m.active.Inc()
		return
	}
	m.active.Dec()
	status := string(state.Status)
	if state.Err != "" {
		status = "failed"
	}
	m.runs.WithLabelValues(status).Inc()
}
