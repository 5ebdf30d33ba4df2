package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, l := range m.GetLabel() {
				key += "," + l.GetName() + "=" + l.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	hooks := m.Hooks()
	ctx := context.Background()
	hooks.OnStepEnd(ctx, &domain.StepEvent{NodeType: domain.NodeTypeLog, Duration: time.Millisecond})
	hooks.OnStepEnd(ctx, &domain.StepEvent{NodeType: domain.NodeTypeLog})
	hooks.OnStepEnd(ctx, &domain.StepEvent{NodeType: domain.NodeTypeEmail, Err: errors.New("x")})

	got := gather(t, reg)
	assert.Equal(t, 2.0, got["autoflow_steps_total,node_type=log,outcome=ok"])
	assert.Equal(t, 1.0, got["autoflow_steps_total,node_type=email,outcome=error"])
	assert.Equal(t, 2.0, got["autoflow_step_duration_seconds,node_type=log"])
}

func TestMetrics_RunStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	ctx := context.Background()

	m.OnStatus(ctx, "s", domain.RunState{Status: domain.RunRunning})
	assert.Equal(t, 1.0, gather(t, reg)["autoflow_runs_active"])

	m.OnStatus(ctx, "s", domain.RunState{Status: domain.RunIdle})
	m.OnStatus(ctx, "s", domain.RunState{Status: domain.RunRunning})
	m.OnStatus(ctx, "s", domain.RunState{Status: domain.RunStopped, Err: "boom"})

	got := gather(t, reg)
	assert.Equal(t, 0.0, got["autoflow_runs_active"])
	assert.Equal(t, 1.0, got["autoflow_runs_total,status=idle"])
	assert.Equal(t, 1.0, got["autoflow_runs_total,status=failed"])
}

func TestNewMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	second, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	first.Hooks().OnStepEnd(context.Background(), &domain.StepEvent{NodeType: domain.NodeTypeLog})
	second.Hooks().OnStepEnd(context.Background(), &domain.StepEvent{NodeType: domain.NodeTypeLog})
	assert.Equal(t, 2.0, gather(t, reg)["autoflow_steps_total,node_type=log,outcome=ok"])
}

func TestChainHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var calls []string
	counting := domain.LifecycleHooks{
		OnStepStart: func(context.Context, *domain.StepEvent) { calls = append(calls, "start") },
	}
	hooks := observability.ChainHooks(counting, observability.LoggingHooks(logger), domain.LifecycleHooks{})

	ev := &domain.StepEvent{Step: 1, NodeID: "a", NodeType: domain.NodeTypeLog}
	hooks.OnStepStart(context.Background(), ev)
	hooks.OnStepEnd(context.Background(), ev)

	assert.Equal(t, []string{"start"}, calls)
	assert.Contains(t, buf.String(), "step_start")
	assert.Contains(t, buf.String(), "step_end")
}
