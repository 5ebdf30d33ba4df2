package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/autoflow/pkg/domain"
)

// LoggingHooks logs step boundaries at debug level and failures at warn level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_start", "step", e.Step, "node_id", e.NodeID, "node_type", e.NodeType)
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "step_failed", "step", e.Step, "node_id", e.NodeID, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "step_end",
				"step", e.Step,
				"node_id", e.NodeID,
				"next", e.Next,
				"duration", e.Duration,
			)
		},
	}
}

// ChainHooks calls every set hook in order.
func ChainHooks(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			for _, h := range hooks {
				if h.OnStepStart != nil {
					h.OnStepStart(ctx, e)
				}
			}
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			for _, h := range hooks {
				if h.OnStepEnd != nil {
					h.OnStepEnd(ctx, e)
				}
			}
		},
	}
}
