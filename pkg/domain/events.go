package domain

import (
	"context"
	"time"
)

// StepEvent describes a single step for lifecycle hooks.
// OnStepStart sees Step, NodeID and NodeType; OnStepEnd sees all fields.
type StepEvent struct {
	Step     int
	NodeID   string
	NodeType NodeType
	Next     string
	Duration time.Duration
	Err      error
}

// LifecycleHooks defines callbacks for execution observability.
// Unset hooks are skipped.
type LifecycleHooks struct {
	OnStepStart func(context.Context, *StepEvent)
	OnStepEnd   func(context.Context, *StepEvent)
}
