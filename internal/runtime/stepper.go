// Package runtime advances a workflow simulation one node at a time.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/autoflow/internal/logging"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/handlers"
)

// DefaultDelay is the simulated latency of every executed node.
const DefaultDelay = 800 * time.Millisecond

// Dispatcher resolves and runs the handler for a node.
type Dispatcher interface {
	Dispatch(ctx context.Context, node domain.Node, execCtx map[string]any) (handlers.Outcome, error)
}

// StepResult is the committed outcome of one step.
type StepResult struct {
	Log     domain.LogEntry
	Context map[string]any
	// Next is the node to run afterwards. Empty means the run is over.
	Next string
}

// Stepper executes single workflow steps.
type Stepper struct {
	dispatcher Dispatcher
	delay      time.Duration
	now        func() time.Time
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
}

// Option configures a Stepper.
type Option func(*Stepper)

// WithDelay sets the simulated latency per node. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(s *Stepper) {
		s.delay = d
	}
}

// WithClock sets the time source for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Stepper) {
		s.now = now
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stepper) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers step observers.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Stepper) {
		s.hooks = hooks
	}
}

// NewStepper creates a Stepper over the given dispatcher.
func NewStepper(d Dispatcher, opts ...Option) *Stepper {
	s := &Stepper{
		dispatcher: d,
		delay:      DefaultDelay,
		now:        time.Now,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Step executes currentID against wf and returns the new context and the next node.
//
// An empty currentID fails with domain.ErrRunAlreadyTerminated. A node missing from
// wf is not an error: the result carries an error log entry and no next node.
// If ctx is cancelled during the simulated delay, Step returns ctx.Err() and
// nothing is committed. The input context is never modified.
func (s *Stepper) Step(ctx context.Context, wf *domain.Workflow, currentID string, execCtx map[string]any, stepCount int) (*StepResult, error) {
	if currentID == "" {
		return nil, domain.ErrRunAlreadyTerminated
	}

	node, err := wf.Node(currentID)
	if err != nil {
		s.logger.WarnContext(ctx, "node not found", "node_id", currentID, "step", stepCount)
		return &StepResult{
			Log: domain.LogEntry{
				Step:      stepCount,
				Timestamp: s.now(),
				NodeID:    currentID,
				NodeType:  domain.NodeTypeLog,
				Message:   fmt.Sprintf("Error: Node %s not found.", currentID),
				Data:      map[string]any{},
			},
			Context: domain.MergeContext(execCtx, nil),
		}, nil
	}

	event := &domain.StepEvent{Step: stepCount, NodeID: node.ID, NodeType: node.Type}
	if s.hooks.OnStepStart != nil {
		s.hooks.OnStepStart(ctx, event)
	}
	started := time.Now()

	if err := s.wait(ctx); err != nil {
		s.finish(ctx, event, started, err)
		return nil, err
	}

	out, err := s.dispatcher.Dispatch(ctx, node.Clone(), execCtx)
	if err != nil {
		s.finish(ctx, event, started, err)
		return nil, fmt.Errorf("step %d at %s: %w", stepCount, node.ID, err)
	}

	event.Next = out.Next
	s.finish(ctx, event, started, nil)
	s.logger.DebugContext(ctx, "step executed",
		"step", stepCount,
		"node_id", node.ID,
		"node_type", node.Type,
		"next", out.Next,
	)

	return &StepResult{
		Log: domain.LogEntry{
			Step:      stepCount,
			Timestamp: s.now(),
			NodeID:    node.ID,
			NodeType:  node.Type,
			Message:   out.Message,
			Data:      out.Delta,
		},
		Context: domain.MergeContext(execCtx, out.Delta),
		Next:    out.Next,
	}, nil
}

func (s *Stepper) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Stepper) finish(ctx context.Context, event *domain.StepEvent, started time.Time, err error) {
	event.Duration = time.Since(started)
	event.Err = err
	if s.hooks.OnStepEnd != nil {
		s.hooks.OnStepEnd(ctx, event)
	}
}
