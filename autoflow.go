package autoflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/autoflow/internal/logging"
	"github.com/aretw0/autoflow/internal/runtime"
	"github.com/aretw0/autoflow/pkg/adapters/memory"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/handlers"
	"github.com/aretw0/autoflow/pkg/ports"
	"github.com/aretw0/autoflow/pkg/runner"
	"github.com/aretw0/autoflow/pkg/session"
)

// Version is the release of the library and its CLI.
var Version = "0.1.0"

// Engine is the high-level entry point for embedding the simulator.
// It wires a store, a session manager and a runner with the built-in handlers.
type Engine struct {
	store     ports.WorkflowStore
	sessions  *session.Manager
	runner    *runner.Runner
	decider   handlers.Decider
	delay     time.Duration
	maxSteps  int
	hooks     domain.LifecycleHooks
	observers runner.MultiObserver
	logger    *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore persists workflows in s instead of memory.
func WithStore(s ports.WorkflowStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithDecider sets how condition nodes pick a branch.
func WithDecider(d handlers.Decider) Option {
	return func(e *Engine) {
		e.decider = d
	}
}

// WithDelay sets the simulated latency per node.
func WithDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.delay = d
	}
}

// WithMaxSteps caps the number of steps in a run.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithObserver receives every log entry and status change.
func WithObserver(o runner.Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine. Without options workflows live in memory, conditions
// branch at random and every node takes runtime.DefaultDelay.
func New(opts ...Option) *Engine {
	e := &Engine{
		delay:    runtime.DefaultDelay,
		maxSteps: runner.DefaultMaxSteps,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.decider == nil {
		e.decider = handlers.NewRandomDecider(time.Now().UnixNano())
	}

	stepper := runtime.NewStepper(
		handlers.NewDefaultRegistry(handlers.WithDecider(e.decider)),
		runtime.WithDelay(e.delay),
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
	)
	e.sessions = session.NewManager(e.store, session.WithLogger(e.logger))
	e.runner = runner.New(stepper,
		runner.WithMaxSteps(e.maxSteps),
		runner.WithObserver(e.observers),
		runner.WithLogger(e.logger),
	)
	return e
}

// Load stores wf and opens a session for it.
func (e *Engine) Load(ctx context.Context, wf domain.Workflow) (*session.Session, error) {
	return e.sessions.Create(ctx, wf)
}

// Run loads wf and simulates it to completion.
func (e *Engine) Run(ctx context.Context, wf domain.Workflow) (domain.RunState, error) {
	s, err := e.Load(ctx, wf)
	if err != nil {
		return domain.RunState{}, err
	}
	return e.runner.Run(ctx, s)
}

// Step advances the session by one node.
func (e *Engine) Step(ctx context.Context, s *session.Session) (domain.LogEntry, error) {
	return e.runner.StepOnce(ctx, s)
}

// Sessions exposes the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}
