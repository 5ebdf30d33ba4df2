package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/autoflow/internal/logging"
	"github.com/aretw0/autoflow/internal/runtime"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/session"
)

var (
	// ErrMaxSteps stops a run that exceeded its step limit.
	ErrMaxSteps = errors.New("step limit reached")
	// ErrStepPanic stops a run whose handler panicked.
	ErrStepPanic = errors.New("step panicked")
)

// Runner executes sessions with a Stepper.
type Runner struct {
	stepper  *runtime.Stepper
	maxSteps int
	observer Observer
	logger   *slog.Logger
}

// New creates a Runner over the given stepper.
func New(stepper *runtime.Stepper, opts ...Option) *Runner {
	r := &Runner{
		stepper:  stepper,
		maxSteps: DefaultMaxSteps,
		observer: NopObserver{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts a fresh run of the session and blocks until it ends.
//
// The run ends when a step yields no next node (Idle), when the session is
// stopped, when ctx is done, when the step limit is reached, or when a step
// fails or panics. The last four leave the session Stopped. Failures are
// recorded in RunState.Err rather than returned; the only error is
// domain.ErrRunInProgress.
func (r *Runner) Run(ctx context.Context, s *session.Session) (domain.RunState, error) {
	if _, err := s.Start(); err != nil {
		return s.State(), err
	}
	return r.RunStarted(ctx, s), nil
}

// RunStarted drives a run the caller already began with Session.Start, so the
// caller learns synchronously whether it owns the run. It ends like Run.
func (r *Runner) RunStarted(ctx context.Context, s *session.Session) domain.RunState {
	epoch := s.Cursor().Epoch
	r.logger.InfoContext(ctx, "run started", "session_id", s.ID)
	r.observer.OnStatus(ctx, s.ID, s.State())

	for {
		cur := s.Cursor()
		if cur.Epoch != epoch || cur.Status != domain.RunRunning {
			break
		}
		if err := ctx.Err(); err != nil {
			s.Halt(epoch, err)
			break
		}
		if r.maxSteps > 0 && cur.Step >= r.maxSteps {
			s.Halt(epoch, fmt.Errorf("%w (%d)", ErrMaxSteps, r.maxSteps))
			break
		}
		if _, err := r.advance(ctx, s, cur); err != nil {
			s.Halt(epoch, err)
			break
		}
	}

	state := s.State()
	r.logger.InfoContext(ctx, "run finished",
		"session_id", s.ID,
		"status", state.Status,
		"steps", state.StepCount,
		"err", state.Err,
	)
	r.observer.OnStatus(ctx, s.ID, state)
	return state
}

// StepOnce executes a single step of a session that is not running.
// A session without a current node is restarted from its start node.
// Unlike Run, a failing step is returned to the caller.
func (r *Runner) StepOnce(ctx context.Context, s *session.Session) (domain.LogEntry, error) {
	cur, err := s.Prime()
	if err != nil {
		return domain.LogEntry{}, err
	}
	defer s.Release()
	entry, err := r.advance(ctx, s, cur)
	if err != nil {
		return domain.LogEntry{}, err
	}
	r.observer.OnStatus(ctx, s.ID, s.State())
	return entry, nil
}

// advance executes the node under cur against a fresh snapshot of the live
// document and commits the result.
func (r *Runner) advance(ctx context.Context, s *session.Session, cur session.Cursor) (entry domain.LogEntry, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.ErrorContext(ctx, "step panicked", "session_id", s.ID, "node_id", cur.NodeID, "panic", p)
			err = fmt.Errorf("%w at %s: %v", ErrStepPanic, cur.NodeID, p)
		}
	}()

	wf := s.Document().Snapshot()
	res, err := r.stepper.Step(ctx, &wf, cur.NodeID, cur.Context, cur.Step+1)
	if err != nil {
		r.logger.WarnContext(ctx, "step failed", "session_id", s.ID, "node_id", cur.NodeID, "err", err)
		return domain.LogEntry{}, err
	}

	s.Commit(cur.Epoch, res.Log, res.Context, res.Next)
	if s.Cursor().Epoch == cur.Epoch {
		r.observer.OnLog(ctx, s.ID, res.Log)
	}
	return res.Log, nil
}
