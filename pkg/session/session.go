package session

import (
	"sync"

	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/generation"
	"github.com/aretw0/autoflow/pkg/graph"
)

// Session is one editable workflow together with its simulation run.
// All methods are safe for concurrent use.
type Session struct {
	ID   string
	Chat *generation.Chat

	doc *graph.Document

	mu  sync.RWMutex
	run domain.RunState
	// epoch changes whenever the run is restarted or reset, so steps that were
	// in flight for an older run are discarded on commit.
	epoch uint64
	// stepping is set while a manual step is executing.
	stepping bool
}

// Cursor is the position of a run between two steps.
type Cursor struct {
	Epoch   uint64
	Status  domain.RunStatus
	NodeID  string
	Context map[string]any
	Step    int
}

// New creates an idle session editing a copy of wf.
func New(id string, wf domain.Workflow) *Session {
	return &Session{
		ID:   id,
		Chat: generation.NewChat(),
		doc:  graph.NewDocument(wf),
		run:  domain.NewRunState(),
	}
}

// Document returns the live workflow document.
func (s *Session) Document() *graph.Document {
	return s.doc
}

// State returns a copy of the run state.
func (s *Session) State() domain.RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.run
	out.Context = domain.MergeContext(s.run.Context, nil)
	out.Logs = append([]domain.LogEntry(nil), s.run.Logs...)
	if out.Logs == nil {
		out.Logs = []domain.LogEntry{}
	}
	return out
}

// Cursor reports what the next step should execute.
func (s *Session) Cursor() Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Cursor{
		Epoch:   s.epoch,
		Status:  s.run.Status,
		NodeID:  s.run.CurrentNodeID,
		Context: s.run.Context,
		Step:    s.run.StepCount,
	}
}

// Start begins a fresh run from the workflow's start node.
// Logs and context of any previous run are discarded. A workflow without a
// start node leaves the session idle.
func (s *Session) Start() (string, error) {
	start := s.doc.Snapshot().StartNodeID

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run.Status == domain.RunRunning || s.stepping {
		return "", domain.ErrRunInProgress
	}
	s.run = domain.NewRunState()
	s.run.CurrentNodeID = start
	if start != "" {
		s.run.Status = domain.RunRunning
	}
	s.epoch++
	return start, nil
}

// Prime claims the session for one manual step and returns the cursor it
// executes. A run that has not started, or has finished, is restarted from the
// start node; a paused run continues where it stopped. The claim holds until
// Release; meanwhile Prime and Start fail with ErrRunInProgress.
func (s *Session) Prime() (Cursor, error) {
	start := s.doc.Snapshot().StartNodeID

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run.Status == domain.RunRunning || s.stepping {
		return Cursor{}, domain.ErrRunInProgress
	}
	if s.run.CurrentNodeID == "" {
		s.run = domain.NewRunState()
		s.run.CurrentNodeID = start
		s.epoch++
	}
	s.run.Status = domain.RunIdle
	s.run.Err = ""
	s.stepping = true
	return Cursor{
		Epoch:   s.epoch,
		Status:  s.run.Status,
		NodeID:  s.run.CurrentNodeID,
		Context: s.run.Context,
		Step:    s.run.StepCount,
	}, nil
}

// Release drops the manual step claim taken by Prime.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepping = false
}

// Commit records a finished step of the run identified by epoch. A step that
// completes after Stop is still recorded but the run stays stopped; a step of a
// run that was since reset or restarted is dropped. It reports whether the run
// goes on.
func (s *Session) Commit(epoch uint64, entry domain.LogEntry, execCtx map[string]any, next string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.run.Logs = append(s.run.Logs, entry)
	s.run.Context = execCtx
	s.run.StepCount++
	s.run.CurrentNodeID = next
	if next == "" && s.run.Status == domain.RunRunning {
		s.run.Status = domain.RunIdle
	}
	return next != "" && s.run.Status == domain.RunRunning
}

// Stop asks a running simulation to halt before its next step.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run.Status == domain.RunRunning {
		s.run.Status = domain.RunStopped
	}
}

// Halt stops the run identified by epoch because of err.
func (s *Session) Halt(epoch uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return
	}
	s.run.Status = domain.RunStopped
	if err != nil {
		s.run.Err = err.Error()
	}
}

// Reset discards the run so the next one starts from scratch.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = domain.NewRunState()
	s.epoch++
}

// Stopped reports whether Stop or Halt ended the run.
func (s *Session) Stopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run.Status == domain.RunStopped
}
