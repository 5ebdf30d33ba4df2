package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/autoflow/pkg/session"
)

// SignalManager turns SIGINT and SIGTERM into a cooperative stop.
type SignalManager struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSignalManager starts listening for signals until Stop is called.
func NewSignalManager(parent context.Context) *SignalManager {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return &SignalManager{ctx: ctx, cancel: cancel}
}

// Context is cancelled when a signal arrives.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// StopOnSignal stops s at its next step boundary when a signal arrives.
// The step in flight is allowed to finish.
func (sm *SignalManager) StopOnSignal(s *session.Session) {
	go func() {
		<-sm.ctx.Done()
		s.Stop()
	}()
}

// Stop releases the signal listener. Sessions registered with StopOnSignal are
// stopped as well, which is a no-op for runs that already ended.
func (sm *SignalManager) Stop() {
	sm.cancel()
}
