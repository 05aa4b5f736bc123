package runner

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// SignalManager derives a context that is cancelled on SIGINT or SIGTERM.
type SignalManager struct {
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	stopped atomic.Bool
}

// NewSignalManager starts listening for signals immediately.
func NewSignalManager(parent context.Context) *SignalManager {
	sm := &SignalManager{parent: parent}
	// We capture SIGINT (Ctrl+C) and SIGTERM
	sm.ctx, sm.cancel = signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return sm
}

// Context returns the signal context.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Interrupted reports whether the context ended because of a signal rather
// than the parent being cancelled or Stop being called.
func (sm *SignalManager) Interrupted() bool {
	return !sm.stopped.Load() && sm.ctx.Err() != nil && sm.parent.Err() == nil
}

// Stop releases the signal listener and cancels the context.
func (sm *SignalManager) Stop() {
	sm.stopped.Store(true)
	sm.cancel()
}
