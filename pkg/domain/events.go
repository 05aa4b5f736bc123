package domain

import (
	"context"
	"time"
)

// TickEvent describes one completed (or aborted) scheduler tick.
type TickEvent struct {
	Tick     uint64
	Start    time.Time
	Duration time.Duration
	Err      error
}

// UnitEvent describes something that happened to a single unit during a tick.
type UnitEvent struct {
	Tick     uint64
	Unit     string
	Duration time.Duration
	Err      error
}

// StateEvent describes a lifecycle transition.
type StateEvent struct {
	From LoopState
	To   LoopState
}

// LifecycleHooks defines callbacks for loop observability.
// All hooks run on the control goroutine and must not block.
type LifecycleHooks struct {
	OnStateChange       func(context.Context, StateEvent)
	OnTick              func(context.Context, TickEvent)
	OnOverrun           func(context.Context, TickEvent)
	OnUnitRun           func(context.Context, UnitEvent)
	OnUnitSkip          func(context.Context, UnitEvent)
	OnUnitError         func(context.Context, UnitEvent)
	OnBackgroundFailure func(context.Context, UnitEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStateChange:       chain(h.OnStateChange, other.OnStateChange),
		OnTick:              chain(h.OnTick, other.OnTick),
		OnOverrun:           chain(h.OnOverrun, other.OnOverrun),
		OnUnitRun:           chain(h.OnUnitRun, other.OnUnitRun),
		OnUnitSkip:          chain(h.OnUnitSkip, other.OnUnitSkip),
		OnUnitError:         chain(h.OnUnitError, other.OnUnitError),
		OnBackgroundFailure: chain(h.OnBackgroundFailure, other.OnBackgroundFailure),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
