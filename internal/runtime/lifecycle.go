package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/aretw0/vehicle/pkg/domain"
)

// Run drives the loop: it starts threaded units, ticks at hz until maxTicks
// ticks have completed (0 means unbounded), ctx is cancelled or a tick fails,
// then stops and joins threaded units and closes resources.
//
// The state moves to Running only once every threaded unit has started. If a
// start fails, the units already started are stopped and joined, every unit
// is closed and the state goes from Idle through Stopping to Stopped.
//
// Pacing allows a burst of one tick: a tick that overruns the period is
// followed immediately by the next one, and missed periods are never made up.
// hz <= 0 ticks as fast as possible.
//
// Run returns the number of completed ticks. Cancellation of ctx is a normal
// stop and is not reported as an error.
func (s *Scheduler) Run(ctx context.Context, hz float64, maxTicks int) (int, error) {
	if !s.ran.CompareAndSwap(false, true) {
		return 0, domain.ErrAlreadyStarted
	}

	// 1. Threaded units start before the loop counts as running
	var ticks int
	runErr := s.startThreads(ctx)
	if runErr == nil {
		s.setState(ctx, domain.StateIdle, domain.StateRunning)
		s.logger.Info("loop started", "hz", hz, "max_ticks", maxTicks, "units", len(s.entries))
		ticks, runErr = s.loop(ctx, hz, maxTicks)
	}

	// 2. Teardown
	s.setState(ctx, s.State(), domain.StateStopping)
	stopErr := s.stopThreads(context.WithoutCancel(ctx))
	closeErr := s.closeUnits()
	s.setState(ctx, domain.StateStopping, domain.StateStopped)

	err := errors.Join(runErr, stopErr, closeErr)
	if err != nil {
		s.logger.Error("loop stopped with error", "ticks", ticks, "err", err)
	} else {
		s.logger.Info("loop stopped", "ticks", ticks)
	}
	return ticks, err
}

// Close releases the resources of a scheduler that was never run, moving it
// straight from Idle to Stopped. After Run it does nothing: Run has already
// closed every unit.
func (s *Scheduler) Close() error {
	if !s.ran.CompareAndSwap(false, true) {
		return nil
	}
	err := s.closeUnits()
	s.setState(context.Background(), domain.StateIdle, domain.StateStopped)
	return err
}

func (s *Scheduler) loop(ctx context.Context, hz float64, maxTicks int) (int, error) {
	limit := rate.Inf
	var period time.Duration
	if hz > 0 {
		limit = rate.Limit(hz)
		period = time.Duration(float64(time.Second) / hz)
	}
	limiter := rate.NewLimiter(limit, 1)

	ticks := 0
	for maxTicks <= 0 || ticks < maxTicks {
		if ctx.Err() != nil {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			// Cancelled, or the deadline falls before the next slot.
			break
		}

		start := time.Now()
		if err := s.Tick(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, context.Canceled) {
				break
			}
			return ticks, fmt.Errorf("tick %d: %w", s.tick, err)
		}
		ticks++

		if d := time.Since(start); period > 0 && d > period {
			s.logger.Debug("tick overran period", "tick", s.tick, "duration", d, "period", period)
			if s.hooks.OnOverrun != nil {
				s.hooks.OnOverrun(ctx, domain.TickEvent{Tick: s.tick, Start: start, Duration: d})
			}
		}
	}
	return ticks, nil
}

func (s *Scheduler) setState(ctx context.Context, from, to domain.LoopState) {
	s.state.Store(int32(to))
	s.emitState(ctx, from, to)
}

func (s *Scheduler) emitState(ctx context.Context, from, to domain.LoopState) {
	if s.hooks.OnStateChange != nil {
		s.hooks.OnStateChange(ctx, domain.StateEvent{From: from, To: to})
	}
}
