package unit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/vehicle/pkg/domain"
)

// StepFunc computes one background result from the latest inputs.
// It may block (e.g. waiting on a device) but should return promptly once
// ctx is cancelled.
type StepFunc func(ctx context.Context, args []domain.Value) ([]domain.Value, error)

// Loop is a Threaded runtime that repeatedly runs a StepFunc on its own
// goroutine.
//
// Inputs and results each live in a single-slot cell swapped atomically:
// Update overwrites the pending inputs, the goroutine publishes a complete
// result slice per iteration and Latest loads whichever slice was published
// last. Readers never block and never observe a partially written result.
//
// A step error (or panic) terminates the goroutine. Latest keeps returning the
// last good snapshot and Failure reports the error.
type Loop struct {
	name     string
	step     StepFunc
	interval time.Duration
	logger   *slog.Logger

	args       atomic.Pointer[[]domain.Value]
	latest     atomic.Pointer[[]domain.Value]
	failure    atomic.Pointer[error]
	iterations atomic.Uint64

	started atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithInitial sets the results served before the first completed step.
func WithInitial(results ...domain.Value) LoopOption {
	return func(l *Loop) {
		r := slices.Clone(results)
		l.latest.Store(&r)
	}
}

// WithInterval spaces iterations at least d apart. Zero runs a tight loop
// that yields between steps.
func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		l.interval = d
	}
}

// WithName labels the loop in logs and errors.
func WithName(name string) LoopOption {
	return func(l *Loop) {
		l.name = name
	}
}

// WithLoopLogger sets the logger used to report failures.
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop creates a stopped loop around step.
func NewLoop(step StepFunc, opts ...LoopOption) *Loop {
	l := &Loop{
		name:   "loop",
		step:   step,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	empty := []domain.Value{}
	l.latest.Store(&empty)
	l.args.Store(&empty)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the background goroutine. Only Stop ends it: cancellation of
// ctx is deliberately not inherited so that shutdown ordering stays with the
// lifecycle controller.
func (l *Loop) Start(ctx context.Context, initial []domain.Value) error {
	if !l.started.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", l.name, domain.ErrAlreadyStarted)
	}
	l.Update(initial)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l.cancel = cancel

	l.wg.Add(1)
	go l.run(runCtx)
	return nil
}

// Update replaces the pending inputs. It never blocks.
func (l *Loop) Update(args []domain.Value) {
	a := slices.Clone(args)
	l.args.Store(&a)
}

// Latest returns a copy of the last completed result.
func (l *Loop) Latest() []domain.Value {
	return slices.Clone(*l.latest.Load())
}

// Stop asks the goroutine to exit after its current step.
func (l *Loop) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
}

// Wait blocks until the goroutine has exited and returns its failure, if any.
func (l *Loop) Wait() error {
	l.wg.Wait()
	return l.Failure()
}

// Failure returns the error that terminated the goroutine, or nil.
func (l *Loop) Failure() error {
	if p := l.failure.Load(); p != nil {
		return *p
	}
	return nil
}

// Iterations returns the number of completed steps.
func (l *Loop) Iterations() uint64 { return l.iterations.Load() }

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()

	var timer *time.Timer
	if l.interval > 0 {
		timer = time.NewTimer(0)
		defer timer.Stop()
		<-timer.C
	}

	for ctx.Err() == nil {
		res, err := l.safeStep(ctx, *l.args.Load())
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, context.Canceled) {
				return
			}
			l.failure.Store(&err)
			l.logger.Warn("background loop terminated", "unit", l.name, "err", err, "iterations", l.iterations.Load())
			return
		}
		if res != nil {
			r := slices.Clone(res)
			l.latest.Store(&r)
		}
		l.iterations.Add(1)

		if timer == nil {
			runtime.Gosched()
			continue
		}
		timer.Reset(l.interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

func (l *Loop) safeStep(ctx context.Context, args []domain.Value) (res []domain.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.step(ctx, args)
}
