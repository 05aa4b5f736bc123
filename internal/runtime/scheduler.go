package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/vehicle/pkg/bus"
	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/unit"
)

// entry is a registered unit together with its frozen descriptor.
type entry struct {
	desc     domain.Descriptor
	sync     unit.Synchronous
	threaded unit.Threaded
	started  bool
	failed   bool // background failure already reported
}

// Scheduler owns the ordered unit registry and runs the per-tick algorithm
// against a Bus. All methods must be called from the control goroutine.
type Scheduler struct {
	bus     *bus.Bus
	entries []*entry
	names   map[string]struct{}

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	policy domain.FailurePolicy

	state atomic.Int32
	ran   atomic.Bool // Run or Close has been called
	tick  uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Scheduler) {
		s.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFailurePolicy selects how background failures of threaded units are handled.
func WithFailurePolicy(p domain.FailurePolicy) Option {
	return func(s *Scheduler) {
		s.policy = p
	}
}

// NewScheduler creates an idle scheduler bound to b.
func NewScheduler(b *bus.Bus, opts ...Option) *Scheduler {
	s := &Scheduler{
		bus:    b,
		names:  make(map[string]struct{}),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bus returns the bus the scheduler reads from and writes to.
func (s *Scheduler) Bus() *bus.Bus { return s.bus }

// State returns the current lifecycle state. Safe for concurrent use.
func (s *Scheduler) State() domain.LoopState {
	return domain.LoopState(s.state.Load())
}

// Started reports whether Run or Close has been called.
func (s *Scheduler) Started() bool { return s.ran.Load() }

// Ticks returns the number of ticks started so far.
func (s *Scheduler) Ticks() uint64 { return s.tick }

// Register appends u to the registry. The descriptor is copied, so later
// changes by the caller have no effect.
//
// u must implement unit.Threaded when d.Threaded is set and
// unit.Synchronous otherwise. Units that implement unit.Arity must agree with
// the declared input and output counts.
func (s *Scheduler) Register(u any, d domain.Descriptor) error {
	if s.ran.Load() {
		return fmt.Errorf("register %q: %w", d.Name, domain.ErrAlreadyStarted)
	}
	d = d.Clone()
	if err := d.Validate(); err != nil {
		return err
	}
	if _, dup := s.names[d.Name]; dup {
		return &domain.RegistrationError{Unit: d.Name, Reason: "name already registered"}
	}

	e := &entry{desc: d}
	if d.Threaded {
		t, ok := u.(unit.Threaded)
		if !ok {
			return &domain.RegistrationError{Unit: d.Name, Reason: fmt.Sprintf("%T does not implement the threaded contract", u)}
		}
		e.threaded = t
	} else {
		sy, ok := u.(unit.Synchronous)
		if !ok {
			return &domain.RegistrationError{Unit: d.Name, Reason: fmt.Sprintf("%T does not implement the synchronous contract", u)}
		}
		e.sync = sy
	}

	if a, ok := u.(unit.Arity); ok {
		in, out := a.Arity()
		if in != len(d.Inputs) {
			return &domain.RegistrationError{Unit: d.Name, Reason: fmt.Sprintf("declares %d inputs, unit takes %d", len(d.Inputs), in)}
		}
		if out != len(d.Outputs) {
			return &domain.RegistrationError{Unit: d.Name, Reason: fmt.Sprintf("declares %d outputs, unit returns %d", len(d.Outputs), out)}
		}
	}

	s.names[d.Name] = struct{}{}
	s.entries = append(s.entries, e)
	s.logger.Debug("unit registered", "unit", d.Name, "inputs", d.Inputs, "outputs", d.Outputs, "threaded", d.Threaded)
	return nil
}

// Descriptors returns copies of the registered descriptors in registration order.
func (s *Scheduler) Descriptors() []domain.Descriptor {
	out := make([]domain.Descriptor, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.desc.Clone())
	}
	return out
}

// Tick runs one pass over every unit in registration order.
//
// A failing synchronous unit aborts the tick with an *InvocationError; units
// after it do not run. With FailureFatal, a dead threaded unit aborts the tick
// with a *BackgroundFailure.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.tick++
	n := s.tick
	start := time.Now()

	err := s.runUnits(ctx, n)

	if s.hooks.OnTick != nil {
		s.hooks.OnTick(ctx, domain.TickEvent{Tick: n, Start: start, Duration: time.Since(start), Err: err})
	}
	return err
}

func (s *Scheduler) runUnits(ctx context.Context, n uint64) error {
	for _, e := range s.entries {
		// 1. Run condition
		if c := e.desc.Condition; c != nil && !c.Eval(s.bus.Get(c.Key)) {
			if s.hooks.OnUnitSkip != nil {
				s.hooks.OnUnitSkip(ctx, domain.UnitEvent{Tick: n, Unit: e.desc.Name})
			}
			continue
		}

		// 2. Gather inputs in declared order
		args := s.bus.GetMany(e.desc.Inputs)

		// 3. Invoke
		started := time.Now()
		res, err := s.invoke(ctx, e, args, n)
		if err == nil {
			// 4. Publish positionally
			err = s.publish(e, res, n)
		}
		ev := domain.UnitEvent{Tick: n, Unit: e.desc.Name, Duration: time.Since(started), Err: err}
		if err != nil {
			if s.hooks.OnUnitError != nil {
				s.hooks.OnUnitError(ctx, ev)
			}
			return err
		}
		if s.hooks.OnUnitRun != nil {
			s.hooks.OnUnitRun(ctx, ev)
		}
	}
	return nil
}

func (s *Scheduler) invoke(ctx context.Context, e *entry, args []domain.Value, n uint64) ([]domain.Value, error) {
	if e.sync != nil {
		res, err := safeInvoke(ctx, e.sync, args)
		if err != nil {
			return nil, &domain.InvocationError{Unit: e.desc.Name, Tick: n, Err: err}
		}
		return res, nil
	}

	e.threaded.Update(args)
	res := e.threaded.Latest()
	if err := s.checkBackground(ctx, e, n); err != nil {
		return nil, err
	}
	if len(res) == 0 && len(e.desc.Outputs) > 0 {
		// No completed result yet.
		return nil, nil
	}
	return res, nil
}

func (s *Scheduler) publish(e *entry, res []domain.Value, n uint64) error {
	if res == nil && e.threaded != nil {
		return nil
	}
	if len(res) != len(e.desc.Outputs) {
		return &domain.InvocationError{
			Unit: e.desc.Name,
			Tick: n,
			Err:  fmt.Errorf("%w: got %d results for %d outputs", domain.ErrArity, len(res), len(e.desc.Outputs)),
		}
	}
	s.bus.SetMany(e.desc.Outputs, res)
	return nil
}

// checkBackground surfaces a dead threaded unit according to the failure policy.
func (s *Scheduler) checkBackground(ctx context.Context, e *entry, n uint64) error {
	if e.failed {
		if s.policy == domain.FailureFatal {
			return &domain.BackgroundFailure{Unit: e.desc.Name, Err: s.failureOf(e)}
		}
		return nil
	}
	err := s.failureOf(e)
	if err == nil {
		return nil
	}
	s.reportFailure(ctx, e, n, err)
	if s.policy == domain.FailureFatal {
		return &domain.BackgroundFailure{Unit: e.desc.Name, Err: err}
	}
	return nil
}

func (s *Scheduler) failureOf(e *entry) error {
	f, ok := e.threaded.(unit.Failing)
	if !ok {
		return nil
	}
	return f.Failure()
}

func (s *Scheduler) reportFailure(ctx context.Context, e *entry, n uint64, err error) {
	e.failed = true
	s.logger.Warn("threaded unit failed, serving last snapshot",
		"unit", e.desc.Name, "tick", n, "err", err, "policy", s.policy.String())
	s.bus.Set(domain.HealthKey(e.desc.Name), domain.Text(err.Error()))
	if s.hooks.OnBackgroundFailure != nil {
		s.hooks.OnBackgroundFailure(ctx, domain.UnitEvent{Tick: n, Unit: e.desc.Name, Err: err})
	}
}

// startThreads starts every threaded unit with its current inputs.
func (s *Scheduler) startThreads(ctx context.Context) error {
	for _, e := range s.entries {
		if e.threaded == nil {
			continue
		}
		if err := e.threaded.Start(ctx, s.bus.GetMany(e.desc.Inputs)); err != nil {
			return fmt.Errorf("start %q: %w", e.desc.Name, err)
		}
		e.started = true
		s.logger.Debug("threaded unit started", "unit", e.desc.Name)
	}
	return nil
}

// stopThreads stops and joins every started threaded unit in registration
// order. There is no timeout.
func (s *Scheduler) stopThreads(ctx context.Context) error {
	var errs []error
	for _, e := range s.entries {
		if e.threaded == nil || !e.started {
			continue
		}
		e.threaded.Stop()
		err := e.threaded.Wait()
		e.started = false
		s.logger.Debug("threaded unit joined", "unit", e.desc.Name)
		if err == nil || e.failed {
			continue
		}
		s.reportFailure(ctx, e, s.tick, err)
		if s.policy == domain.FailureFatal {
			errs = append(errs, &domain.BackgroundFailure{Unit: e.desc.Name, Err: err})
		}
	}
	return errors.Join(errs...)
}

// closeUnits releases unit resources in reverse registration order.
func (s *Scheduler) closeUnits() error {
	var errs []error
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		c, ok := e.unit().(unit.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", e.desc.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (e *entry) unit() any {
	if e.threaded != nil {
		return e.threaded
	}
	return e.sync
}

func safeInvoke(ctx context.Context, u unit.Synchronous, args []domain.Value) (res []domain.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return u.Invoke(ctx, args)
}
