package vehicle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/aretw0/vehicle/internal/runtime"
	"github.com/aretw0/vehicle/pkg/bus"
	"github.com/aretw0/vehicle/pkg/domain"
)

// Vehicle is the high-level entry point of the library. It owns one Bus and
// one Scheduler; there is no process-wide instance.
type Vehicle struct {
	bus    *bus.Bus
	sched  *runtime.Scheduler
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	policy domain.FailurePolicy
	def    domain.Value
}

// Option defines a functional option for configuring the Vehicle.
type Option func(*Vehicle)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vehicle) {
		v.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. It may be given more than
// once; hooks run in the order they were added.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(v *Vehicle) {
		v.hooks = v.hooks.Merge(hooks)
	}
}

// WithFailurePolicy selects what happens when a threaded part's background
// loop dies (default: keep serving its last snapshot).
func WithFailurePolicy(p domain.FailurePolicy) Option {
	return func(v *Vehicle) {
		v.policy = p
	}
}

// WithBusDefault sets the value returned for keys nobody has written yet.
func WithBusDefault(def domain.Value) Option {
	return func(v *Vehicle) {
		v.def = def
	}
}

// New creates an idle vehicle.
func New(opts ...Option) *Vehicle {
	v := &Vehicle{}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	v.bus = bus.New(bus.WithDefault(v.def))
	v.sched = runtime.NewScheduler(v.bus,
		runtime.WithLifecycleHooks(v.hooks),
		runtime.WithLogger(v.logger),
		runtime.WithFailurePolicy(v.policy),
	)
	return v
}

// PartOption describes how a part is wired into the loop.
type PartOption func(*domain.Descriptor)

// Inputs declares the keys read for each invocation, in argument order.
func Inputs(keys ...string) PartOption {
	return func(d *domain.Descriptor) {
		d.Inputs = keys
	}
}

// Outputs declares the keys written from each result, in result order.
func Outputs(keys ...string) PartOption {
	return func(d *domain.Descriptor) {
		d.Outputs = keys
	}
}

// Threaded marks the part as running its own background loop.
func Threaded() PartOption {
	return func(d *domain.Descriptor) {
		d.Threaded = true
	}
}

// RunCondition gates the part on a Bus value.
func RunCondition(c *domain.Condition) PartOption {
	return func(d *domain.Descriptor) {
		d.Condition = c
	}
}

// RunWhen gates the part on the truthiness of key.
func RunWhen(key string) PartOption {
	return RunCondition(domain.When(key))
}

// Named sets the part's name. Without it the name is derived from the
// part's type and position.
func Named(name string) PartOption {
	return func(d *domain.Descriptor) {
		d.Name = name
	}
}

// Add registers a part. Parts run in the order they are added, which is also
// the dependency order: a part sees this tick's outputs of every part added
// before it.
func (v *Vehicle) Add(part any, opts ...PartOption) error {
	d := domain.Descriptor{}
	for _, opt := range opts {
		opt(&d)
	}
	if d.Name == "" {
		d.Name = defaultName(part, len(v.sched.Descriptors()))
	}
	return v.sched.Register(part, d)
}

// MustAdd is like Add but panics on error. Intended for static assembly.
func (v *Vehicle) MustAdd(part any, opts ...PartOption) {
	if err := v.Add(part, opts...); err != nil {
		panic(err)
	}
}

// Bus returns the shared state bus. It is not safe for concurrent use while
// the vehicle is running.
func (v *Vehicle) Bus() *bus.Bus { return v.bus }

// Tick runs a single pass over every part without starting threaded parts.
// Useful for stepping a pipeline in tests and tools. It returns
// domain.ErrAlreadyStarted once Start or Close has been called, since the
// loop then owns the Bus.
func (v *Vehicle) Tick(ctx context.Context) error {
	if v.sched.Started() {
		return domain.ErrAlreadyStarted
	}
	return v.sched.Tick(ctx)
}

// Start runs the loop at rateHz until maxTicks ticks have completed (0 runs
// until ctx is cancelled) or a part fails. It blocks, always performs the full
// shutdown sequence and returns the number of completed ticks.
func (v *Vehicle) Start(ctx context.Context, rateHz float64, maxTicks int) (int, error) {
	return v.sched.Run(ctx, rateHz, maxTicks)
}

// Close releases the parts of a vehicle that will not be started, for example
// when setup fails after assembly. Parts are closed in reverse order and the
// vehicle moves to Stopped. It is a no-op once Start has been called.
func (v *Vehicle) Close() error {
	return v.sched.Close()
}

// State reports where the vehicle is in its lifecycle.
func (v *Vehicle) State() domain.LoopState {
	return v.sched.State()
}

// Describe returns the registered parts in registration order.
func (v *Vehicle) Describe() []domain.Descriptor {
	return v.sched.Descriptors()
}

// Logger returns the vehicle's logger.
func (v *Vehicle) Logger() *slog.Logger {
	return v.logger
}

type namer interface {
	Name() string
}

func defaultName(part any, index int) string {
	if n, ok := part.(namer); ok && n.Name() != "" {
		return n.Name()
	}
	t := reflect.TypeOf(part)
	if t == nil {
		return fmt.Sprintf("part%d", index)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		name = "part"
	}
	return fmt.Sprintf("%s%d", strings.ToLower(name), index)
}
