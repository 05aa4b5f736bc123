package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vehicle/internal/runtime"
	"github.com/aretw0/vehicle/pkg/bus"
	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/unit"
)

func num(f float64) domain.Value { return domain.Number(f) }

func sumDiff() *unit.LambdaUnit {
	return unit.Lambda(2, 2, func(args []domain.Value) []domain.Value {
		a, b := args[0].Float(), args[1].Float()
		return []domain.Value{num(a + b), num(a - b)}
	})
}

func TestScheduler_RoundTrip(t *testing.T) {
	b := bus.New()
	b.Set("a", num(1))
	b.Set("b", num(2))

	s := runtime.NewScheduler(b)
	require.NoError(t, s.Register(sumDiff(), domain.Descriptor{
		Name: "sumdiff", Inputs: []string{"a", "b"}, Outputs: []string{"c", "d"},
	}))

	require.NoError(t, s.Tick(context.Background()))
	assert.Equal(t, num(3), b.Get("c"))
	assert.Equal(t, num(-1), b.Get("d"))
}

func TestScheduler_Idempotence(t *testing.T) {
	b := bus.New()
	b.Set("a", num(4))
	b.Set("b", num(1))

	s := runtime.NewScheduler(b)
	require.NoError(t, s.Register(sumDiff(), domain.Descriptor{
		Name: "sumdiff", Inputs: []string{"a", "b"}, Outputs: []string{"c", "d"},
	}))

	require.NoError(t, s.Tick(context.Background()))
	first := b.Snapshot()
	require.NoError(t, s.Tick(context.Background()))
	assert.Equal(t, first, b.Snapshot())
}

func TestScheduler_SameTickPropagation(t *testing.T) {
	b := bus.New()
	s := runtime.NewScheduler(b)

	var n float64
	producer := unit.Func(func(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
		n++
		return []domain.Value{num(n)}, nil
	})
	consumer := unit.Lambda(1, 1, func(args []domain.Value) []domain.Value {
		return []domain.Value{args[0]}
	})
	// Registered before its producer: sees the previous tick's value.
	lagging := unit.Lambda(1, 1, func(args []domain.Value) []domain.Value {
		return []domain.Value{args[0]}
	})

	require.NoError(t, s.Register(lagging, domain.Descriptor{Name: "lagging", Inputs: []string{"x"}, Outputs: []string{"z"}}))
	require.NoError(t, s.Register(producer, domain.Descriptor{Name: "producer", Outputs: []string{"x"}}))
	require.NoError(t, s.Register(consumer, domain.Descriptor{Name: "consumer", Inputs: []string{"x"}, Outputs: []string{"y"}}))

	ctx := context.Background()
	require.NoError(t, s.Tick(ctx))
	assert.Equal(t, num(1), b.Get("y"))
	assert.True(t, b.Get("z").IsNone())

	require.NoError(t, s.Tick(ctx))
	assert.Equal(t, num(2), b.Get("y"))
	assert.Equal(t, num(1), b.Get("z"))
}

func TestScheduler_SkipPreservesOutputs(t *testing.T) {
	b := bus.New()

	var calls int
	gated := unit.Func(func(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
		calls++
		return []domain.Value{num(float64(calls))}, nil
	})
	var skipped []string
	s := runtime.NewScheduler(b, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnUnitSkip: func(_ context.Context, e domain.UnitEvent) { skipped = append(skipped, e.Unit) },
	}))
	require.NoError(t, s.Register(gated, domain.Descriptor{
		Name: "gated", Outputs: []string{"out"}, Condition: domain.When("enabled"),
	}))

	ctx := context.Background()
	require.NoError(t, s.Tick(ctx))
	assert.Equal(t, 0, calls, "unset condition key is falsy")

	b.Set("enabled", domain.Bool(true))
	require.NoError(t, s.Tick(ctx))
	assert.Equal(t, num(1), b.Get("out"))

	b.Set("enabled", domain.Bool(false))
	require.NoError(t, s.Tick(ctx))
	require.NoError(t, s.Tick(ctx))
	assert.Equal(t, 1, calls)
	assert.Equal(t, num(1), b.Get("out"), "skipped unit keeps its last outputs")
	assert.Equal(t, []string{"gated", "gated", "gated"}, skipped)
}

func TestScheduler_ConditionOperand(t *testing.T) {
	b := bus.New()
	s := runtime.NewScheduler(b)
	var calls int
	require.NoError(t, s.Register(unit.Func(func(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
		calls++
		return nil, nil
	}), domain.Descriptor{Name: "pilot", Condition: domain.WhenNot(domain.KeyUserMode, domain.Text(domain.ModeUser))}))

	b.Set(domain.KeyUserMode, domain.Text(domain.ModeUser))
	require.NoError(t, s.Tick(context.Background()))
	assert.Equal(t, 0, calls)

	b.Set(domain.KeyUserMode, domain.Text(domain.ModeLocal))
	require.NoError(t, s.Tick(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestScheduler_InvocationErrorAbortsTick(t *testing.T) {
	b := bus.New()
	s := runtime.NewScheduler(b)
	boom := errors.New("i2c timeout")

	var after bool
	require.NoError(t, s.Register(unit.Func(func(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
		return nil, boom
	}), domain.Descriptor{Name: "imu"}))
	require.NoError(t, s.Register(unit.Func(func(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
		after = true
		return nil, nil
	}), domain.Descriptor{Name: "later"}))

	err := s.Tick(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvocation)
	assert.ErrorIs(t, err, boom)

	var inv *domain.InvocationError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "imu", inv.Unit)
	assert.Equal(t, uint64(1), inv.Tick)
	assert.False(t, after)
}

func TestScheduler_PanicIsInvocationError(t *testing.T) {
	s := runtime.NewScheduler(bus.New())
	require.NoError(t, s.Register(unit.Func(func(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
		panic("nil model")
	}), domain.Descriptor{Name: "pilot"}))

	err := s.Tick(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvocation)
	assert.Contains(t, err.Error(), "nil model")
}

func TestScheduler_ResultArityMismatch(t *testing.T) {
	s := runtime.NewScheduler(bus.New())
	require.NoError(t, s.Register(unit.Func(func(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
		return []domain.Value{num(1)}, nil
	}), domain.Descriptor{Name: "short", Outputs: []string{"a", "b"}}))

	err := s.Tick(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvocation)
	assert.ErrorIs(t, err, domain.ErrArity)
}

func TestScheduler_RegistrationErrors(t *testing.T) {
	tests := []struct {
		name string
		unit any
		desc domain.Descriptor
	}{
		{
			name: "input arity",
			unit: sumDiff(),
			desc: domain.Descriptor{Name: "u", Inputs: []string{"a"}, Outputs: []string{"c", "d"}},
		},
		{
			name: "output arity",
			unit: sumDiff(),
			desc: domain.Descriptor{Name: "u", Inputs: []string{"a", "b"}, Outputs: []string{"c"}},
		},
		{
			name: "not threaded",
			unit: sumDiff(),
			desc: domain.Descriptor{Name: "u", Inputs: []string{"a", "b"}, Outputs: []string{"c", "d"}, Threaded: true},
		},
		{
			name: "not a unit",
			unit: struct{}{},
			desc: domain.Descriptor{Name: "u"},
		},
		{
			name: "empty name",
			unit: sumDiff(),
			desc: domain.Descriptor{Inputs: []string{"a", "b"}, Outputs: []string{"c", "d"}},
		},
		{
			name: "duplicate output",
			unit: sumDiff(),
			desc: domain.Descriptor{Name: "u", Inputs: []string{"a", "b"}, Outputs: []string{"c", "c"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := runtime.NewScheduler(bus.New())
			err := s.Register(tt.unit, tt.desc)
			assert.ErrorIs(t, err, domain.ErrRegistration)
			assert.Empty(t, s.Descriptors())
		})
	}
}

func TestScheduler_DuplicateName(t *testing.T) {
	s := runtime.NewScheduler(bus.New())
	d := domain.Descriptor{Name: "sumdiff", Inputs: []string{"a", "b"}, Outputs: []string{"c", "d"}}
	require.NoError(t, s.Register(sumDiff(), d))
	assert.ErrorIs(t, s.Register(sumDiff(), d), domain.ErrRegistration)
}

func TestScheduler_DescriptorIsCopied(t *testing.T) {
	s := runtime.NewScheduler(bus.New())
	d := domain.Descriptor{Name: "sumdiff", Inputs: []string{"a", "b"}, Outputs: []string{"c", "d"}}
	require.NoError(t, s.Register(sumDiff(), d))
	d.Outputs[0] = "mutated"

	got := s.Descriptors()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"c", "d"}, got[0].Outputs)
}
