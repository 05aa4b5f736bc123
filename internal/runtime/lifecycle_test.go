package runtime_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vehicle/internal/runtime"
	"github.com/aretw0/vehicle/pkg/bus"
	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/unit"
)

// journal records lifecycle calls across units in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// fakeThreaded is a threaded unit whose Latest echoes the last update.
type fakeThreaded struct {
	name    string
	j       *journal
	latest   atomic.Pointer[[]domain.Value]
	failure  error
	startErr error
	closed   bool
}

func newFakeThreaded(name string, j *journal) *fakeThreaded {
	f := &fakeThreaded{name: name, j: j}
	empty := []domain.Value{}
	f.latest.Store(&empty)
	return f
}

func (f *fakeThreaded) Start(ctx context.Context, initial []domain.Value) error {
	f.j.add("start " + f.name)
	return f.startErr
}
func (f *fakeThreaded) Update(args []domain.Value) {
	if len(args) > 0 {
		f.latest.Store(&args)
	}
}
func (f *fakeThreaded) Latest() []domain.Value { return *f.latest.Load() }
func (f *fakeThreaded) Stop()                  { f.j.add("stop " + f.name) }
func (f *fakeThreaded) Wait() error {
	f.j.add("wait " + f.name)
	return nil
}
func (f *fakeThreaded) Failure() error { return f.failure }
func (f *fakeThreaded) Close() error {
	f.j.add("close " + f.name)
	f.closed = true
	return nil
}

func counter(n *int) unit.Func {
	return func(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
		*n++
		return nil, nil
	}
}

func TestRun_StopsAfterExactlyNTicks(t *testing.T) {
	j := &journal{}
	s := runtime.NewScheduler(bus.New())

	var calls int
	require.NoError(t, s.Register(counter(&calls), domain.Descriptor{Name: "counter"}))
	require.NoError(t, s.Register(newFakeThreaded("cam", j), domain.Descriptor{Name: "cam", Threaded: true}))
	require.NoError(t, s.Register(newFakeThreaded("web", j), domain.Descriptor{Name: "web", Threaded: true}))

	ticks, err := s.Run(context.Background(), 0, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, ticks)
	assert.Equal(t, 7, calls, "each unit runs exactly once per tick")
	assert.Equal(t, domain.StateStopped, s.State())
	assert.Equal(t, []string{
		"start cam", "start web",
		"stop cam", "wait cam", "stop web", "wait web",
		"close web", "close cam",
	}, j.list())
}

func TestRun_ThreadedEchoReachesBus(t *testing.T) {
	b := bus.New()
	b.Set("in", domain.Text("hello"))
	s := runtime.NewScheduler(b)
	require.NoError(t, s.Register(newFakeThreaded("echo", &journal{}), domain.Descriptor{
		Name: "echo", Inputs: []string{"in"}, Outputs: []string{"out"}, Threaded: true,
	}))

	_, err := s.Run(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Text("hello"), b.Get("out"))
}

func TestRun_ThreadedLoopIsJoined(t *testing.T) {
	b := bus.New()
	s := runtime.NewScheduler(b)
	loop := unit.NewLoop(func(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
		return []domain.Value{domain.Bool(true)}, nil
	}, unit.WithInterval(time.Millisecond), unit.WithInitial(domain.Bool(false)))
	require.NoError(t, s.Register(loop, domain.Descriptor{Name: "sensor", Outputs: []string{"ready"}, Threaded: true}))

	_, err := s.Run(context.Background(), 200, 3)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- loop.Wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("threaded loop still running after Run returned")
	}
}

func TestRun_InvocationErrorStopsAndCleansUp(t *testing.T) {
	j := &journal{}
	s := runtime.NewScheduler(bus.New())
	cam := newFakeThreaded("cam", j)
	boom := errors.New("servo stalled")

	var calls int
	require.NoError(t, s.Register(cam, domain.Descriptor{Name: "cam", Threaded: true}))
	require.NoError(t, s.Register(unit.Func(func(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
		calls++
		if calls == 3 {
			return nil, boom
		}
		return nil, nil
	}), domain.Descriptor{Name: "servo"}))

	ticks, err := s.Run(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Equal(t, 2, ticks)
	assert.ErrorIs(t, err, domain.ErrInvocation)
	assert.ErrorIs(t, err, boom)
	assert.True(t, cam.closed)
	assert.Contains(t, j.list(), "wait cam")
	assert.Equal(t, domain.StateStopped, s.State())
}

func TestRun_CancellationIsCleanStop(t *testing.T) {
	s := runtime.NewScheduler(bus.New())
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	require.NoError(t, s.Register(unit.Func(func(_ context.Context, args []domain.Value) ([]domain.Value, error) {
		calls++
		if calls == 5 {
			cancel()
		}
		return nil, nil
	}), domain.Descriptor{Name: "stopper"}))

	ticks, err := s.Run(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, ticks)
}

func TestRun_Pacing(t *testing.T) {
	s := runtime.NewScheduler(bus.New())
	var calls int
	require.NoError(t, s.Register(counter(&calls), domain.Descriptor{Name: "counter"}))

	start := time.Now()
	ticks, err := s.Run(context.Background(), 100, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, ticks)
	// First tick is immediate, the remaining five wait one 10ms period each.
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestRun_OverrunDoesNotCatchUp(t *testing.T) {
	var overruns atomic.Int32
	s := runtime.NewScheduler(bus.New(), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnOverrun: func(context.Context, domain.TickEvent) { overruns.Add(1) },
	}))

	var calls int
	require.NoError(t, s.Register(unit.Func(func(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
		calls++
		if calls == 1 {
			time.Sleep(60 * time.Millisecond)
		}
		return nil, nil
	}), domain.Descriptor{Name: "slow"}))

	start := time.Now()
	ticks, err := s.Run(context.Background(), 50, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, int32(1), overruns.Load())
	// 60ms overrun, then tick 2 immediately and tick 3 one period later.
	// Catching up would have squeezed ticks 2 and 3 together.
	assert.GreaterOrEqual(t, time.Since(start), 75*time.Millisecond)
}

func TestRun_StateTransitions(t *testing.T) {
	var states []domain.LoopState
	s := runtime.NewScheduler(bus.New(), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e domain.StateEvent) { states = append(states, e.To) },
	}))
	_, err := s.Run(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.LoopState{domain.StateRunning, domain.StateStopping, domain.StateStopped}, states)
}

func TestRun_Twice(t *testing.T) {
	s := runtime.NewScheduler(bus.New())
	_, err := s.Run(context.Background(), 0, 1)
	require.NoError(t, err)

	_, err = s.Run(context.Background(), 0, 1)
	assert.ErrorIs(t, err, domain.ErrAlreadyStarted)
	assert.ErrorIs(t, s.Register(counter(new(int)), domain.Descriptor{Name: "late"}), domain.ErrAlreadyStarted)
}

func TestRun_BackgroundFailureServesStale(t *testing.T) {
	b := bus.New()
	var reported []string
	s := runtime.NewScheduler(b, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnBackgroundFailure: func(_ context.Context, e domain.UnitEvent) { reported = append(reported, e.Unit) },
	}))

	cam := newFakeThreaded("cam", &journal{})
	cam.Update([]domain.Value{domain.Number(42)})
	require.NoError(t, s.Register(cam, domain.Descriptor{Name: "cam", Outputs: []string{"frame"}, Threaded: true}))

	var ticks int
	require.NoError(t, s.Register(unit.Func(func(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
		ticks++
		if ticks == 2 {
			cam.failure = errors.New("usb reset")
		}
		return nil, nil
	}), domain.Descriptor{Name: "tick"}))

	n, err := s.Run(context.Background(), 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []string{"cam"}, reported, "failure is reported once")
	assert.Equal(t, domain.Text("usb reset"), b.Get(domain.HealthKey("cam")))
	assert.Equal(t, domain.Number(42), b.Get("frame"))
}

func TestRun_BackgroundFailureFatal(t *testing.T) {
	s := runtime.NewScheduler(bus.New(), runtime.WithFailurePolicy(domain.FailureFatal))
	cam := newFakeThreaded("cam", &journal{})
	cam.failure = errors.New("usb reset")
	require.NoError(t, s.Register(cam, domain.Descriptor{Name: "cam", Threaded: true}))

	n, err := s.Run(context.Background(), 0, 5)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, domain.ErrBackgroundFailure)

	var bf *domain.BackgroundFailure
	require.ErrorAs(t, err, &bf)
	assert.Equal(t, "cam", bf.Unit)
	assert.True(t, cam.closed)
}

func TestRun_RunningOnlyAfterThreadsStarted(t *testing.T) {
	j := &journal{}
	s := runtime.NewScheduler(bus.New(), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e domain.StateEvent) { j.add("state " + e.To.String()) },
	}))
	require.NoError(t, s.Register(newFakeThreaded("cam", j), domain.Descriptor{Name: "cam", Threaded: true}))
	require.NoError(t, s.Register(newFakeThreaded("web", j), domain.Descriptor{Name: "web", Threaded: true}))

	_, err := s.Run(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"start cam", "start web", "state " + domain.StateRunning.String(),
		"state " + domain.StateStopping.String(),
		"stop cam", "wait cam", "stop web", "wait web",
		"close web", "close cam",
		"state " + domain.StateStopped.String(),
	}, j.list())
}

func TestRun_StartFailureStopsStartedUnits(t *testing.T) {
	j := &journal{}
	var states []domain.LoopState
	s := runtime.NewScheduler(bus.New(), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e domain.StateEvent) { states = append(states, e.To) },
	}))
	var calls int
	lidar := newFakeThreaded("lidar", j)
	lidar.startErr = errors.New("device busy")

	require.NoError(t, s.Register(newFakeThreaded("cam", j), domain.Descriptor{Name: "cam", Threaded: true}))
	require.NoError(t, s.Register(newFakeThreaded("web", j), domain.Descriptor{Name: "web", Threaded: true}))
	require.NoError(t, s.Register(lidar, domain.Descriptor{Name: "lidar", Threaded: true}))
	require.NoError(t, s.Register(counter(&calls), domain.Descriptor{Name: "counter"}))

	ticks, err := s.Run(context.Background(), 0, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, lidar.startErr)
	assert.Contains(t, err.Error(), `start "lidar"`)
	assert.Zero(t, ticks)
	assert.Zero(t, calls)

	assert.Equal(t, []string{
		"start cam", "start web", "start lidar",
		"stop cam", "wait cam", "stop web", "wait web",
		"close lidar", "close web", "close cam",
	}, j.list(), "the failed unit is not stopped, the started ones are joined")
	assert.Equal(t, []domain.LoopState{domain.StateStopping, domain.StateStopped}, states)
	assert.Equal(t, domain.StateStopped, s.State())
}

func TestClose_IdleScheduler(t *testing.T) {
	j := &journal{}
	s := runtime.NewScheduler(bus.New())
	require.NoError(t, s.Register(newFakeThreaded("cam", j), domain.Descriptor{Name: "cam", Threaded: true}))

	require.NoError(t, s.Close())
	assert.Equal(t, []string{"close cam"}, j.list(), "never started, so never stopped")
	assert.Equal(t, domain.StateStopped, s.State())

	_, err := s.Run(context.Background(), 0, 1)
	assert.ErrorIs(t, err, domain.ErrAlreadyStarted)
	assert.ErrorIs(t, s.Register(counter(new(int)), domain.Descriptor{Name: "late"}), domain.ErrAlreadyStarted)
}
