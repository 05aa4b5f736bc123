// Package unit defines the contract every pluggable part honors to take part
// in the loop, plus adapters for the common shapes.
package unit

import (
	"context"

	"github.com/aretw0/vehicle/pkg/domain"
)

// Synchronous units run on the control goroutine every tick they are eligible.
// Invoke must return within a small fraction of the tick period; a slow unit
// stalls the whole loop.
type Synchronous interface {
	Invoke(ctx context.Context, args []domain.Value) ([]domain.Value, error)
}

// Threaded units compute continuously on their own goroutine.
//
// Start begins the background loop with the initial inputs. Update hands over
// fresh inputs and Latest returns the most recent completed result (or the
// initial default); neither may block. Stop signals the loop to exit and Wait
// joins it, returning the background failure if the loop died with an error.
//
// Stop is cooperative. Wait has no timeout: an implementation that never
// observes Stop blocks shutdown forever, so background loops must poll for it.
type Threaded interface {
	Start(ctx context.Context, initial []domain.Value) error
	Update(args []domain.Value)
	Latest() []domain.Value
	Stop()
	Wait() error
}

// Arity is implemented by units that know their call and result counts.
// Registration rejects descriptors that disagree with it.
type Arity interface {
	Arity() (in, out int)
}

// Closer is implemented by units that hold a resource (device handle, file,
// connection). Close runs after the loop has stopped.
type Closer interface {
	Close() error
}

// Failing is implemented by threaded units that can report a dead background loop.
type Failing interface {
	Failure() error
}

// Func adapts a plain function to Synchronous.
type Func func(ctx context.Context, args []domain.Value) ([]domain.Value, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
	return f(ctx, args)
}

// LambdaUnit is a pure synchronous transform with a declared arity.
type LambdaUnit struct {
	in, out int
	fn      func(args []domain.Value) []domain.Value
}

// Lambda wraps a pure transform taking in arguments and returning out results.
func Lambda(in, out int, fn func(args []domain.Value) []domain.Value) *LambdaUnit {
	return &LambdaUnit{in: in, out: out, fn: fn}
}

// Invoke applies the transform.
func (l *LambdaUnit) Invoke(_ context.Context, args []domain.Value) ([]domain.Value, error) {
	return l.fn(args), nil
}

// Arity reports the declared argument and result counts.
func (l *LambdaUnit) Arity() (int, int) { return l.in, l.out }
