// Package bus implements the shared state bus: the current value of every
// named signal in the loop.
//
// The Bus is not safe for concurrent use. It is owned by the control
// goroutine; threaded units exchange data with it only through the scheduler.
package bus

import (
	"maps"
	"slices"

	"github.com/aretw0/vehicle/pkg/domain"
)

// Bus maps signal keys to their latest value.
type Bus struct {
	values map[string]domain.Value
	def    domain.Value
}

// Option configures a Bus.
type Option func(*Bus)

// WithDefault sets the value returned for keys that were never written.
func WithDefault(v domain.Value) Option {
	return func(b *Bus) {
		b.def = v
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		values: make(map[string]domain.Value),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Get returns the most recent write to key, or the default if unset.
func (b *Bus) Get(key string) domain.Value {
	if v, ok := b.values[key]; ok {
		return v
	}
	return b.def
}

// Lookup returns the value at key and whether it was ever written.
func (b *Bus) Lookup(key string) (domain.Value, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Set overwrites key. The last writer wins; kinds are not checked against prior writes.
func (b *Bus) Set(key string, v domain.Value) {
	b.values[key] = v
}

// GetMany returns the values of keys in the given order.
func (b *Bus) GetMany(keys []string) []domain.Value {
	out := make([]domain.Value, len(keys))
	for i, k := range keys {
		out[i] = b.Get(k)
	}
	return out
}

// SetMany writes values positionally to keys. Extra values are ignored.
func (b *Bus) SetMany(keys []string, values []domain.Value) {
	for i, k := range keys {
		if i >= len(values) {
			return
		}
		b.values[k] = values[i]
	}
}

// Snapshot returns a copy of every written entry.
func (b *Bus) Snapshot() map[string]domain.Value {
	return maps.Clone(b.values)
}

// Keys returns the written keys in sorted order.
func (b *Bus) Keys() []string {
	return slices.Sorted(maps.Keys(b.values))
}

// Len returns the number of written keys.
func (b *Bus) Len() int { return len(b.values) }
