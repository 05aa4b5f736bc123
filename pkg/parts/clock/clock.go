// Package clock provides the timestamp part.
package clock

import (
	"context"
	"time"

	"github.com/aretw0/vehicle/pkg/domain"
)

// Layout is the format of published timestamps.
const Layout = "2006-01-02 15:04:05.000000"

// Timestamp publishes the current UTC time as text on every tick.
type Timestamp struct {
	now func() time.Time
}

// New creates a Timestamp part reading the wall clock.
func New() *Timestamp {
	return &Timestamp{now: time.Now}
}

// NewWithClock creates a Timestamp part with a custom time source.
func NewWithClock(now func() time.Time) *Timestamp {
	return &Timestamp{now: now}
}

// Name implements the default part naming.
func (t *Timestamp) Name() string { return "timestamp" }

// Arity reports no inputs and one output.
func (t *Timestamp) Arity() (int, int) { return 0, 1 }

// Invoke returns the formatted time.
func (t *Timestamp) Invoke(context.Context, []domain.Value) ([]domain.Value, error) {
	return []domain.Value{domain.Text(t.now().UTC().Format(Layout))}, nil
}
