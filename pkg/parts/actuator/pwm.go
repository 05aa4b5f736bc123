package actuator

import (
	"context"
	"fmt"
	"math"

	"github.com/aretw0/vehicle/pkg/domain"
)

// Steering converts an angle in [-1, 1] into a pulse between the left and
// right end points.
type Steering struct {
	pwm PulseWriter
	cfg SteeringConfig
}

// NewSteering centers the wheels and returns the steering part.
func NewSteering(pwm PulseWriter, cfg SteeringConfig) (*Steering, error) {
	s := &Steering{pwm: pwm, cfg: cfg}
	if err := s.set(0); err != nil {
		return nil, err
	}
	return s, nil
}

// Name implements the default part naming.
func (s *Steering) Name() string { return "steering" }

// Arity reports one input (angle) and no outputs.
func (s *Steering) Arity() (int, int) { return 1, 0 }

// Invoke writes the pulse for the angle. Unset angles center the wheels.
func (s *Steering) Invoke(_ context.Context, args []domain.Value) ([]domain.Value, error) {
	return nil, s.set(args[0].Float())
}

// Pulse returns the pulse written for angle.
func (s *Steering) Pulse(angle float64) int {
	return mapRange(clamp(angle), -1, 1, s.cfg.LeftPulse, s.cfg.RightPulse)
}

// Close centers the wheels.
func (s *Steering) Close() error { return s.set(0) }

func (s *Steering) set(angle float64) error {
	if err := s.pwm.SetPulse(s.cfg.Channel, s.Pulse(angle)); err != nil {
		return fmt.Errorf("steering: %w", err)
	}
	return nil
}

// Throttle converts a throttle in [-1, 1] into a pulse: positive values map
// between stopped and forward, negative between reverse and stopped.
type Throttle struct {
	pwm PulseWriter
	cfg ThrottleConfig
}

// NewThrottle sends the stopped pulse, which also arms most ESCs, and returns
// the throttle part.
func NewThrottle(pwm PulseWriter, cfg ThrottleConfig) (*Throttle, error) {
	t := &Throttle{pwm: pwm, cfg: cfg}
	if err := t.set(0); err != nil {
		return nil, err
	}
	return t, nil
}

// Name implements the default part naming.
func (t *Throttle) Name() string { return "throttle" }

// Arity reports one input (throttle) and no outputs.
func (t *Throttle) Arity() (int, int) { return 1, 0 }

// Invoke writes the pulse for the throttle. Unset throttle stops the car.
func (t *Throttle) Invoke(_ context.Context, args []domain.Value) ([]domain.Value, error) {
	return nil, t.set(args[0].Float())
}

// Pulse returns the pulse written for throttle.
func (t *Throttle) Pulse(throttle float64) int {
	throttle = clamp(throttle)
	if throttle > 0 {
		return mapRange(throttle, 0, 1, t.cfg.StoppedPulse, t.cfg.ForwardPulse)
	}
	return mapRange(throttle, -1, 0, t.cfg.ReversePulse, t.cfg.StoppedPulse)
}

// Close stops the car.
func (t *Throttle) Close() error { return t.set(0) }

func (t *Throttle) set(throttle float64) error {
	if err := t.pwm.SetPulse(t.cfg.Channel, t.Pulse(throttle)); err != nil {
		return fmt.Errorf("throttle: %w", err)
	}
	return nil
}

func clamp(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return min(max(x, -1), 1)
}

// mapRange linearly maps x from [xMin, xMax] onto [yMin, yMax].
func mapRange(x, xMin, xMax float64, yMin, yMax int) int {
	ratio := (x - xMin) / (xMax - xMin)
	return int(math.Round(float64(yMin) + ratio*float64(yMax-yMin)))
}
