// Package actuator maps steering and throttle commands onto PWM pulses.
package actuator

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// PulseWriter drives one PWM output. Implementations wrap a hardware
// controller such as a PCA9685 board.
type PulseWriter interface {
	SetPulse(channel, pulse int) error
}

// DryRun is a PulseWriter that only records and logs pulses. It stands in for
// the hardware controller when none is attached.
type DryRun struct {
	mu     sync.Mutex
	pulses map[int]int
	writes int
	logger *slog.Logger
}

// NewDryRun creates a dry-run controller.
func NewDryRun(logger *slog.Logger) *DryRun {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DryRun{pulses: make(map[int]int), logger: logger}
}

// SetPulse records pulse as the current value of channel.
func (d *DryRun) SetPulse(channel, pulse int) error {
	if channel < 0 || channel > 15 {
		return fmt.Errorf("channel %d out of range [0, 15]", channel)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.pulses[channel]; !ok || prev != pulse {
		d.logger.Debug("pwm", "channel", channel, "pulse", pulse)
	}
	d.pulses[channel] = pulse
	d.writes++
	return nil
}

// Pulse returns the last pulse written to channel.
func (d *DryRun) Pulse(channel int) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pulses[channel]
	return p, ok
}

// Writes returns the number of SetPulse calls.
func (d *DryRun) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}
