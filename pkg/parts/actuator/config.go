package actuator

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// SteeringConfig holds the steering channel and its end-point pulses.
type SteeringConfig struct {
	Channel    int `mapstructure:"channel"`
	LeftPulse  int `mapstructure:"left_pulse"`
	RightPulse int `mapstructure:"right_pulse"`
}

// ThrottleConfig holds the throttle channel and its calibration pulses.
type ThrottleConfig struct {
	Channel      int `mapstructure:"channel"`
	ForwardPulse int `mapstructure:"forward_pulse"`
	StoppedPulse int `mapstructure:"stopped_pulse"`
	ReversePulse int `mapstructure:"reverse_pulse"`
}

// DefaultSteering fits a stock hobby servo on a PCA9685 board.
func DefaultSteering() SteeringConfig {
	return SteeringConfig{Channel: 1, LeftPulse: 420, RightPulse: 360}
}

// DefaultThrottle fits a stock hobby ESC on a PCA9685 board.
func DefaultThrottle() ThrottleConfig {
	return ThrottleConfig{Channel: 0, ForwardPulse: 400, StoppedPulse: 370, ReversePulse: 310}
}

// DecodeSteering overlays params onto the default calibration.
func DecodeSteering(params map[string]any) (SteeringConfig, error) {
	cfg := DefaultSteering()
	if err := decode(params, &cfg); err != nil {
		return SteeringConfig{}, fmt.Errorf("steering parameters: %w", err)
	}
	return cfg, nil
}

// DecodeThrottle overlays params onto the default calibration.
func DecodeThrottle(params map[string]any) (ThrottleConfig, error) {
	cfg := DefaultThrottle()
	if err := decode(params, &cfg); err != nil {
		return ThrottleConfig{}, fmt.Errorf("throttle parameters: %w", err)
	}
	// Inverted ESC wiring swaps forward and reverse; stopped must sit between.
	lo, hi := min(cfg.ReversePulse, cfg.ForwardPulse), max(cfg.ReversePulse, cfg.ForwardPulse)
	if cfg.StoppedPulse < lo || cfg.StoppedPulse > hi {
		return ThrottleConfig{}, fmt.Errorf("throttle parameters: stopped pulse %d must lie between reverse %d and forward %d",
			cfg.StoppedPulse, cfg.ReversePulse, cfg.ForwardPulse)
	}
	return cfg, nil
}

func decode(params map[string]any, out any) error {
	if params == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}
