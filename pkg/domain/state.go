package domain

import "fmt"

// LoopState is the scheduler lifecycle position.
type LoopState int32

const (
	StateIdle     LoopState = iota // registered, not started
	StateRunning                   // ticking
	StateStopping                  // joining threaded units
	StateStopped                   // terminal
)

func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// FailurePolicy decides what the scheduler does when a threaded unit's
// background loop terminates with an error.
type FailurePolicy int

const (
	// FailureServeStale keeps serving the last good snapshot and exposes the
	// failure on the Bus under HealthKey(unit).
	FailureServeStale FailurePolicy = iota
	// FailureFatal stops the loop with a *BackgroundFailure.
	FailureFatal
)

func (p FailurePolicy) String() string {
	if p == FailureFatal {
		return "fatal"
	}
	return "stale"
}

// ParseFailurePolicy maps a configuration string to a policy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "stale":
		return FailureServeStale, nil
	case "fatal":
		return FailureFatal, nil
	default:
		return FailureServeStale, fmt.Errorf("unknown failure policy %q", s)
	}
}
