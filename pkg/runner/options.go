package runner

import (
	"log/slog"
	"net"
	"time"

	"github.com/aretw0/vehicle/pkg/observability"
)

// DefaultShutdownTimeout bounds how long the HTTP endpoint may take to drain.
const DefaultShutdownTimeout = 3 * time.Second

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithAddr serves /healthz, /readyz and /metrics on addr while the loop runs.
// Empty disables the endpoint.
func WithAddr(addr string) Option {
	return func(r *Runner) {
		r.Addr = addr
	}
}

// WithListener serves the HTTP endpoint on an already bound listener.
func WithListener(ln net.Listener) Option {
	return func(r *Runner) {
		r.Listener = ln
	}
}

// WithMetrics exposes the given collectors on the HTTP endpoint.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) {
		r.Metrics = m
	}
}

// WithJitter reports tick spacing statistics after the loop stops.
func WithJitter(j *observability.Jitter) Option {
	return func(r *Runner) {
		r.Jitter = j
	}
}

// WithSignals enables or disables OS signal handling (default enabled).
func WithSignals(enabled bool) Option {
	return func(r *Runner) {
		r.Signals = enabled
	}
}

// WithRunID labels the run in logs and health responses.
func WithRunID(id string) Option {
	return func(r *Runner) {
		r.RunID = id
	}
}
