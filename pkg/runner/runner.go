package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/vehicle"
	vhttp "github.com/aretw0/vehicle/pkg/adapters/http"
	"github.com/aretw0/vehicle/pkg/observability"
)

// Runner drives a Vehicle for the lifetime of a process.
type Runner struct {
	// Logger is used for lifecycle logging. If nil, a no-op logger is used.
	Logger *slog.Logger

	// Addr is the listen address of the operational HTTP endpoint.
	// Empty disables it.
	Addr string

	// Listener, when set, is used instead of binding Addr.
	Listener net.Listener

	Metrics *observability.Metrics
	Jitter  *observability.Jitter

	// Signals turns SIGINT/SIGTERM into a cooperative stop.
	Signals bool

	RunID string

	ShutdownTimeout time.Duration
}

// Result summarizes a finished run.
type Result struct {
	Ticks       int
	Interrupted bool
	Jitter      observability.JitterReport
}

// NewRunner creates a Runner with signal handling enabled.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Signals:         true,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Run starts the vehicle at hz for at most maxTicks ticks (0 = until stopped)
// and blocks until it has fully shut down.
//
// Teardown order is fixed: the loop stops (threaded parts joined, parts
// closed), then the HTTP endpoint is drained. A signal-triggered stop is not
// an error.
func (r *Runner) Run(ctx context.Context, v *vehicle.Vehicle, hz float64, maxTicks int) (Result, error) {
	// 1. Setup Phase
	loopCtx := ctx
	var signals *SignalManager
	if r.Signals {
		signals = NewSignalManager(ctx)
		defer signals.Stop()
		loopCtx = signals.Context()
	}

	logger := r.Logger
	if r.RunID != "" {
		logger = logger.With("run_id", r.RunID)
	}

	srv, serveErr, err := r.serve(v)
	if err != nil {
		// The loop never runs, so its teardown never releases the parts.
		return Result{}, errors.Join(err, v.Close())
	}

	// 2. Loop
	logger.Info("vehicle starting", "hz", hz, "max_ticks", maxTicks, "parts", len(v.Describe()))
	ticks, runErr := v.Start(loopCtx, hz, maxTicks)

	res := Result{Ticks: ticks}
	if signals != nil {
		res.Interrupted = signals.Interrupted()
	}
	if res.Interrupted {
		logger.Info("stop signal received")
	}

	// 3. Teardown
	var shutdownErr error
	if srv != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.ShutdownTimeout)
		shutdownErr = srv.Shutdown(sctx)
		cancel()
		if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownErr = errors.Join(shutdownErr, err)
		}
		if shutdownErr != nil {
			shutdownErr = fmt.Errorf("http endpoint: %w", shutdownErr)
		}
	}

	// 4. Report
	if r.Jitter != nil {
		var period time.Duration
		if hz > 0 {
			period = time.Duration(float64(time.Second) / hz)
		}
		res.Jitter = r.Jitter.Report(period)
		logger.Info("loop timing", "report", res.Jitter.String())
	}

	err = errors.Join(runErr, shutdownErr)
	if err != nil {
		logger.Error("vehicle stopped with error", "ticks", ticks, "err", err)
		return res, err
	}
	logger.Info("vehicle stopped", "ticks", ticks)
	return res, nil
}

// serve starts the HTTP endpoint if configured. The listener is bound before
// the loop starts so that a bad address fails fast.
func (r *Runner) serve(v *vehicle.Vehicle) (*http.Server, <-chan error, error) {
	ln := r.Listener
	if ln == nil && r.Addr == "" {
		return nil, nil, nil
	}

	opts := []vhttp.Option{vhttp.WithRunID(r.RunID)}
	if r.Metrics != nil {
		opts = append(opts, vhttp.WithMetrics(r.Metrics.Handler()))
	}

	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", r.Addr)
		if err != nil {
			return nil, nil, fmt.Errorf("listen on %s: %w", r.Addr, err)
		}
	}

	srv := &http.Server{
		Handler:           vhttp.NewHandler(v, opts...),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	r.Logger.Info("operational endpoint listening", "addr", ln.Addr().String())
	return srv, errCh, nil
}
