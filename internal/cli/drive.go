package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/aretw0/vehicle"
	"github.com/aretw0/vehicle/internal/config"
	"github.com/aretw0/vehicle/internal/presentation/tui"
	"github.com/aretw0/vehicle/internal/validator"
	"github.com/aretw0/vehicle/pkg/observability"
	"github.com/aretw0/vehicle/pkg/runner"
)

// DriveOptions contains the flags of the drive command. Zero values fall
// back to the configuration.
type DriveOptions struct {
	ConfigPath     string
	ConfigRequired bool
	Debug          bool

	ModelPath string
	ModelType string
	Chaos     bool

	// Hz and MaxLoops override the configuration when non-nil.
	Hz       *float64
	MaxLoops *int

	Stdout io.Writer
	Stderr io.Writer
}

func (o DriveOptions) modelType(cfg *config.Config) string {
	if o.ModelType != "" {
		return o.ModelType
	}
	return cfg.Drive.ModelType
}

func (o *DriveOptions) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// Drive assembles the vehicle from configuration and runs it until the loop
// limit, a stop signal or a part failure.
func Drive(ctx context.Context, opts DriveOptions) error {
	opts.defaults()

	// 1. Setup Phase
	cfg, err := config.Load(opts.ConfigPath, opts.ConfigRequired)
	if err != nil {
		return err
	}
	logger, err := createLogger(opts.Stderr, cfg.Log, opts.Debug)
	if err != nil {
		return err
	}
	runID := uuid.NewString()

	hz, maxLoops := cfg.Drive.LoopHz, cfg.Drive.MaxLoops
	if opts.Hz != nil {
		hz = *opts.Hz
	}
	if opts.MaxLoops != nil {
		maxLoops = *opts.MaxLoops
	}

	metrics := observability.NewMetrics(observability.WithProcessMetrics())
	jitter := observability.NewJitter(observability.DefaultJitterWindow)
	hooks := metrics.Hooks().Merge(jitter.Hooks())
	if opts.Debug {
		hooks = hooks.Merge(createDebugHooks(logger))
	}

	v := vehicle.New(
		vehicle.WithLogger(logger),
		vehicle.WithLifecycleHooks(hooks),
		vehicle.WithFailurePolicy(cfg.FailurePolicy()),
	)

	// 2. Assembly
	asm, err := AssembleDrive(ctx, v, cfg, opts,
		WithAssemblyLogger(logger),
		WithRecordCounter(metrics.RecordsWritten),
	)
	if err != nil {
		_ = v.Close()
		return fmt.Errorf("assemble vehicle: %w", err)
	}
	for _, f := range validator.Validate(v.Describe()) {
		logger.Warn("pipeline finding", "severity", string(f.Severity), "unit", f.Unit, "key", f.Key, "msg", f.Message)
	}

	if tui.IsTerminal(os.Stdout) && opts.Stdout == os.Stdout {
		tui.PrintBanner(opts.Stdout, vehicle.Version)
	}
	printSystemMessage(opts.Stdout, "Driving at %g Hz. Controller on %s, tub session %s.", hz, cfg.Web.Addr, asm.Tub.Session())

	// 3. Run
	r := runner.NewRunner(
		runner.WithLogger(logger),
		runner.WithAddr(cfg.Metrics.Addr),
		runner.WithMetrics(metrics),
		runner.WithJitter(jitter),
		runner.WithRunID(runID),
	)
	res, err := r.Run(ctx, v, hz, maxLoops)

	// 4. Summary
	status := "finished"
	if res.Interrupted {
		status = "interrupted"
	}
	printSystemMessage(opts.Stdout, "Drive %s after %d loops. %s", status, res.Ticks, res.Jitter.String())
	return err
}
