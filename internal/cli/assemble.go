package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/vehicle"
	"github.com/aretw0/vehicle/internal/config"
	"github.com/aretw0/vehicle/pkg/adapters/file"
	"github.com/aretw0/vehicle/pkg/adapters/memory"
	"github.com/aretw0/vehicle/pkg/adapters/redis"
	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/parts/actuator"
	"github.com/aretw0/vehicle/pkg/parts/camera"
	"github.com/aretw0/vehicle/pkg/parts/clock"
	"github.com/aretw0/vehicle/pkg/parts/drive"
	"github.com/aretw0/vehicle/pkg/parts/pilot"
	"github.com/aretw0/vehicle/pkg/parts/transform"
	"github.com/aretw0/vehicle/pkg/parts/tub"
	"github.com/aretw0/vehicle/pkg/parts/web"
	"github.com/aretw0/vehicle/pkg/ports"
)

// Recorded keys and their tub types, in input order.
var (
	TubInputs = []string{domain.KeyImage, domain.KeyUserAngle, domain.KeyUserThrottle, domain.KeyUserMode, domain.KeyTimestamp}
	TubTypes  = []string{tub.TypeImage, tub.TypeFloat, tub.TypeFloat, tub.TypeString, tub.TypeString}
)

// Assembly holds the parts of a drive vehicle that callers may need after
// construction.
type Assembly struct {
	Controller *web.Controller
	PWM        *actuator.DryRun
	Tub        *tub.Writer
}

type assembleConfig struct {
	logger  *slog.Logger
	records prometheus.Counter
}

// AssembleOption configures AssembleDrive.
type AssembleOption func(*assembleConfig)

// WithAssemblyLogger sets the logger handed to parts.
func WithAssemblyLogger(logger *slog.Logger) AssembleOption {
	return func(c *assembleConfig) {
		c.logger = logger
	}
}

// WithRecordCounter counts records written by the tub part.
func WithRecordCounter(c prometheus.Counter) AssembleOption {
	return func(ac *assembleConfig) {
		ac.records = c
	}
}

// AssembleDrive adds the drive pipeline to v:
//
//	clock -> camera -> web -> pilot condition -> pilot -> mixer
//	      -> steering, throttle -> tub
//
// Order is execution order: each part sees this tick's outputs of the parts
// before it. On error, resources opened so far are released.
func AssembleDrive(ctx context.Context, v *vehicle.Vehicle, cfg *config.Config, opts DriveOptions, aopts ...AssembleOption) (asm *Assembly, err error) {
	ac := &assembleConfig{logger: v.Logger()}
	for _, opt := range aopts {
		opt(ac)
	}
	asm = &Assembly{}

	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	// 1. Clock
	if err := v.Add(clock.New(), vehicle.Outputs(domain.KeyTimestamp)); err != nil {
		return nil, err
	}

	// 2. Camera
	cam := camera.NewSimulated(
		camera.WithResolution(cfg.Camera.Width, cfg.Camera.Height),
		camera.WithFPS(cfg.Camera.FPS),
		camera.WithLogger(ac.logger),
	)
	if err := v.Add(cam, vehicle.Outputs(domain.KeyImage), vehicle.Threaded()); err != nil {
		return nil, err
	}

	// 3. Controller
	asm.Controller = web.NewController(
		web.WithAddr(cfg.Web.Addr),
		web.WithChaos(opts.Chaos),
		web.WithLogger(ac.logger),
	)
	if err := v.Add(asm.Controller,
		vehicle.Inputs(domain.KeyImage),
		vehicle.Outputs(web.Outputs...),
		vehicle.Threaded(),
	); err != nil {
		return nil, err
	}

	// 4. Pilot, only outside user mode
	if err := v.Add(transform.PilotCondition(),
		vehicle.Named("pilot_condition"),
		vehicle.Inputs(domain.KeyUserMode),
		vehicle.Outputs(domain.KeyRunPilot),
	); err != nil {
		return nil, err
	}
	p, err := pilot.Load(opts.modelType(cfg), opts.ModelPath)
	if err != nil {
		return nil, err
	}
	if err := v.Add(p,
		vehicle.Inputs(domain.KeyImage),
		vehicle.Outputs(domain.KeyPilotAngle, domain.KeyPilotThrottle),
		vehicle.RunWhen(domain.KeyRunPilot),
	); err != nil {
		return nil, err
	}

	// 5. Drive mode
	if err := v.Add(drive.ModeMixer(),
		vehicle.Named("drive_mode"),
		vehicle.Inputs(drive.Inputs...),
		vehicle.Outputs(drive.Outputs...),
	); err != nil {
		return nil, err
	}

	// 6. Actuators
	steerCfg, err := actuator.DecodeSteering(cfg.Part("steering"))
	if err != nil {
		return nil, err
	}
	throttleCfg, err := actuator.DecodeThrottle(cfg.Part("throttle"))
	if err != nil {
		return nil, err
	}
	asm.PWM = actuator.NewDryRun(ac.logger)
	steering, err := actuator.NewSteering(asm.PWM, steerCfg)
	if err != nil {
		return nil, err
	}
	throttle, err := actuator.NewThrottle(asm.PWM, throttleCfg)
	if err != nil {
		return nil, err
	}
	if err := v.Add(steering, vehicle.Inputs(domain.KeyAngle)); err != nil {
		return nil, err
	}
	if err := v.Add(throttle, vehicle.Inputs(domain.KeyThrottle)); err != nil {
		return nil, err
	}

	// 7. Tub
	store, err := OpenTub(ctx, cfg.Tub)
	if err != nil {
		return nil, err
	}
	closers = append(closers, store.Close)

	tubOpts := []tub.Option{tub.WithLogger(ac.logger)}
	if ac.records != nil {
		tubOpts = append(tubOpts, tub.WithCounter(ac.records))
	}
	asm.Tub, err = tub.NewWriter(store, TubInputs, TubTypes, tubOpts...)
	if err != nil {
		return nil, err
	}
	if err := v.Add(asm.Tub, vehicle.Inputs(TubInputs...), vehicle.RunWhen(domain.KeyRecording)); err != nil {
		return nil, err
	}
	return asm, nil
}

// OpenTub opens the configured record store for writing.
func OpenTub(ctx context.Context, cfg config.TubConfig) (ports.RecordStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil
	case config.BackendRedis:
		return redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redis.WithPrefix(cfg.RedisPrefix),
			redis.WithTub(filepath.Base(cfg.Path)),
			redis.WithLockTTL(cfg.RedisLockTTL),
		)
	case config.BackendFile, "":
		return file.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown tub backend %q", cfg.Backend)
	}
}
