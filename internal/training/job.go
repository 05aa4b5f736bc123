package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/vehicle/pkg/adapters/file"
	"github.com/aretw0/vehicle/pkg/adapters/process"
	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/parts/pilot"
	"github.com/aretw0/vehicle/pkg/ports"
)

// Job describes one training run.
type Job struct {
	Tubs      []string
	ModelPath string
	Type      string
	BaseModel string

	BatchSize int
	TrainFrac float64
	Ridge     float64
	Seed      uint64

	// External trains variants the native trainer cannot.
	External process.Config
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
	open   func(path string) (ports.RecordStore, error)
	runner *process.Runner
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithOpener replaces how tub paths are opened. The default opens tub
// directories read-only.
func WithOpener(open func(path string) (ports.RecordStore, error)) Option {
	return func(c *runConfig) {
		c.open = open
	}
}

// WithRunner sets the process runner used for external training.
func WithRunner(r *process.Runner) Option {
	return func(c *runConfig) {
		c.runner = r
	}
}

// Run executes job. Native variants are fitted in process and saved to
// job.ModelPath; other variants are delegated to job.External.
func Run(ctx context.Context, job Job, opts ...Option) (Report, error) {
	cfg := &runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		open: func(path string) (ports.RecordStore, error) {
			return file.OpenReadOnly(path)
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.runner == nil {
		cfg.runner = process.NewRunner(process.WithLogger(cfg.logger))
	}

	if job.ModelPath == "" {
		return Report{}, errors.New("a model path is required")
	}
	v, err := pilot.LookupVariant(job.Type)
	if err != nil {
		return Report{}, err
	}
	if !v.Native {
		return runExternal(ctx, cfg, job)
	}

	// 1. Base model
	var base *pilot.Model
	if job.BaseModel != "" {
		if base, err = pilot.LoadModel(job.BaseModel); err != nil {
			return Report{}, err
		}
		cfg.logger.Info("warm start from base model", "path", job.BaseModel, "variant", base.Variant)
	}

	// 2. Data
	stores := make([]ports.RecordStore, 0, len(job.Tubs))
	defer func() {
		for _, s := range stores {
			s.Close()
		}
	}()
	for _, path := range job.Tubs {
		s, err := cfg.open(path)
		if err != nil {
			return Report{}, err
		}
		stores = append(stores, s)
	}
	samples, skipped, err := LoadSamples(ctx, stores, v.Features)
	if err != nil {
		return Report{}, err
	}
	train, val := Split(samples, job.TrainFrac, job.Seed)
	cfg.logger.Info("dataset loaded", "tubs", len(job.Tubs), "train", len(train), "validation", len(val), "skipped", skipped)

	// 3. Fit
	t := NewTrainer(job.Ridge, job.BatchSize)
	t.Logger = cfg.logger
	m, rep, err := t.Fit(ctx, v, train, val, base)
	rep.Skipped = skipped
	if err != nil {
		return rep, err
	}

	// 4. Save
	if err := m.Save(job.ModelPath); err != nil {
		return rep, err
	}
	cfg.logger.Info("model saved", "path", job.ModelPath, "train_mse", rep.TrainMSE, "val_mse", rep.ValMSE)
	return rep, nil
}

func runExternal(ctx context.Context, cfg *runConfig, job Job) (Report, error) {
	if !job.External.Enabled() {
		return Report{}, fmt.Errorf("%w: %q needs train.command to be configured", domain.ErrUnsupportedModel, job.Type)
	}
	if job.External.Name == "" {
		job.External.Name = "trainer"
	}
	res, err := cfg.runner.Run(ctx, job.External, map[string]any{
		"tubs":             strings.Join(job.Tubs, ","),
		"model":            job.ModelPath,
		"type":             job.Type,
		"base_model":       job.BaseModel,
		"batch_size":       job.BatchSize,
		"train_test_split": job.TrainFrac,
	})
	if err != nil {
		return Report{}, err
	}

	rep := Report{Duration: res.Duration}
	if out, ok := res.Output.(map[string]any); ok {
		rep.Train = intField(out, "train")
		rep.Validation = intField(out, "validation")
		rep.StepsPerEpoch = intField(out, "steps_per_epoch")
		rep.ValMSE, _ = out["val_loss"].(float64)
	}
	return rep, nil
}

func intField(m map[string]any, key string) int {
	f, _ := m[key].(float64)
	return int(f)
}
