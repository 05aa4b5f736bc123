package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/vehicle/internal/config"
	"github.com/aretw0/vehicle/internal/training"
	"github.com/aretw0/vehicle/pkg/adapters/process"
	"github.com/aretw0/vehicle/pkg/adapters/redis"
	"github.com/aretw0/vehicle/pkg/ports"
)

// TrainOptions contains the flags of the train command.
type TrainOptions struct {
	ConfigPath     string
	ConfigRequired bool
	Debug          bool

	// Tubs is a comma separated list of tub paths or globs. For the redis
	// backend the entries are tub names.
	Tubs      string
	ModelPath string
	ModelType string
	BaseModel string

	Stdout io.Writer
	Stderr io.Writer
}

// Train fits a model from recorded tubs and saves it.
func Train(ctx context.Context, opts TrainOptions) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	// 1. Setup Phase
	cfg, err := config.Load(opts.ConfigPath, opts.ConfigRequired)
	if err != nil {
		return err
	}
	logger, err := createLogger(opts.Stderr, cfg.Log, opts.Debug)
	if err != nil {
		return err
	}
	modelType := opts.ModelType
	if modelType == "" {
		modelType = cfg.Drive.ModelType
	}

	// 2. Tub sources
	var tubs []string
	runOpts := []training.Option{
		training.WithLogger(logger),
		training.WithRunner(process.NewRunner(process.WithLogger(logger), process.WithStderr(opts.Stderr))),
	}
	if cfg.Tub.Backend == config.BackendRedis {
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Tub.RedisAddr,
			Password: cfg.Tub.RedisPassword,
			DB:       cfg.Tub.RedisDB,
		})
		defer client.Close()
		tubs = splitList(opts.Tubs)
		if len(tubs) == 0 {
			return fmt.Errorf("--tub is required with the redis backend")
		}
		runOpts = append(runOpts, training.WithOpener(func(name string) (ports.RecordStore, error) {
			return redis.NewReader(client, redis.WithPrefix(cfg.Tub.RedisPrefix), redis.WithTub(name)), nil
		}))
	} else {
		if tubs, err = training.ResolveTubs(opts.Tubs, cfg.Data.Path); err != nil {
			return err
		}
	}
	printSystemMessage(opts.Stdout, "Training %s model from %d tubs: %s", modelType, len(tubs), strings.Join(tubs, ", "))

	// 3. Train
	rep, err := training.Run(ctx, training.Job{
		Tubs:      tubs,
		ModelPath: opts.ModelPath,
		Type:      modelType,
		BaseModel: opts.BaseModel,
		BatchSize: cfg.Train.BatchSize,
		TrainFrac: cfg.Train.TrainTestSplit,
		Ridge:     cfg.Train.Ridge,
		Seed:      cfg.Train.Seed,
		External: process.Config{
			Name:        "trainer",
			Command:     cfg.Train.Command,
			Args:        cfg.Train.Args,
			Environment: cfg.Train.Env,
		},
	}, runOpts...)
	if err != nil {
		return err
	}

	printSystemMessage(opts.Stdout, "train: %d, validation: %d, skipped: %d", rep.Train, rep.Validation, rep.Skipped)
	printSystemMessage(opts.Stdout, "steps_per_epoch: %d", rep.StepsPerEpoch)
	printSystemMessage(opts.Stdout, "train mse: %.6f, validation mse: %.6f (%s)", rep.TrainMSE, rep.ValMSE, rep.Duration.Round(1e6))
	printSystemMessage(opts.Stdout, "Model saved to %s", opts.ModelPath)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
