// Package config loads the vehicle configuration.
//
// Values come from three layers, later ones winning: built-in defaults, a
// YAML file and environment variables prefixed with VEHICLE_ (for example
// VEHICLE_DRIVE_LOOP_HZ=10 or VEHICLE_TUB_BACKEND=redis).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/vehicle/pkg/domain"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VEHICLE"

// DefaultFile is the configuration file read when none is given.
const DefaultFile = "vehicle.yaml"

// Tub backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Drive   DriveConfig   `yaml:"drive"`
	Camera  CameraConfig  `yaml:"camera"`
	Tub     TubConfig     `yaml:"tub"`
	Data    DataConfig    `yaml:"data"`
	Train   TrainConfig   `yaml:"train"`
	Web     WebConfig     `yaml:"web"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`

	// Parts holds opaque per-part parameters, decoded by the part that owns
	// them (e.g. parts.steering.left_pulse).
	Parts map[string]map[string]any `yaml:"parts" ignored:"true"`
}

// DriveConfig holds the control loop settings.
type DriveConfig struct {
	LoopHz        float64 `yaml:"loop_hz" split_words:"true"`
	MaxLoops      int     `yaml:"max_loops" split_words:"true"`
	FailurePolicy string  `yaml:"failure_policy" split_words:"true"`
	ModelType     string  `yaml:"model_type" split_words:"true"`
}

// CameraConfig holds the camera settings.
type CameraConfig struct {
	Width  int     `yaml:"width" split_words:"true"`
	Height int     `yaml:"height" split_words:"true"`
	FPS    float64 `yaml:"fps" split_words:"true"`
}

// TubConfig selects where driving records are written.
type TubConfig struct {
	Path          string `yaml:"path" split_words:"true"`
	Backend       string `yaml:"backend" split_words:"true"`
	RedisAddr     string `yaml:"redis_addr" split_words:"true"`
	RedisPassword string `yaml:"redis_password" split_words:"true"`
	RedisDB       int    `yaml:"redis_db" split_words:"true"`
	RedisPrefix   string `yaml:"redis_prefix" split_words:"true"`
	// RedisLockTTL is how long a crashed writer keeps a Redis tub locked.
	RedisLockTTL time.Duration `yaml:"redis_lock_ttl" split_words:"true"`
}

// DataConfig locates recorded tubs for training.
type DataConfig struct {
	Path string `yaml:"path" split_words:"true"`
}

// TrainConfig holds training settings.
type TrainConfig struct {
	BatchSize      int               `yaml:"batch_size" split_words:"true"`
	TrainTestSplit float64           `yaml:"train_test_split" split_words:"true"`
	Ridge          float64           `yaml:"ridge" split_words:"true"`
	Seed           uint64            `yaml:"seed" split_words:"true"`
	Command        string            `yaml:"command" split_words:"true"`
	Args           []string          `yaml:"args" split_words:"true"`
	Env            map[string]string `yaml:"env" split_words:"true"`
}

// WebConfig holds the drive controller settings.
type WebConfig struct {
	Addr string `yaml:"addr" split_words:"true"`
}

// MetricsConfig holds the operational endpoint settings. An empty address
// disables the endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr" split_words:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Drive: DriveConfig{
			LoopHz:        20,
			FailurePolicy: "stale",
			ModelType:     "linear-dropout",
		},
		Camera: CameraConfig{
			Width:  160,
			Height: 120,
			FPS:    20,
		},
		Tub: TubConfig{
			Path:        "data/tub",
			Backend:     BackendFile,
			RedisAddr:    "localhost:6379",
			RedisPrefix:  "vehicle:tub:",
			RedisLockTTL: 30 * time.Second,
		},
		Data: DataConfig{
			Path: "data",
		},
		Train: TrainConfig{
			BatchSize:      128,
			TrainTestSplit: 0.8,
			Ridge:          1.0,
			Seed:           1,
		},
		Web: WebConfig{
			Addr: ":8887",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Parts: map[string]map[string]any{},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is only an error when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Drive.LoopHz < 0 {
		errs = append(errs, fmt.Errorf("drive.loop_hz must not be negative"))
	}
	if c.Drive.MaxLoops < 0 {
		errs = append(errs, fmt.Errorf("drive.max_loops must not be negative"))
	}
	if _, err := domain.ParseFailurePolicy(c.Drive.FailurePolicy); err != nil {
		errs = append(errs, fmt.Errorf("drive.failure_policy: %w", err))
	}
	switch c.Tub.Backend {
	case BackendFile, BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("tub.backend: unknown backend %q", c.Tub.Backend))
	}
	if c.Tub.RedisLockTTL < 0 {
		errs = append(errs, fmt.Errorf("tub.redis_lock_ttl must not be negative"))
	}
	if c.Train.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("train.batch_size must be positive"))
	}
	if c.Train.TrainTestSplit <= 0 || c.Train.TrainTestSplit > 1 {
		errs = append(errs, fmt.Errorf("train.train_test_split must be in (0, 1]"))
	}
	if c.Train.Ridge < 0 {
		errs = append(errs, fmt.Errorf("train.ridge must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// FailurePolicy returns the parsed background failure policy.
func (c *Config) FailurePolicy() domain.FailurePolicy {
	p, _ := domain.ParseFailurePolicy(c.Drive.FailurePolicy)
	return p
}

// Part returns the parameters of the named part, or nil.
func (c *Config) Part(name string) map[string]any {
	return c.Parts[name]
}
