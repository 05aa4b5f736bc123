package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vehicle/pkg/domain"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vehicle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, domain.FailureServeStale, cfg.FailurePolicy())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), true)
	assert.Error(t, err)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeFile(t, `
drive:
  loop_hz: 10
  failure_policy: fatal
tub:
  backend: redis
  redis_lock_ttl: 10s
train:
  args: ["train.py", "--epochs", "3"]
parts:
  steering:
    channel: 2
    left_pulse: 460
`)
	t.Setenv("VEHICLE_DRIVE_MAX_LOOPS", "500")
	t.Setenv("VEHICLE_TUB_REDIS_ADDR", "redis:6380")
	t.Setenv("VEHICLE_LOG_LEVEL", "debug")

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.Drive.LoopHz)
	assert.Equal(t, 500, cfg.Drive.MaxLoops)
	assert.Equal(t, domain.FailureFatal, cfg.FailurePolicy())
	assert.Equal(t, BackendRedis, cfg.Tub.Backend)
	assert.Equal(t, "redis:6380", cfg.Tub.RedisAddr)
	assert.Equal(t, "vehicle:tub:", cfg.Tub.RedisPrefix, "unset keys keep defaults")
	assert.Equal(t, 10*time.Second, cfg.Tub.RedisLockTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"train.py", "--epochs", "3"}, cfg.Train.Args)
	assert.Equal(t, 160, cfg.Camera.Width)
	assert.Equal(t, 460, cfg.Part("steering")["left_pulse"])
	assert.Nil(t, cfg.Part("throttle"))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative rate", "drive:\n  loop_hz: -1\n"},
		{"unknown policy", "drive:\n  failure_policy: ignore\n"},
		{"unknown backend", "tub:\n  backend: s3\n"},
		{"negative lock ttl", "tub:\n  redis_lock_ttl: -1s\n"},
		{"split out of range", "train:\n  train_test_split: 1.5\n"},
		{"malformed yaml", "drive: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content), true)
			assert.Error(t, err)
		})
	}
}
