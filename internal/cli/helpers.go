package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/vehicle/internal/config"
	"github.com/aretw0/vehicle/internal/logging"
	"github.com/aretw0/vehicle/pkg/domain"
)

// createLogger configures the application logger.
// --debug forces debug level regardless of the configured level.
func createLogger(w io.Writer, cfg config.LogConfig, debug bool) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	return logging.NewWithFormat(w, level, cfg.Format), nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(ctx context.Context, e domain.StateEvent) {
			logger.Debug("Loop State", "from", e.From.String(), "to", e.To.String())
		},
		OnUnitError: func(ctx context.Context, e domain.UnitEvent) {
			logger.Debug("Unit Failed", "unit", e.Unit, "tick", e.Tick, "err", e.Err)
		},
		OnBackgroundFailure: func(ctx context.Context, e domain.UnitEvent) {
			logger.Debug("Background Failure", "unit", e.Unit, "tick", e.Tick, "err", e.Err)
		},
		OnOverrun: func(ctx context.Context, e domain.TickEvent) {
			logger.Debug("Tick Overrun", "tick", e.Tick, "duration", e.Duration)
		},
	}
}
