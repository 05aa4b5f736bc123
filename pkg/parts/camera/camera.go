// Package camera provides a simulated threaded camera.
//
// The simulator renders a moving gradient with a bright stripe whose
// horizontal position follows a sine wave, so that frames vary over time and
// a pilot has something to correlate with.
package camera

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/unit"
)

// Defaults match a small 160x120 frame.
const (
	DefaultWidth  = 160
	DefaultHeight = 120
	DefaultFPS    = 20
)

// Simulated is a threaded part producing cam/image_array.
type Simulated struct {
	*unit.Loop

	width, height, channels int
	fps                     float64
	logger                  *slog.Logger

	seq uint64
}

// Option configures the simulated camera.
type Option func(*Simulated)

// WithResolution sets the frame size.
func WithResolution(width, height int) Option {
	return func(c *Simulated) {
		c.width, c.height = width, height
	}
}

// WithFPS sets the capture rate. Zero captures as fast as possible.
func WithFPS(fps float64) Option {
	return func(c *Simulated) {
		c.fps = fps
	}
}

// WithGrayscale produces single-channel frames.
func WithGrayscale() Option {
	return func(c *Simulated) {
		c.channels = 1
	}
}

// WithLogger sets the logger used by the capture loop.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Simulated) {
		c.logger = logger
	}
}

// NewSimulated creates a stopped camera. Until the first capture completes it
// serves an unset frame.
func NewSimulated(opts ...Option) *Simulated {
	c := &Simulated{
		width:    DefaultWidth,
		height:   DefaultHeight,
		channels: 3,
		fps:      DefaultFPS,
	}
	for _, opt := range opts {
		opt(c)
	}

	loopOpts := []unit.LoopOption{unit.WithName("camera"), unit.WithInitial(domain.None())}
	if c.fps > 0 {
		loopOpts = append(loopOpts, unit.WithInterval(time.Duration(float64(time.Second)/c.fps)))
	}
	if c.logger != nil {
		loopOpts = append(loopOpts, unit.WithLoopLogger(c.logger))
	}
	c.Loop = unit.NewLoop(c.capture, loopOpts...)
	return c
}

// Name implements the default part naming.
func (c *Simulated) Name() string { return "camera" }

// Arity reports no inputs and one output.
func (c *Simulated) Arity() (int, int) { return 0, 1 }

func (c *Simulated) capture(ctx context.Context, _ []domain.Value) ([]domain.Value, error) {
	c.seq++
	return []domain.Value{domain.Image(Render(c.width, c.height, c.channels, c.seq))}, nil
}

// Render draws synthetic frame number seq.
func Render(width, height, channels int, seq uint64) *domain.Frame {
	f := domain.NewFrame(width, height, channels)
	f.Seq = seq
	stripe := int(float64(width-1) * (0.5 + 0.4*math.Sin(float64(seq)/15)))
	for y := 0; y < height; y++ {
		base := byte(y * 255 / max(height-1, 1) / 2)
		for x := 0; x < width; x++ {
			v := base
			if d := x - stripe; d >= -2 && d <= 2 {
				v = 255
			}
			i := (y*width + x) * channels
			for ch := 0; ch < channels; ch++ {
				f.Pix[i+ch] = v
			}
		}
	}
	return f
}
