// Package web provides a minimal HTTP drive controller.
//
// Clients POST the desired controls to /drive as JSON and can fetch the
// latest camera frame from /frame.png. The controller publishes user/angle,
// user/throttle, user/mode and recording.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/unit"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8887"

// Chaos timing: in user mode a random steering angle is held for
// ChaosDuration at the start of every ChaosPeriod.
const (
	ChaosPeriod   = 2 * time.Second
	ChaosDuration = 300 * time.Millisecond
)

// Outputs are the keys the controller writes, in order.
var Outputs = []string{domain.KeyUserAngle, domain.KeyUserThrottle, domain.KeyUserMode, domain.KeyRecording}

// Controls is the state a client sets.
type Controls struct {
	Angle     float64 `json:"angle"`
	Throttle  float64 `json:"throttle"`
	Mode      string  `json:"drive_mode"`
	Recording bool    `json:"recording"`
}

// Controller is a threaded part serving the drive API.
type Controller struct {
	*unit.Loop

	addr     string
	listener net.Listener
	chaos    bool
	rng      *rand.Rand
	now      func() time.Time
	logger   *slog.Logger

	controls atomic.Pointer[Controls]
	frame    atomic.Pointer[domain.Frame]

	srv      *http.Server
	serveErr atomic.Pointer[error]
	served   sync.WaitGroup

	// owned by the loop goroutine
	epoch      time.Time
	chaosAngle *float64
}

// Option configures the controller.
type Option func(*Controller)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Controller) {
		c.addr = addr
	}
}

// WithListener serves on an existing listener instead of binding addr.
func WithListener(l net.Listener) Option {
	return func(c *Controller) {
		c.listener = l
	}
}

// WithChaos injects periodic random steering while in user mode.
func WithChaos(enabled bool) Option {
	return func(c *Controller) {
		c.chaos = enabled
	}
}

// WithRand sets the random source used for chaos steering.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) {
		c.rng = r
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a stopped controller in user mode with zero controls.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		addr:   DefaultAddr,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.controls.Store(&Controls{Mode: domain.ModeUser})
	c.Loop = unit.NewLoop(c.step,
		unit.WithName("web"),
		unit.WithInterval(20*time.Millisecond),
		unit.WithLoopLogger(c.logger),
		unit.WithInitial(c.publish(Controls{Mode: domain.ModeUser})...),
	)
	return c
}

// Name implements the default part naming.
func (c *Controller) Name() string { return "web" }

// Arity reports one input (the camera frame) and four outputs.
func (c *Controller) Arity() (int, int) { return 1, len(Outputs) }

// Start binds the listener, serves the API and starts publishing controls.
func (c *Controller) Start(ctx context.Context, initial []domain.Value) error {
	l := c.listener
	if l == nil {
		var err error
		if l, err = net.Listen("tcp", c.addr); err != nil {
			return fmt.Errorf("web controller: %w", err)
		}
	}
	c.srv = &http.Server{Handler: c.Handler(), ReadHeaderTimeout: 5 * time.Second}
	c.epoch = c.now()

	c.served.Add(1)
	go func() {
		defer c.served.Done()
		if err := c.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.serveErr.Store(&err)
			c.logger.Error("web controller stopped serving", "err", err)
		}
	}()
	c.logger.Info("web controller listening", "addr", l.Addr().String(), "chaos", c.chaos)

	if err := c.Loop.Start(ctx, initial); err != nil {
		_ = c.srv.Close()
		c.served.Wait()
		return err
	}
	return nil
}

// Update receives the latest camera frame.
func (c *Controller) Update(args []domain.Value) {
	if len(args) > 0 {
		if f, ok := args[0].Frame(); ok {
			c.frame.Store(f)
		}
	}
	c.Loop.Update(args)
}

// Stop stops publishing and shuts the server down.
func (c *Controller) Stop() {
	c.Loop.Stop()
	if c.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := c.srv.Shutdown(ctx); err != nil {
			_ = c.srv.Close()
		}
	}
}

// Wait joins the publishing loop and the server.
func (c *Controller) Wait() error {
	err := c.Loop.Wait()
	c.served.Wait()
	if p := c.serveErr.Load(); p != nil {
		err = errors.Join(err, *p)
	}
	return err
}

// Failure reports a dead server or publishing loop.
func (c *Controller) Failure() error {
	if p := c.serveErr.Load(); p != nil {
		return *p
	}
	return c.Loop.Failure()
}

// Controls returns the controls last set by a client.
func (c *Controller) Controls() Controls { return *c.controls.Load() }

// Set replaces the controls. Unknown modes are rejected.
func (c *Controller) Set(ctl Controls) error {
	switch ctl.Mode {
	case domain.ModeUser, domain.ModeLocalAngle, domain.ModeLocal:
	case "":
		ctl.Mode = domain.ModeUser
	default:
		return fmt.Errorf("unknown drive mode %q", ctl.Mode)
	}
	ctl.Angle = min(max(ctl.Angle, -1), 1)
	ctl.Throttle = min(max(ctl.Throttle, -1), 1)
	c.controls.Store(&ctl)
	return nil
}

// Handler returns the HTTP API:
//
//	GET  /state      current controls
//	POST /drive      set controls
//	GET  /frame.png  latest camera frame
func (c *Controller) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.Controls())
	})
	r.Post("/drive", func(w http.ResponseWriter, r *http.Request) {
		ctl := c.Controls()
		if err := json.NewDecoder(r.Body).Decode(&ctl); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := c.Set(ctl); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, c.Controls())
	})
	r.Get("/frame.png", func(w http.ResponseWriter, r *http.Request) {
		f := c.frame.Load()
		if f == nil {
			http.Error(w, "no frame yet", http.StatusNotFound)
			return
		}
		data, err := f.EncodePNG()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	})
	return r
}

func (c *Controller) step(context.Context, []domain.Value) ([]domain.Value, error) {
	ctl := c.Controls()
	if c.chaos && ctl.Mode == domain.ModeUser {
		ctl.Angle = c.chaosSteer(ctl.Angle)
	}
	return c.publish(ctl), nil
}

// chaosSteer overrides angle during the chaos window of each period.
func (c *Controller) chaosSteer(angle float64) float64 {
	phase := c.now().Sub(c.epoch) % ChaosPeriod
	if phase >= ChaosDuration {
		c.chaosAngle = nil
		return angle
	}
	if c.chaosAngle == nil {
		a := c.rng.Float64()*2 - 1
		c.chaosAngle = &a
	}
	return *c.chaosAngle
}

func (c *Controller) publish(ctl Controls) []domain.Value {
	return []domain.Value{
		domain.Number(ctl.Angle),
		domain.Number(ctl.Throttle),
		domain.Text(ctl.Mode),
		domain.Bool(ctl.Recording),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
