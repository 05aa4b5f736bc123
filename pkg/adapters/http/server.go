package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/vehicle/pkg/domain"
)

// Status reports the lifecycle position of the loop being served.
type Status interface {
	State() domain.LoopState
}

// Option configures the handler.
type Option func(*config)

type config struct {
	metrics http.Handler
	runID   string
	started time.Time
}

// WithMetrics mounts a metrics handler (usually promhttp) at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(c *config) {
		c.metrics = h
	}
}

// WithRunID reports an identifier for the current run in health responses.
func WithRunID(id string) Option {
	return func(c *config) {
		c.runID = id
	}
}

type healthResponse struct {
	State  string `json:"state"`
	RunID  string `json:"run_id,omitempty"`
	Uptime string `json:"uptime"`
}

// NewHandler creates the operational HTTP handler:
//
//	GET /healthz  liveness, always 200 with the loop state
//	GET /readyz   200 while the loop is running, 503 otherwise
//	GET /metrics  when WithMetrics is given
func NewHandler(status Status, opts ...Option) http.Handler {
	cfg := &config{started: time.Now()}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cfg.health(status))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		code := http.StatusOK
		if status.State() != domain.StateRunning {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, cfg.health(status))
	})
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}
	return r
}

func (c *config) health(status Status) healthResponse {
	return healthResponse{
		State:  status.State().String(),
		RunID:  c.runID,
		Uptime: time.Since(c.started).Round(time.Second).String(),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
