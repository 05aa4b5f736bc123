package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/vehicle/pkg/domain"
)

// Metrics holds the loop's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	TicksTotal         prometheus.Counter
	TickDuration       prometheus.Histogram
	Overruns           prometheus.Counter
	LoopState          prometheus.Gauge
	UnitRuns           *prometheus.CounterVec
	UnitSkips          *prometheus.CounterVec
	UnitErrors         *prometheus.CounterVec
	UnitDuration       *prometheus.HistogramVec
	BackgroundFailures *prometheus.CounterVec
	RecordsWritten     prometheus.Counter
}

// MetricsOption configures Metrics.
type MetricsOption func(*metricsConfig)

type metricsConfig struct {
	namespace      string
	processMetrics bool
}

// WithNamespace prefixes every metric name (default "vehicle").
func WithNamespace(ns string) MetricsOption {
	return func(c *metricsConfig) {
		c.namespace = ns
	}
}

// WithProcessMetrics also registers the Go runtime and process collectors.
func WithProcessMetrics() MetricsOption {
	return func(c *metricsConfig) {
		c.processMetrics = true
	}
}

// tickBuckets covers 1ms to ~1s, the useful range for loops between 1 and 100 Hz.
var tickBuckets = prometheus.ExponentialBuckets(0.001, 2, 11)

// NewMetrics creates collectors on a fresh registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := metricsConfig{namespace: "vehicle"}
	for _, opt := range opts {
		opt(&cfg)
	}

	reg := prometheus.NewRegistry()
	if cfg.processMetrics {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	f := promauto.With(reg)
	ns := cfg.namespace

	return &Metrics{
		registry: reg,
		TicksTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "ticks_total",
			Help: "Total number of completed loop ticks",
		}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "tick_duration_seconds",
			Help:    "Time spent running all units in a tick",
			Buckets: tickBuckets,
		}),
		Overruns: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "tick_overruns_total",
			Help: "Ticks that took longer than the loop period",
		}),
		LoopState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "loop_state",
			Help: "Lifecycle state (0 idle, 1 running, 2 stopping, 3 stopped)",
		}),
		UnitRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "unit_runs_total",
			Help: "Unit invocations per unit",
		}, []string{"unit"}),
		UnitSkips: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "unit_skips_total",
			Help: "Ticks where a unit's run condition was false",
		}, []string{"unit"}),
		UnitErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "unit_errors_total",
			Help: "Unit invocation failures",
		}, []string{"unit"}),
		UnitDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "unit_duration_seconds",
			Help:    "Time spent in a unit per tick",
			Buckets: tickBuckets,
		}, []string{"unit"}),
		BackgroundFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "background_failures_total",
			Help: "Threaded units whose background loop terminated with an error",
		}, []string{"unit"}),
		RecordsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "records_written_total",
			Help: "Records appended to the tub",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e domain.StateEvent) {
			m.LoopState.Set(float64(e.To))
		},
		OnTick: func(_ context.Context, e domain.TickEvent) {
			if e.Err == nil {
				m.TicksTotal.Inc()
			}
			m.TickDuration.Observe(e.Duration.Seconds())
		},
		OnOverrun: func(context.Context, domain.TickEvent) {
			m.Overruns.Inc()
		},
		OnUnitRun: func(_ context.Context, e domain.UnitEvent) {
			m.UnitRuns.WithLabelValues(e.Unit).Inc()
			m.UnitDuration.WithLabelValues(e.Unit).Observe(e.Duration.Seconds())
		},
		OnUnitSkip: func(_ context.Context, e domain.UnitEvent) {
			m.UnitSkips.WithLabelValues(e.Unit).Inc()
		},
		OnUnitError: func(_ context.Context, e domain.UnitEvent) {
			m.UnitErrors.WithLabelValues(e.Unit).Inc()
		},
		OnBackgroundFailure: func(_ context.Context, e domain.UnitEvent) {
			m.BackgroundFailures.WithLabelValues(e.Unit).Inc()
		},
	}
}
