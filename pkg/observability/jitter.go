package observability

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aretw0/vehicle/pkg/domain"
)

// DefaultJitterWindow is the number of tick intervals kept for statistics.
const DefaultJitterWindow = 4096

// Jitter tracks the spacing between tick starts over a sliding window.
type Jitter struct {
	mu        sync.Mutex
	window    int
	intervals []float64 // seconds, ring buffer
	next      int
	last      time.Time
	count     uint64
}

// NewJitter creates a tracker keeping the last window intervals.
// A non-positive window uses DefaultJitterWindow.
func NewJitter(window int) *Jitter {
	if window <= 0 {
		window = DefaultJitterWindow
	}
	return &Jitter{window: window, intervals: make([]float64, 0, window)}
}

// Observe records a tick starting at t.
func (j *Jitter) Observe(t time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.count++
	if j.last.IsZero() {
		j.last = t
		return
	}
	d := t.Sub(j.last).Seconds()
	j.last = t

	if len(j.intervals) < j.window {
		j.intervals = append(j.intervals, d)
		return
	}
	j.intervals[j.next] = d
	j.next = (j.next + 1) % j.window
}

// Hooks returns lifecycle hooks feeding the tracker from tick events.
func (j *Jitter) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTick: func(_ context.Context, e domain.TickEvent) {
			j.Observe(e.Start)
		},
	}
}

// JitterReport summarizes tick spacing.
type JitterReport struct {
	Ticks  uint64
	Target time.Duration
	Mean   time.Duration
	StdDev time.Duration
	P50    time.Duration
	P99    time.Duration
	Max    time.Duration
}

// String renders the report on one line for logs and the CLI.
func (r JitterReport) String() string {
	return fmt.Sprintf("ticks=%d target=%s mean=%s stddev=%s p50=%s p99=%s max=%s",
		r.Ticks, r.Target, r.Mean, r.StdDev, r.P50, r.P99, r.Max)
}

// Report computes statistics over the current window against the target period.
func (j *Jitter) Report(target time.Duration) JitterReport {
	j.mu.Lock()
	xs := slices.Clone(j.intervals)
	ticks := j.count
	j.mu.Unlock()

	r := JitterReport{Ticks: ticks, Target: target}
	if len(xs) == 0 {
		return r
	}
	slices.Sort(xs)

	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		std = 0
	}
	r.Mean = seconds(mean)
	r.StdDev = seconds(std)
	r.P50 = seconds(stat.Quantile(0.5, stat.Empirical, xs, nil))
	r.P99 = seconds(stat.Quantile(0.99, stat.Empirical, xs, nil))
	r.Max = seconds(xs[len(xs)-1])
	return r
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
