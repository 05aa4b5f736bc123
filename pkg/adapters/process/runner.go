package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// EnvPrefix prefixes every argument passed to a child process.
const EnvPrefix = "VEHICLE_ARG_"

// Runner executes external commands. Arguments are passed as environment
// variables (VEHICLE_ARG_<NAME>) rather than flags so that values can never
// be interpreted as options.
type Runner struct {
	baseDir string
	logger  *slog.Logger
	stderr  io.Writer
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithStderr mirrors the child's stderr (progress output) to w.
func WithStderr(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.stderr = w
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is the outcome of a successful run.
type Result struct {
	// Output is the decoded JSON stdout, or the trimmed text if it is not JSON.
	Output   any
	Stderr   string
	Duration time.Duration
}

// Run executes cfg with args and waits for it. A non-zero exit is an error
// carrying the child's stderr.
func (r *Runner) Run(ctx context.Context, cfg Config, args map[string]any) (Result, error) {
	if !cfg.Enabled() {
		return Result{}, fmt.Errorf("process %q: no command configured", cfg.Name)
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = r.baseDir
	cmd.Env = append(cmd.Environ(), environ(cfg.Environment, args)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if r.stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, r.stderr)
	}

	r.logger.Info("running external process", "name", cfg.Name, "command", cfg.Command, "args", cfg.Args)
	start := time.Now()
	err := cmd.Run()
	res := Result{Stderr: stderr.String(), Duration: time.Since(start)}
	if err != nil {
		return res, fmt.Errorf("process %q failed: %w: %s", cfg.Name, err, strings.TrimSpace(res.Stderr))
	}

	res.Output = decodeOutput(stdout.String())
	r.logger.Info("external process finished", "name", cfg.Name, "duration", res.Duration)
	return res, nil
}

func environ(fixed map[string]string, args map[string]any) []string {
	env := make([]string, 0, len(fixed)+len(args))
	for k, v := range fixed {
		env = append(env, k+"="+v)
	}
	for k, v := range args {
		// Values serialization strategy:
		// - Primitives (string, number, bool): fmt.Sprint
		// - Complex (Map, Slice): json.Marshal
		var val string
		switch v.(type) {
		case string, int, int64, float64, bool:
			val = fmt.Sprint(v)
		case nil:
			val = ""
		default:
			if b, err := json.Marshal(v); err == nil {
				val = string(b)
			} else {
				val = fmt.Sprint(v)
			}
		}
		env = append(env, EnvPrefix+strings.ToUpper(k)+"="+val)
	}
	return env
}

func decodeOutput(out string) any {
	trimmed := strings.TrimSpace(out)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return trimmed
}
