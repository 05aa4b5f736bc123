/*
Package runner is the process-level lifecycle controller for a Vehicle.

It turns SIGINT and SIGTERM into a cooperative stop, optionally serves health
and Prometheus endpoints while the loop runs, and reports tick jitter once the
loop has shut down.

# Usage

	metrics := observability.NewMetrics()
	jitter := observability.NewJitter(0)
	v := vehicle.New(
		vehicle.WithLifecycleHooks(metrics.Hooks()),
		vehicle.WithLifecycleHooks(jitter.Hooks()),
	)
	// ... add parts ...

	r := runner.NewRunner(
		runner.WithMetrics(metrics),
		runner.WithJitter(jitter),
		runner.WithAddr(":9102"),
	)
	res, err := r.Run(ctx, v, 20, 0)
*/
package runner
