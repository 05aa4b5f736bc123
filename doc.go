/*
Package vehicle is a fixed-rate control loop for small autonomous cars.

A Vehicle coordinates independent parts (sensors, controllers, pilots,
actuators, recorders) that exchange values through a shared key-value Bus.
Every tick the parts run in the order they were added: each one reads its
declared input keys and writes its results to its declared output keys.

# Parts

A part is either synchronous (it implements unit.Synchronous and runs inline
on every tick) or threaded (it implements unit.Threaded and computes on its own
goroutine, the loop only handing it fresh inputs and collecting its latest
result). unit.Loop turns any step function into a threaded part.

Parts can be gated by a run condition on a Bus key. A skipped part keeps its
previous outputs on the Bus.

# Usage

	v := vehicle.New(vehicle.WithLogger(logger))

	v.MustAdd(clock.New(), vehicle.Outputs(domain.KeyTimestamp))
	v.MustAdd(cam, vehicle.Outputs(domain.KeyImage), vehicle.Threaded())
	v.MustAdd(pilot, vehicle.Inputs(domain.KeyImage),
		vehicle.Outputs(domain.KeyPilotAngle, domain.KeyPilotThrottle),
		vehicle.RunWhen(domain.KeyRunPilot))

	ticks, err := v.Start(ctx, 20, 0)

Start blocks until the tick budget is spent, ctx is cancelled or a part
fails. Threaded parts are always stopped and joined before it returns.
*/
package vehicle
