/*
Package domain contains the core types of the vehicle loop.

It is free of I/O and concurrency: everything here is plain data shared by the
scheduler, the bus and the pluggable parts.

# Key Entities

  - Value: tagged union of the signal kinds carried on the Bus (number, text,
    bool, buffer, frame).
  - Descriptor: how a unit is wired (inputs, outputs, threaded, condition).
  - Condition: tagged predicate gating a unit on a Bus value.
  - LoopState and LifecycleHooks: scheduler lifecycle and observability.
  - RegistrationError, InvocationError, BackgroundFailure: the error taxonomy.
*/
package domain
