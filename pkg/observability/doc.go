/*
Package observability provides monitoring for the control loop.

Metrics exposes Prometheus collectors on a private registry and translates
lifecycle hooks into counter and histogram updates. Jitter records tick start
times and summarizes how far the loop drifted from its target period.
*/
package observability
