// Package progress defines the job event model and the non-blocking hub that
// fans events out to pluggable sinks such as structured logs, Prometheus
// collectors, the result store, and Pub/Sub. The job event log stays the
// source of truth for callers; sinks only observe copies.
package progress
