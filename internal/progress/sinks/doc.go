// Package sinks implements concrete progress consumers: structured logging,
// Prometheus collectors, the result repository, and a publisher for
// company_done notifications. Each satisfies progress.Sink.
package sinks
