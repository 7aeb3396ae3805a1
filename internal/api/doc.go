// Package api hosts the HTTP server for the crawler service. Notable routes:
//   - POST /upload accepts a company list and starts a run.
//   - GET /progress streams the run's events as server-sent events; GET
//     /events is the polling variant.
//   - GET /status, /results and /download report on the current run.
//   - GET /api/runs and /api/runs/{job_id}/results serve run history from
//     the optional result repository.
//   - GET /healthz, /readyz and /metrics for probes and Prometheus.
package api
