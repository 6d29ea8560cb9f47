// Package observability provides the Prometheus metrics extension and
// structured-logger setup. The MetricsExtension implements lifecycle
// hooks to record system-wide counters for run admissions, lead
// milestones, preview builds, email outcomes, and quota warnings.
//
// For per-lead tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
