package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for pipeline metrics.
const meterName = "github.com/isethius/Autowebsites-sub001"

// Metrics returns middleware that records per-lead execution metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - autowebsites.lead.duration (Float64Histogram): processing time in
//     seconds, with attributes: industry, location, status ("ok" or "error")
//   - autowebsites.lead.processed (Int64Counter): total leads processed,
//     with attributes: industry, location, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"autowebsites.lead.duration",
		metric.WithDescription("Duration of per-lead pipeline processing in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	processed, pErr := meter.Int64Counter(
		"autowebsites.lead.processed",
		metric.WithDescription("Total number of leads processed"),
		metric.WithUnit("{lead}"),
	)
	_ = pErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, t *Task, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("industry", t.Lead.Industry),
			attribute.String("location", t.Lead.Location),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		processed.Add(ctx, 1, attrs)

		return err
	}
}
