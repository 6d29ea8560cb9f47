package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for pipeline tracing.
const tracerName = "github.com/isethius/Autowebsites-sub001"

// Tracing returns middleware that wraps per-lead execution in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through
// with zero overhead.
//
// Span attributes include: autowebsites.run.id, autowebsites.lead.id,
// autowebsites.lead.business, autowebsites.lead.industry,
// autowebsites.lead.location, autowebsites.lead.website_score.
// On error, the span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, t *Task, next Handler) error {
		ctx, span := tracer.Start(ctx, "autowebsites.lead.process",
			trace.WithAttributes(
				attribute.String("autowebsites.run.id", t.RunID.String()),
				attribute.String("autowebsites.lead.id", t.Lead.ID.String()),
				attribute.String("autowebsites.lead.business", t.Lead.BusinessName),
				attribute.String("autowebsites.lead.industry", t.Lead.Industry),
				attribute.String("autowebsites.lead.location", t.Lead.Location),
				attribute.Int("autowebsites.lead.website_score", t.Lead.WebsiteScore),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
