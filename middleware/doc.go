// Package middleware provides composable middleware for per-lead
// pipeline execution.
//
// A [Middleware] is a function that wraps the processing of one lead.
// Middleware are composed into a chain using [Chain] and applied around
// each lead the pipeline handles. They are applied right-to-left: the
// first middleware in the slice is the outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] — logs lead identity, duration, and outcome at each execution
//   - [Recover] — catches panics and converts them to errors
//   - [Timeout] — cancels the lead context after a configured duration
//   - [RunContext] — attaches the owning run's ID to the context
//   - [Tracing] — wraps execution in an OpenTelemetry span
//   - [Metrics] — records per-lead duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, t *middleware.Task, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., circuit breaker, rate limiting).
package middleware
