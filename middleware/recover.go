package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *Task, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("lead handler panicked",
					slog.String("run_id", t.RunID.String()),
					slog.String("lead_id", t.Lead.ID.String()),
					slog.String("business", t.Lead.BusinessName),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic processing lead %s: %v", t.Lead.BusinessName, r)
			}
		}()
		return next(ctx)
	}
}
