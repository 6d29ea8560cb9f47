package middleware

import (
	"context"

	"github.com/isethius/Autowebsites-sub001/runctx"
)

// RunContext returns middleware that attaches the owning run's ID to the
// context. This ensures collaborators deep in the pipeline see the same
// run identity as the scheduler that started the run.
func RunContext() Middleware {
	return func(ctx context.Context, t *Task, next Handler) error {
		ctx = runctx.With(ctx, t.RunID)
		return next(ctx)
	}
}
