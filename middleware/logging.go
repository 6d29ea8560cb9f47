package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs the start and outcome of each
// per-lead pipeline pass.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *Task, next Handler) error {
		logger.Info("lead processing started",
			slog.String("run_id", t.RunID.String()),
			slog.String("lead_id", t.Lead.ID.String()),
			slog.String("business", t.Lead.BusinessName),
			slog.String("industry", t.Lead.Industry),
			slog.String("location", t.Lead.Location),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("lead processing failed",
				slog.String("run_id", t.RunID.String()),
				slog.String("lead_id", t.Lead.ID.String()),
				slog.String("business", t.Lead.BusinessName),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("lead processed",
				slog.String("run_id", t.RunID.String()),
				slog.String("lead_id", t.Lead.ID.String()),
				slog.String("business", t.Lead.BusinessName),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
