package backoff

import (
	"context"
	"time"
)

// Policy bounds the retries of a single collaborator call: how many
// total tries, and how long to wait between them.
type Policy struct {
	// Attempts is the total number of tries including the first. Values
	// below 1 are treated as 1 (no retry).
	Attempts int

	// Strategy supplies the inter-try delay. Nil means DefaultStrategy.
	Strategy Strategy
}

// Do runs fn until it succeeds, the attempt budget is spent, or ctx is
// cancelled. The wait between tries follows the policy's strategy and is
// cut short by ctx. Do returns nil on success, ctx.Err() when cancelled
// mid-wait, and otherwise the error from the final try.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	strategy := p.Strategy
	if strategy == nil {
		strategy = DefaultStrategy()
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if werr := wait(ctx, strategy.Delay(attempt)); werr != nil {
			return werr
		}
	}
	return err
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
