package quota

import "context"

// Store defines the persistence contract for daily counters.
type Store interface {
	// TodayCount returns the counter value for kind on the given day
	// (DayKey format). Missing counters read as zero.
	TodayCount(ctx context.Context, kind Kind, day string) (int, error)

	// IncrCount atomically adds n to the counter for kind on the given
	// day, creating it at n if missing.
	IncrCount(ctx context.Context, kind Kind, day string, n int) error
}
