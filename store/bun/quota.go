package bunstore

import (
	"context"
	"fmt"

	"github.com/isethius/Autowebsites-sub001/quota"
)

// TodayCount returns the counter value for kind on the given day.
// Missing counters read as zero.
func (s *Store) TodayCount(ctx context.Context, kind quota.Kind, day string) (int, error) {
	m := new(quotaCounterModel)
	err := s.db.NewSelect().Model(m).
		Where("kind = ?", string(kind)).
		Where("day = ?", day).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("autowebsites/bun: read counter %s/%s: %w", kind, day, err)
	}
	return m.Count, nil
}

// IncrCount atomically adds n to the counter for kind on the given day,
// creating it at n if missing. The arithmetic happens inside the database
// so concurrent increments cannot lose updates.
func (s *Store) IncrCount(ctx context.Context, kind quota.Kind, day string, n int) error {
	m := &quotaCounterModel{Kind: string(kind), Day: day, Count: n}
	_, err := s.db.NewInsert().Model(m).
		On("CONFLICT (kind, day) DO UPDATE").
		Set("count = count + EXCLUDED.count").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("autowebsites/bun: incr counter %s/%s: %w", kind, day, err)
	}
	return nil
}
