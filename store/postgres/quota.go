package postgres

import (
	"context"
	"fmt"

	"github.com/isethius/Autowebsites-sub001/quota"
)

// TodayCount returns the counter value for kind on the given day.
// Missing counters read as zero.
func (s *Store) TodayCount(ctx context.Context, kind quota.Kind, day string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count FROM autowebsites_quota_counters WHERE kind = $1 AND day = $2`,
		string(kind), day,
	).Scan(&count)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("autowebsites/postgres: read counter %s/%s: %w", kind, day, err)
	}
	return count, nil
}

// IncrCount atomically adds n to the counter for kind on the given day,
// creating it at n if missing.
func (s *Store) IncrCount(ctx context.Context, kind quota.Kind, day string, n int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO autowebsites_quota_counters (kind, day, count)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, day) DO UPDATE
		SET count = autowebsites_quota_counters.count + EXCLUDED.count`,
		string(kind), day, n,
	)
	if err != nil {
		return fmt.Errorf("autowebsites/postgres: increment counter %s/%s: %w", kind, day, err)
	}
	return nil
}
