package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/isethius/Autowebsites-sub001/quota"
)

// counterTTL keeps a day's counters readable for a while after the day
// rolls over, then lets them vanish on their own.
const counterTTL = 48 * time.Hour

// TodayCount returns the counter value for kind on the given day.
// Missing counters read as zero.
func (s *Store) TodayCount(ctx context.Context, kind quota.Kind, day string) (int, error) {
	val, err := s.client.Get(ctx, quotaKey(string(kind), day)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("autowebsites/redis: read counter %s/%s: %w", kind, day, err)
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("autowebsites/redis: parse counter %s/%s: %w", kind, day, err)
	}
	return n, nil
}

// IncrCount atomically adds n to the counter for kind on the given day.
func (s *Store) IncrCount(ctx context.Context, kind quota.Kind, day string, n int) error {
	key := quotaKey(string(kind), day)

	pipe := s.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(n))
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("autowebsites/redis: incr counter %s/%s: %w", kind, day, err)
	}
	return nil
}
