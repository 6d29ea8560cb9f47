package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Renew and release must compare the stored token and act in one step.
// A GET followed by EXPIRE or DEL could touch a lease the name no longer
// holds, so both run as scripts.
var (
	renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

	releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)
)

// AcquireLock claims name for token using SET NX with a server-side TTL.
// Expiry is native: Redis drops the key when the lease lapses, so an
// expired lock looks exactly like an unheld one.
func (s *Store) AcquireLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("autowebsites/redis: acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// RenewLock extends the lease by ttl from now while token still holds name.
func (s *Store) RenewLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	res, err := renewScript.Run(ctx, s.client, []string{lockKey(name)}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("autowebsites/redis: renew lock %s: %w", name, err)
	}
	return res > 0, nil
}

// ReleaseLock clears name if it still holds token. A mismatch is a
// silent no-op.
func (s *Store) ReleaseLock(ctx context.Context, name, token string) error {
	if err := releaseScript.Run(ctx, s.client, []string{lockKey(name)}, token).Err(); err != nil {
		return fmt.Errorf("autowebsites/redis: release lock %s: %w", name, err)
	}
	return nil
}
