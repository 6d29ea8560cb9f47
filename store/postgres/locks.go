package postgres

import (
	"context"
	"fmt"
	"time"
)

// AcquireLock claims name for token if the lock is unheld or expired.
// One upsert, so two instances racing for the same name resolve inside
// the database.
func (s *Store) AcquireLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO autowebsites_locks (name, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
		WHERE autowebsites_locks.expires_at <= $4`,
		name, token, now.Add(ttl), now,
	)
	if err != nil {
		return false, fmt.Errorf("autowebsites/postgres: acquire lock %s: %w", name, err)
	}
	return tag.RowsAffected() > 0, nil
}

// RenewLock extends the lease by ttl from now while token still holds it.
func (s *Store) RenewLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE autowebsites_locks
		SET expires_at = $3
		WHERE name = $1 AND token = $2`,
		name, token, time.Now().UTC().Add(ttl),
	)
	if err != nil {
		return false, fmt.Errorf("autowebsites/postgres: renew lock %s: %w", name, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseLock clears name if it still holds token. Mismatches are a
// no-op.
func (s *Store) ReleaseLock(ctx context.Context, name, token string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM autowebsites_locks WHERE name = $1 AND token = $2`,
		name, token,
	)
	if err != nil {
		return fmt.Errorf("autowebsites/postgres: release lock %s: %w", name, err)
	}
	return nil
}
