package bunstore

import (
	"context"
	"fmt"
	"time"
)

// AcquireLock claims name for token with the given TTL. It succeeds only
// when the name is unheld or its current lease has expired.
func (s *Store) AcquireLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()

	// Reclaim path: take over an expired lease. A single UPDATE, so two
	// daemons racing for the same name resolve inside the database.
	res, err := s.db.NewUpdate().
		TableExpr("autowebsites_locks").
		Set("token = ?", token).
		Set("expires_at = ?", now.Add(ttl)).
		Where("name = ?", name).
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("autowebsites/bun: acquire lock reclaim: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows > 0 {
		return true, nil
	}

	// Fresh path: insert a new lease. A duplicate key means someone holds
	// an unexpired lease.
	m := &lockModel{Name: name, Token: token, ExpiresAt: now.Add(ttl)}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("autowebsites/bun: acquire lock insert: %w", err)
	}
	return true, nil
}

// RenewLock extends the lease by ttl from now while token still holds name.
func (s *Store) RenewLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	res, err := s.db.NewUpdate().
		TableExpr("autowebsites_locks").
		Set("expires_at = ?", time.Now().UTC().Add(ttl)).
		Where("name = ?", name).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("autowebsites/bun: renew lock: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	return rows > 0, nil
}

// ReleaseLock clears name if it still holds token. A token mismatch is a
// silent no-op.
func (s *Store) ReleaseLock(ctx context.Context, name, token string) error {
	_, err := s.db.NewDelete().
		TableExpr("autowebsites_locks").
		Where("name = ?", name).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("autowebsites/bun: release lock: %w", err)
	}
	return nil
}
