package lock

import (
	"context"
	"time"
)

// Store defines the persistence contract for distributed locks. Every
// operation must be atomic with respect to concurrent callers on the
// same name.
type Store interface {
	// AcquireLock claims name for token with the given TTL. It succeeds
	// (true, nil) only when the name is unheld or its current lease has
	// expired. A held, unexpired name returns (false, nil) — not an
	// error.
	AcquireLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error)

	// RenewLock extends the lease by ttl from now, succeeding only while
	// the store still holds token for name. A reclaimed or missing lock
	// returns (false, nil).
	RenewLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error)

	// ReleaseLock clears name if it still holds token. A token mismatch
	// is a silent no-op: the lease already belongs to someone else and
	// must not be disturbed. Only transport failures return an error.
	ReleaseLock(ctx context.Context, name, token string) error
}
