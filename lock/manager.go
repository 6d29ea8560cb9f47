package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/isethius/Autowebsites-sub001/clock"
)

// Manager acquires, renews, and releases leases against a Store. It
// generates a fresh owner token per acquisition, so two Managers (or two
// calls) can never be confused for one another.
type Manager struct {
	store  Store
	clock  clock.Clock
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager backed by store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		clock:  clock.System(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TryAcquire attempts to claim name for ttl. It returns (nil, nil) when
// the lock is held by an unexpired owner — callers treat this as "skip,
// don't fail". An error means the store itself misbehaved.
func (m *Manager) TryAcquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()

	ok, err := m.store.AcquireLock(ctx, name, token, ttl)
	if err != nil {
		return nil, fmt.Errorf("lock: acquire %q: %w", name, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{
		Name:      name,
		Token:     token,
		ExpiresAt: m.clock.Now().Add(ttl),
	}, nil
}

// Release gives up the lease. Best-effort by contract: a token mismatch
// is already a no-op at the store, and transport failures are logged and
// swallowed — a run's outcome never depends on a successful release.
func (m *Manager) Release(ctx context.Context, lease *Lease) {
	if lease == nil {
		return
	}
	if err := m.store.ReleaseLock(ctx, lease.Name, lease.Token); err != nil {
		m.logger.Warn("lock release failed",
			slog.String("name", lease.Name),
			"error", err)
	}
}

// Renew extends the lease by ttl from now. It reports false when the
// lease was reclaimed by another owner, which the holder must treat as
// lost mutual exclusion.
func (m *Manager) Renew(ctx context.Context, lease *Lease, ttl time.Duration) (bool, error) {
	if lease == nil {
		return false, nil
	}
	ok, err := m.store.RenewLock(ctx, lease.Name, lease.Token, ttl)
	if err != nil {
		return false, fmt.Errorf("lock: renew %q: %w", lease.Name, err)
	}
	if ok {
		lease.ExpiresAt = m.clock.Now().Add(ttl)
	}
	return ok, nil
}
