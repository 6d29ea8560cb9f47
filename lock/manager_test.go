package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/isethius/Autowebsites-sub001/clock"
	"github.com/isethius/Autowebsites-sub001/lock"
)

// fakeStore implements the compare-and-swap-with-TTL contract in memory,
// against an injected clock so tests control expiry.
type fakeStore struct {
	mu     sync.Mutex
	clk    clock.Clock
	leases map[string]fakeLease

	acquireErr error
	renewErr   error
	releaseErr error
}

type fakeLease struct {
	token string
	until time.Time
}

func newFakeStore(clk clock.Clock) *fakeStore {
	return &fakeStore{clk: clk, leases: make(map[string]fakeLease)}
}

func (s *fakeStore) AcquireLock(_ context.Context, name, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquireErr != nil {
		return false, s.acquireErr
	}
	now := s.clk.Now()
	if cur, ok := s.leases[name]; ok && now.Before(cur.until) {
		return false, nil
	}
	s.leases[name] = fakeLease{token: token, until: now.Add(ttl)}
	return true, nil
}

func (s *fakeStore) RenewLock(_ context.Context, name, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renewErr != nil {
		return false, s.renewErr
	}
	cur, ok := s.leases[name]
	if !ok || cur.token != token {
		return false, nil
	}
	s.leases[name] = fakeLease{token: token, until: s.clk.Now().Add(ttl)}
	return true, nil
}

func (s *fakeStore) ReleaseLock(_ context.Context, name, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.releaseErr != nil {
		return s.releaseErr
	}
	if cur, ok := s.leases[name]; ok && cur.token == token {
		delete(s.leases, name)
	}
	return nil
}

func (s *fakeStore) holder(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.leases[name]
	return cur.token, ok
}

func TestTryAcquire_FreshName(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	m := lock.NewManager(newFakeStore(clk), lock.WithClock(clk))

	lease, err := m.TryAcquire(context.Background(), "cycle", 10*time.Minute)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if lease == nil {
		t.Fatal("expected a lease on a fresh name")
	}
	if lease.Name != "cycle" {
		t.Errorf("Name = %q, want cycle", lease.Name)
	}
	if lease.Token == "" {
		t.Error("expected a generated token")
	}
	want := clk.Now().Add(10 * time.Minute)
	if !lease.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", lease.ExpiresAt, want)
	}
}

func TestTryAcquire_HeldReturnsNilNil(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	store := newFakeStore(clk)
	m := lock.NewManager(store, lock.WithClock(clk))

	first, err := m.TryAcquire(context.Background(), "cycle", 10*time.Minute)
	if err != nil || first == nil {
		t.Fatalf("first acquire failed: lease=%v err=%v", first, err)
	}

	second, err := m.TryAcquire(context.Background(), "cycle", 10*time.Minute)
	if err != nil {
		t.Fatalf("second acquire should not error, got %v", err)
	}
	if second != nil {
		t.Error("second acquire before expiry should return nil lease")
	}
}

func TestTryAcquire_ReclaimAfterTTL(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	store := newFakeStore(clk)
	m := lock.NewManager(store, lock.WithClock(clk))

	first, err := m.TryAcquire(context.Background(), "cycle", 10*time.Minute)
	if err != nil || first == nil {
		t.Fatalf("first acquire failed: lease=%v err=%v", first, err)
	}

	// Simulate the holder crashing: no release, TTL just elapses.
	clk.Advance(11 * time.Minute)

	second, err := m.TryAcquire(context.Background(), "cycle", 10*time.Minute)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if second == nil {
		t.Fatal("expected reclaim to succeed after TTL")
	}
	if second.Token == first.Token {
		t.Error("reclaimed lease must carry a fresh token")
	}
}

func TestRelease_StaleTokenIsNoOp(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	store := newFakeStore(clk)
	m := lock.NewManager(store, lock.WithClock(clk))
	ctx := context.Background()

	first, _ := m.TryAcquire(ctx, "cycle", 10*time.Minute)
	clk.Advance(11 * time.Minute)
	second, _ := m.TryAcquire(ctx, "cycle", 10*time.Minute)
	if second == nil {
		t.Fatal("reclaim should succeed")
	}

	// The crashed first owner comes back and releases its stale lease.
	m.Release(ctx, first)

	token, held := store.holder("cycle")
	if !held {
		t.Fatal("stale release must not clear the new owner's lease")
	}
	if token != second.Token {
		t.Errorf("holder token = %q, want the new owner's %q", token, second.Token)
	}
}

func TestRelease_OwnTokenClears(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	store := newFakeStore(clk)
	m := lock.NewManager(store, lock.WithClock(clk))
	ctx := context.Background()

	lease, _ := m.TryAcquire(ctx, "cycle", 10*time.Minute)
	m.Release(ctx, lease)

	if _, held := store.holder("cycle"); held {
		t.Error("release with the owning token should clear the lease")
	}

	// The name is immediately reusable.
	next, err := m.TryAcquire(ctx, "cycle", 10*time.Minute)
	if err != nil || next == nil {
		t.Errorf("expected immediate re-acquire after release, lease=%v err=%v", next, err)
	}
}

func TestRelease_SwallowsTransportError(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	store := newFakeStore(clk)
	m := lock.NewManager(store, lock.WithClock(clk))
	ctx := context.Background()

	lease, _ := m.TryAcquire(ctx, "cycle", 10*time.Minute)
	store.releaseErr = errors.New("backend down")

	// Must not panic or surface the error.
	m.Release(ctx, lease)
	m.Release(ctx, nil)
}

func TestRenew_ExtendsOwnLease(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	store := newFakeStore(clk)
	m := lock.NewManager(store, lock.WithClock(clk))
	ctx := context.Background()

	lease, _ := m.TryAcquire(ctx, "cycle", 10*time.Minute)
	clk.Advance(5 * time.Minute)

	ok, err := m.Renew(ctx, lease, 10*time.Minute)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if !ok {
		t.Fatal("expected renew to succeed for the owner")
	}
	want := clk.Now().Add(10 * time.Minute)
	if !lease.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", lease.ExpiresAt, want)
	}

	// The renewed lease keeps excluding others past the original expiry.
	clk.Advance(7 * time.Minute)
	other, _ := m.TryAcquire(ctx, "cycle", 10*time.Minute)
	if other != nil {
		t.Error("renewed lease should still exclude other acquirers")
	}
}

func TestRenew_FailsAfterReclaim(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	store := newFakeStore(clk)
	m := lock.NewManager(store, lock.WithClock(clk))
	ctx := context.Background()

	first, _ := m.TryAcquire(ctx, "cycle", 10*time.Minute)
	clk.Advance(11 * time.Minute)
	if second, _ := m.TryAcquire(ctx, "cycle", 10*time.Minute); second == nil {
		t.Fatal("reclaim should succeed")
	}

	before := first.ExpiresAt
	ok, err := m.Renew(ctx, first, 10*time.Minute)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if ok {
		t.Error("renew must fail once another owner holds the name")
	}
	if !first.ExpiresAt.Equal(before) {
		t.Error("failed renew must not touch the lease expiry")
	}
}

func TestTryAcquire_StoreErrorWrapped(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	store := newFakeStore(clk)
	boom := errors.New("backend down")
	store.acquireErr = boom
	m := lock.NewManager(store, lock.WithClock(clk))

	lease, err := m.TryAcquire(context.Background(), "cycle", time.Minute)
	if lease != nil {
		t.Error("expected nil lease on store error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

func TestLease_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	lease := &lock.Lease{Name: "cycle", Token: "tok", ExpiresAt: now.Add(time.Minute)}

	if lease.Expired(now) {
		t.Error("lease should not be expired before ExpiresAt")
	}
	if !lease.Expired(now.Add(2 * time.Minute)) {
		t.Error("lease should be expired after ExpiresAt")
	}
}
