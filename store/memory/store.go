package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/cluster"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/lock"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ run.Store     = (*Store)(nil)
	_ quota.Store   = (*Store)(nil)
	_ lock.Store    = (*Store)(nil)
	_ cluster.Store = (*Store)(nil)
)

// lease is the stored state of one named lock.
type lease struct {
	token     string
	expiresAt time.Time
}

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	runs      map[string]*run.Run
	counters  map[string]int // key: "kind|day"
	locks     map[string]lease
	instances map[string]*cluster.Instance
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		runs:      make(map[string]*run.Run),
		counters:  make(map[string]int),
		locks:     make(map[string]lease),
		instances: make(map[string]*cluster.Instance),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Run Store
// ──────────────────────────────────────────────────

// CreateRun persists a new run.
func (m *Store) CreateRun(_ context.Context, r *run.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := r.ID.String()
	if _, exists := m.runs[key]; exists {
		return autowebsites.ErrRunExists
	}
	// Runs carry maps and slices; deep-copy both ways so callers can
	// mutate without racing with the store.
	m.runs[key] = r.Clone()
	return nil
}

// GetRun retrieves a run by ID.
func (m *Store) GetRun(_ context.Context, runID id.RunID) (*run.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[runID.String()]
	if !ok {
		return nil, autowebsites.ErrRunNotFound
	}
	return r.Clone(), nil
}

// UpdateRun persists changes to an existing run.
func (m *Store) UpdateRun(_ context.Context, r *run.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := r.ID.String()
	if _, ok := m.runs[key]; !ok {
		return autowebsites.ErrRunNotFound
	}
	cp := r.Clone()
	cp.UpdatedAt = time.Now().UTC()
	m.runs[key] = cp
	return nil
}

// ListRuns returns runs matching the given options, newest first.
func (m *Store) ListRuns(_ context.Context, opts run.ListOpts) ([]*run.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*run.Run, 0, len(m.runs))
	for _, r := range m.runs {
		if opts.State != "" && r.State != opts.State {
			continue
		}
		result = append(result, r.Clone())
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.After(result[k].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

// CountRuns returns the number of runs matching the given options.
func (m *Store) CountRuns(_ context.Context, opts run.CountOpts) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, r := range m.runs {
		if opts.State != "" && r.State != opts.State {
			continue
		}
		if opts.Trigger != "" && r.Trigger != opts.Trigger {
			continue
		}
		count++
	}
	return count, nil
}

// LatestRun returns the most recently created run.
func (m *Store) LatestRun(_ context.Context) (*run.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *run.Run
	for _, r := range m.runs {
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, autowebsites.ErrRunNotFound
	}
	return latest.Clone(), nil
}

// ──────────────────────────────────────────────────
// Quota Store
// ──────────────────────────────────────────────────

// counterKey builds the composite map key for a daily counter.
func counterKey(kind quota.Kind, day string) string {
	return string(kind) + "|" + day
}

// TodayCount returns the counter value for kind on the given day.
// Missing counters read as zero.
func (m *Store) TodayCount(_ context.Context, kind quota.Kind, day string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.counters[counterKey(kind, day)], nil
}

// IncrCount atomically adds n to the counter for kind on the given day.
func (m *Store) IncrCount(_ context.Context, kind quota.Kind, day string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[counterKey(kind, day)] += n
	return nil
}

// ──────────────────────────────────────────────────
// Lock Store
// ──────────────────────────────────────────────────

// AcquireLock claims name for token if the lock is unheld or expired.
func (m *Store) AcquireLock(_ context.Context, name, token string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if l, held := m.locks[name]; held && l.expiresAt.After(now) {
		return false, nil
	}
	m.locks[name] = lease{token: token, expiresAt: now.Add(ttl)}
	return true, nil
}

// RenewLock extends the lease by ttl from now while token still holds it.
func (m *Store) RenewLock(_ context.Context, name, token string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, held := m.locks[name]
	if !held || l.token != token {
		return false, nil
	}
	l.expiresAt = time.Now().UTC().Add(ttl)
	m.locks[name] = l
	return true, nil
}

// ReleaseLock clears name if it still holds token. Mismatches are a no-op.
func (m *Store) ReleaseLock(_ context.Context, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, held := m.locks[name]; held && l.token == token {
		delete(m.locks, name)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Cluster Store
// ──────────────────────────────────────────────────

// RegisterInstance adds an instance to the registry.
func (m *Store) RegisterInstance(_ context.Context, inst *cluster.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.instances[inst.ID.String()] = inst.Clone()
	return nil
}

// DeregisterInstance removes an instance from the registry.
func (m *Store) DeregisterInstance(_ context.Context, instanceID id.InstanceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := instanceID.String()
	if _, ok := m.instances[key]; !ok {
		return autowebsites.ErrInstanceNotFound
	}
	delete(m.instances, key)
	return nil
}

// HeartbeatInstance updates the last-seen timestamp for an instance.
func (m *Store) HeartbeatInstance(_ context.Context, instanceID id.InstanceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instances[instanceID.String()]
	if !ok {
		return autowebsites.ErrInstanceNotFound
	}
	inst.LastSeen = time.Now().UTC()
	return nil
}

// ListInstances returns all registered instances.
func (m *Store) ListInstances(_ context.Context) ([]*cluster.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*cluster.Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		result = append(result, inst.Clone())
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].StartedAt.Before(result[k].StartedAt)
	})

	return result, nil
}

// ReapStaleInstances marks silent instances stale and returns them.
func (m *Store) ReapStaleInstances(_ context.Context, threshold time.Duration) ([]*cluster.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().Add(-threshold)
	var stale []*cluster.Instance
	for _, inst := range m.instances {
		if inst.State == cluster.InstanceActive && inst.LastSeen.Before(cutoff) {
			inst.State = cluster.InstanceStale
			stale = append(stale, inst.Clone())
		}
	}
	return stale, nil
}
