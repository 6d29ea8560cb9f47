package autowebsites

import "time"

// Config holds process-level settings for an Orchestrator. Campaign
// settings (limits, run hours, schedule weights) live in campaign.Config
// and are resolved per run; Config covers the knobs that do not change
// between runs.
type Config struct {
	// LockName is the distributed-lock key guarding the nightly cycle.
	// Every instance that should exclude the others must use the same
	// name.
	LockName string

	// LockTTL bounds how long a crashed instance can hold the cycle
	// lock before another instance may reclaim it. Live holders renew
	// the lease well before expiry.
	LockTTL time.Duration

	// DailyEmailLimit caps the number of outreach emails sent per UTC
	// day across all instances sharing the store.
	DailyEmailLimit int

	// HeartbeatInterval is how often an instance refreshes its registry
	// entry and, while running, renews the cycle lease.
	HeartbeatInterval time.Duration

	// StaleInstanceThreshold is how long an instance may miss
	// heartbeats before the registry reaps it.
	StaleInstanceThreshold time.Duration

	// ShutdownTimeout bounds how long Stop waits for an in-flight
	// cycle to wind down before giving up.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LockName:               "autowebsites:cycle",
		LockTTL:                10 * time.Minute,
		DailyEmailLimit:        50,
		HeartbeatInterval:      10 * time.Second,
		StaleInstanceThreshold: 30 * time.Second,
		ShutdownTimeout:        30 * time.Second,
	}
}
