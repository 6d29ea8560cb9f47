// Package cluster tracks the daemon instances participating in a
// deployment.
//
// Several instances may run concurrently for redundancy; the nightly
// cycle lock decides which one actually executes a run. The cluster
// registry exists so operators can see which instances are alive,
// which are draining, and which have gone silent.
//
// # Instance Entity
//
// Each running daemon registers itself as an [Instance] with:
//   - a unique [id.InstanceID]
//   - its hostname and process ID
//   - a state: [InstanceActive], [InstanceDraining], or [InstanceStale]
//
// Instances send periodic heartbeats through a [Registrar]. If a
// heartbeat is not received within the configured threshold, the
// instance is considered stale and is flagged by the reaper.
//
// Run exclusivity is NOT decided here. The lock package's TTL lease is
// the sole arbiter of which instance may execute the nightly cycle;
// the registry is purely observational.
package cluster
