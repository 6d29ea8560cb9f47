// Package autowebsites provides the run orchestration core for nightly
// business-lead outreach. It decides when an outreach cycle may start,
// guarantees at most one cycle runs cluster-wide through a TTL-leased
// distributed lock, caps work to the remaining daily email quota, and
// drives leads through discovery, qualification, preview, and email
// phases on a bounded worker pool with per-lead failure isolation.
//
// Autowebsites is designed as a library, not a service. Import it,
// configure a store and collaborators, and let the scheduler run cycles.
//
// # Quick Start
//
//	o, err := autowebsites.New(
//	    autowebsites.WithStore(pgStore),
//	    autowebsites.WithLogger(logger),
//	)
//
// # Architecture
//
// Autowebsites follows a composable store pattern where each subsystem
// (run, quota, lock, cluster) defines its own store interface. A single
// backend implements all of them.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package autowebsites
