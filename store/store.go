// Package store defines the aggregate persistence interface. Each subsystem
// (run, quota, lock, cluster) defines its own store interface. The composite
// Store composes them all. Backends: Postgres, Redis, Bun (SQLite), Mongo,
// and Memory.
package store

import (
	"context"

	"github.com/isethius/Autowebsites-sub001/cluster"
	"github.com/isethius/Autowebsites-sub001/lock"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
)

// Store is the aggregate persistence interface.
// Each subsystem store is a composable interface; a single backend
// (postgres, redis, bun, mongo, memory) implements all of them.
type Store interface {
	run.Store
	quota.Store
	lock.Store
	cluster.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
