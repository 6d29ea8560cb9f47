package cluster

import (
	"context"
	"time"

	"github.com/isethius/Autowebsites-sub001/id"
)

// Store defines the persistence contract for the instance registry.
type Store interface {
	// RegisterInstance adds an instance to the registry.
	RegisterInstance(ctx context.Context, inst *Instance) error

	// DeregisterInstance removes an instance from the registry.
	DeregisterInstance(ctx context.Context, instanceID id.InstanceID) error

	// HeartbeatInstance updates the last-seen timestamp for an instance,
	// indicating it is still alive. Returns ErrInstanceNotFound if the
	// instance is not registered.
	HeartbeatInstance(ctx context.Context, instanceID id.InstanceID) error

	// ListInstances returns all registered instances.
	ListInstances(ctx context.Context) ([]*Instance, error)

	// ReapStaleInstances marks instances whose last-seen timestamp is
	// older than the given threshold as stale and returns them.
	ReapStaleInstances(ctx context.Context, threshold time.Duration) ([]*Instance, error)
}
