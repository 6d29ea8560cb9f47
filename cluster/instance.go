package cluster

import (
	"os"
	"time"

	"github.com/isethius/Autowebsites-sub001/id"
)

// InstanceState represents the lifecycle state of a daemon instance.
type InstanceState string

const (
	// InstanceActive means the instance is healthy and heartbeating.
	InstanceActive InstanceState = "active"
	// InstanceDraining means the instance is finishing an in-flight run
	// but will not start new ones (graceful shutdown).
	InstanceDraining InstanceState = "draining"
	// InstanceStale means the instance has stopped heartbeating and is
	// presumed crashed or partitioned.
	InstanceStale InstanceState = "stale"
)

// Instance represents one running daemon process in a deployment.
type Instance struct {
	ID        id.InstanceID     `json:"id"`
	Hostname  string            `json:"hostname"`
	PID       int               `json:"pid"`
	Version   string            `json:"version"`
	State     InstanceState     `json:"state"`
	LastSeen  time.Time         `json:"last_seen"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	StartedAt time.Time         `json:"started_at"`
}

// Self builds an Instance describing the current process. Hostname
// resolution failures leave the field empty rather than failing.
func Self(version string) *Instance {
	hostname, _ := os.Hostname()
	now := time.Now().UTC()
	return &Instance{
		ID:        id.NewInstanceID(),
		Hostname:  hostname,
		PID:       os.Getpid(),
		Version:   version,
		State:     InstanceActive,
		LastSeen:  now,
		StartedAt: now,
	}
}

// Clone returns a deep copy of the instance.
func (i *Instance) Clone() *Instance {
	cp := *i
	if i.Metadata != nil {
		cp.Metadata = make(map[string]string, len(i.Metadata))
		for k, v := range i.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
