package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/cluster"
	"github.com/isethius/Autowebsites-sub001/id"
)

// RegisterInstance adds a new instance to the cluster registry.
func (s *Store) RegisterInstance(ctx context.Context, inst *cluster.Instance) error {
	iID := inst.ID.String()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, instanceKey(iID), instanceToMap(inst))
	pipe.SAdd(ctx, instanceIDsKey, iID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("autowebsites/redis: register instance: %w", err)
	}
	return nil
}

// DeregisterInstance removes an instance from the cluster registry.
func (s *Store) DeregisterInstance(ctx context.Context, instanceID id.InstanceID) error {
	iID := instanceID.String()
	key := instanceKey(iID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("autowebsites/redis: deregister check exists: %w", err)
	}
	if exists == 0 {
		return autowebsites.ErrInstanceNotFound
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, instanceIDsKey, iID)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("autowebsites/redis: deregister instance: %w", err)
	}
	return nil
}

// HeartbeatInstance updates the last-seen timestamp for an instance.
func (s *Store) HeartbeatInstance(ctx context.Context, instanceID id.InstanceID) error {
	key := instanceKey(instanceID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("autowebsites/redis: heartbeat check exists: %w", err)
	}
	if exists == 0 {
		return autowebsites.ErrInstanceNotFound
	}

	err = s.client.HSet(ctx, key,
		"last_seen", time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("autowebsites/redis: heartbeat instance: %w", err)
	}
	return nil
}

// ListInstances returns all registered instances, oldest first.
func (s *Store) ListInstances(ctx context.Context) ([]*cluster.Instance, error) {
	ids, err := s.client.SMembers(ctx, instanceIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("autowebsites/redis: list instances: %w", err)
	}

	instances := make([]*cluster.Instance, 0, len(ids))
	for _, iID := range ids {
		vals, getErr := s.client.HGetAll(ctx, instanceKey(iID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue
		}
		inst, convErr := mapToInstance(vals)
		if convErr != nil {
			continue
		}
		instances = append(instances, inst)
	}

	sort.Slice(instances, func(i, k int) bool {
		return instances[i].StartedAt.Before(instances[k].StartedAt)
	})
	return instances, nil
}

// ReapStaleInstances marks active instances whose last-seen timestamp is
// older than the threshold as stale and returns them.
func (s *Store) ReapStaleInstances(ctx context.Context, threshold time.Duration) ([]*cluster.Instance, error) {
	cutoff := time.Now().UTC().Add(-threshold)

	ids, err := s.client.SMembers(ctx, instanceIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("autowebsites/redis: reap smembers: %w", err)
	}

	var stale []*cluster.Instance
	for _, iID := range ids {
		vals, getErr := s.client.HGetAll(ctx, instanceKey(iID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue
		}
		inst, convErr := mapToInstance(vals)
		if convErr != nil {
			continue
		}
		if inst.State != cluster.InstanceActive || !inst.LastSeen.Before(cutoff) {
			continue
		}

		err := s.client.HSet(ctx, instanceKey(iID),
			"state", string(cluster.InstanceStale),
		).Err()
		if err != nil {
			return nil, fmt.Errorf("autowebsites/redis: reap mark stale: %w", err)
		}
		inst.State = cluster.InstanceStale
		stale = append(stale, inst)
	}
	return stale, nil
}

// ── helpers ──

func instanceToMap(inst *cluster.Instance) map[string]interface{} {
	return map[string]interface{}{
		"id":         inst.ID.String(),
		"hostname":   inst.Hostname,
		"pid":        strconv.Itoa(inst.PID),
		"version":    inst.Version,
		"state":      string(inst.State),
		"last_seen":  inst.LastSeen.Format(time.RFC3339Nano),
		"metadata":   marshalJSON(inst.Metadata),
		"started_at": inst.StartedAt.Format(time.RFC3339Nano),
	}
}

func mapToInstance(m map[string]string) (*cluster.Instance, error) {
	iID, err := id.ParseInstanceID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("autowebsites/redis: parse instance id: %w", err)
	}

	pid, _ := strconv.Atoi(m["pid"])                              //nolint:errcheck // best-effort parse from trusted Redis data
	lastSeen, _ := time.Parse(time.RFC3339Nano, m["last_seen"])   //nolint:errcheck // best-effort parse from trusted Redis data
	startedAt, _ := time.Parse(time.RFC3339Nano, m["started_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	return &cluster.Instance{
		ID:        iID,
		Hostname:  m["hostname"],
		PID:       pid,
		Version:   m["version"],
		State:     cluster.InstanceState(m["state"]),
		LastSeen:  lastSeen,
		Metadata:  unmarshalMap(m["metadata"]),
		StartedAt: startedAt,
	}, nil
}
