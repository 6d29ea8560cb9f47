package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/cluster"
	"github.com/isethius/Autowebsites-sub001/id"
)

// RegisterInstance adds an instance to the registry. Re-registering an
// existing ID refreshes its record.
func (s *Store) RegisterInstance(ctx context.Context, inst *cluster.Instance) error {
	m, err := toInstanceModel(inst)
	if err != nil {
		return err
	}

	_, err = s.db.NewInsert().Model(m).
		On("CONFLICT (id) DO UPDATE").
		Set("hostname = EXCLUDED.hostname").
		Set("pid = EXCLUDED.pid").
		Set("version = EXCLUDED.version").
		Set("state = EXCLUDED.state").
		Set("last_seen = EXCLUDED.last_seen").
		Set("metadata = EXCLUDED.metadata").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("autowebsites/bun: register instance: %w", err)
	}
	return nil
}

// DeregisterInstance removes an instance from the registry.
func (s *Store) DeregisterInstance(ctx context.Context, instanceID id.InstanceID) error {
	res, err := s.db.NewDelete().
		TableExpr("autowebsites_instances").
		Where("id = ?", instanceID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("autowebsites/bun: deregister instance: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return autowebsites.ErrInstanceNotFound
	}
	return nil
}

// HeartbeatInstance updates the last-seen timestamp for an instance.
func (s *Store) HeartbeatInstance(ctx context.Context, instanceID id.InstanceID) error {
	res, err := s.db.NewUpdate().
		TableExpr("autowebsites_instances").
		Set("last_seen = ?", time.Now().UTC()).
		Where("id = ?", instanceID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("autowebsites/bun: heartbeat instance: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return autowebsites.ErrInstanceNotFound
	}
	return nil
}

// ListInstances returns all registered instances, oldest first.
func (s *Store) ListInstances(ctx context.Context) ([]*cluster.Instance, error) {
	var models []instanceModel
	err := s.db.NewSelect().Model(&models).
		Order("started_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/bun: list instances: %w", err)
	}

	instances := make([]*cluster.Instance, 0, len(models))
	for i := range models {
		inst, convErr := fromInstanceModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("autowebsites/bun: list instances convert: %w", convErr)
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// ReapStaleInstances marks active instances whose last-seen timestamp is
// older than the threshold as stale and returns them. The read and the
// mark share one transaction so a heartbeat cannot land between them.
func (s *Store) ReapStaleInstances(ctx context.Context, threshold time.Duration) ([]*cluster.Instance, error) {
	cutoff := time.Now().UTC().Add(-threshold)

	var models []instanceModel
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&models).
			Where("state = ?", string(cluster.InstanceActive)).
			Where("last_seen < ?", cutoff).
			Scan(ctx); err != nil {
			return fmt.Errorf("select stale: %w", err)
		}
		if len(models) == 0 {
			return nil
		}

		_, err := tx.NewUpdate().
			TableExpr("autowebsites_instances").
			Set("state = ?", string(cluster.InstanceStale)).
			Where("state = ?", string(cluster.InstanceActive)).
			Where("last_seen < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("mark stale: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("autowebsites/bun: reap stale instances: %w", err)
	}

	stale := make([]*cluster.Instance, 0, len(models))
	for i := range models {
		inst, convErr := fromInstanceModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("autowebsites/bun: reap convert: %w", convErr)
		}
		inst.State = cluster.InstanceStale
		stale = append(stale, inst)
	}
	if len(stale) == 0 {
		return nil, nil
	}
	return stale, nil
}
