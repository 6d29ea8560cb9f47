package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/cluster"
	"github.com/isethius/Autowebsites-sub001/id"
)

const instanceColumns = `
	id, hostname, pid, version, state, last_seen, metadata, started_at`

// RegisterInstance adds an instance to the registry. Re-registering
// the same ID refreshes the record.
func (s *Store) RegisterInstance(ctx context.Context, inst *cluster.Instance) error {
	var metadata []byte
	if inst.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(inst.Metadata); err != nil {
			return fmt.Errorf("autowebsites/postgres: encode instance metadata: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO autowebsites_instances (
			id, hostname, pid, version, state, last_seen, metadata, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			hostname = EXCLUDED.hostname,
			pid = EXCLUDED.pid,
			version = EXCLUDED.version,
			state = EXCLUDED.state,
			last_seen = EXCLUDED.last_seen,
			metadata = EXCLUDED.metadata`,
		inst.ID.String(), inst.Hostname, inst.PID, inst.Version,
		string(inst.State), inst.LastSeen, metadata, inst.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("autowebsites/postgres: register instance: %w", err)
	}
	return nil
}

// DeregisterInstance removes an instance from the registry.
func (s *Store) DeregisterInstance(ctx context.Context, instanceID id.InstanceID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM autowebsites_instances WHERE id = $1`,
		instanceID.String(),
	)
	if err != nil {
		return fmt.Errorf("autowebsites/postgres: deregister instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autowebsites.ErrInstanceNotFound
	}
	return nil
}

// HeartbeatInstance updates the last-seen timestamp for an instance.
func (s *Store) HeartbeatInstance(ctx context.Context, instanceID id.InstanceID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE autowebsites_instances SET last_seen = NOW() WHERE id = $1`,
		instanceID.String(),
	)
	if err != nil {
		return fmt.Errorf("autowebsites/postgres: heartbeat instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autowebsites.ErrInstanceNotFound
	}
	return nil
}

// ListInstances returns all registered instances, oldest first.
func (s *Store) ListInstances(ctx context.Context) ([]*cluster.Instance, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+instanceColumns+` FROM autowebsites_instances ORDER BY started_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/postgres: list instances: %w", err)
	}
	defer rows.Close()

	var instances []*cluster.Instance
	for rows.Next() {
		inst, scanErr := scanInstance(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("autowebsites/postgres: scan instance row: %w", scanErr)
		}
		instances = append(instances, inst)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("autowebsites/postgres: iterate instance rows: %w", err)
	}
	return instances, nil
}

// ReapStaleInstances marks silent active instances stale and returns
// them.
func (s *Store) ReapStaleInstances(ctx context.Context, threshold time.Duration) ([]*cluster.Instance, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	rows, err := s.pool.Query(ctx, `
		UPDATE autowebsites_instances
		SET state = $1
		WHERE state = $2 AND last_seen < $3
		RETURNING`+instanceColumns,
		string(cluster.InstanceStale), string(cluster.InstanceActive), cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/postgres: reap stale instances: %w", err)
	}
	defer rows.Close()

	var stale []*cluster.Instance
	for rows.Next() {
		inst, scanErr := scanInstance(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("autowebsites/postgres: scan reaped instance: %w", scanErr)
		}
		stale = append(stale, inst)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("autowebsites/postgres: iterate reaped instances: %w", err)
	}
	return stale, nil
}

// scanInstance scans a single instance row.
func scanInstance(row pgx.Row) (*cluster.Instance, error) {
	var (
		inst     cluster.Instance
		idStr    string
		state    string
		metadata []byte
	)
	err := row.Scan(
		&idStr, &inst.Hostname, &inst.PID, &inst.Version,
		&state, &inst.LastSeen, &metadata, &inst.StartedAt,
	)
	if err != nil {
		return nil, err
	}

	parsedID, parseErr := id.ParseInstanceID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("autowebsites/postgres: parse instance id %q: %w", idStr, parseErr)
	}
	inst.ID = parsedID
	inst.State = cluster.InstanceState(state)
	if metadata != nil {
		if err := json.Unmarshal(metadata, &inst.Metadata); err != nil {
			return nil, fmt.Errorf("autowebsites/postgres: decode instance metadata: %w", err)
		}
	}

	return &inst, nil
}
