package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/run"
)

// CreateRun stores the run as a Hash and adds it to the creation-time index.
func (s *Store) CreateRun(ctx context.Context, r *run.Run) error {
	rID := r.ID.String()
	key := runKey(rID)

	// Check for duplicate.
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("autowebsites/redis: create run check exists: %w", err)
	}
	if exists > 0 {
		return autowebsites.ErrRunExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, runToMap(r))
	pipe.ZAdd(ctx, runsByTimeKey, goredis.Z{
		Score:  float64(r.CreatedAt.UnixNano()),
		Member: rID,
	})
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("autowebsites/redis: create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*run.Run, error) {
	vals, err := s.client.HGetAll(ctx, runKey(runID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("autowebsites/redis: get run: %w", err)
	}
	if len(vals) == 0 {
		return nil, autowebsites.ErrRunNotFound
	}
	return mapToRun(vals)
}

// UpdateRun persists changes to an existing run and bumps its updated-at
// timestamp.
func (s *Store) UpdateRun(ctx context.Context, r *run.Run) error {
	key := runKey(r.ID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("autowebsites/redis: update run check exists: %w", err)
	}
	if exists == 0 {
		return autowebsites.ErrRunNotFound
	}

	fields := runToMap(r)
	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("autowebsites/redis: update run: %w", err)
	}
	return nil
}

// ListRuns returns runs matching the given options, newest first.
func (s *Store) ListRuns(ctx context.Context, opts run.ListOpts) ([]*run.Run, error) {
	ids, err := s.client.ZRevRange(ctx, runsByTimeKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("autowebsites/redis: list runs: %w", err)
	}

	runs := make([]*run.Run, 0, len(ids))
	skipped := 0
	for _, rID := range ids {
		if opts.Limit > 0 && len(runs) >= opts.Limit {
			break
		}
		vals, getErr := s.client.HGetAll(ctx, runKey(rID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue
		}
		r, convErr := mapToRun(vals)
		if convErr != nil {
			continue
		}
		if opts.State != "" && r.State != opts.State {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// CountRuns returns the number of runs matching the given options.
func (s *Store) CountRuns(ctx context.Context, opts run.CountOpts) (int64, error) {
	// Unfiltered counts come straight off the index.
	if opts.State == "" && opts.Trigger == "" {
		n, err := s.client.ZCard(ctx, runsByTimeKey).Result()
		if err != nil {
			return 0, fmt.Errorf("autowebsites/redis: count runs: %w", err)
		}
		return n, nil
	}

	ids, err := s.client.ZRange(ctx, runsByTimeKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("autowebsites/redis: count runs: %w", err)
	}

	var count int64
	for _, rID := range ids {
		vals, getErr := s.client.HGetAll(ctx, runKey(rID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue
		}
		r, convErr := mapToRun(vals)
		if convErr != nil {
			continue
		}
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
func (s *Store) LatestRun(ctx context.Context) (*run.Run, error) {
	ids, err := s.client.ZRevRange(ctx, runsByTimeKey, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("autowebsites/redis: latest run: %w", err)
	}
	if len(ids) == 0 {
		return nil, autowebsites.ErrRunNotFound
	}

	vals, err := s.client.HGetAll(ctx, runKey(ids[0])).Result()
	if err != nil {
		return nil, fmt.Errorf("autowebsites/redis: latest run get: %w", err)
	}
	if len(vals) == 0 {
		return nil, autowebsites.ErrRunNotFound
	}
	return mapToRun(vals)
}

// ── helpers ──

func runToMap(r *run.Run) map[string]interface{} {
	m := map[string]interface{}{
		"id":         r.ID.String(),
		"trigger":    string(r.Trigger),
		"state":      string(r.State),
		"config":     marshalJSON(r.Config),
		"stats":      marshalJSON(r.Stats),
		"errors":     marshalJSON(r.Errors),
		"created_at": r.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": r.UpdatedAt.Format(time.RFC3339Nano),
	}
	if !r.StartedAt.IsZero() {
		m["started_at"] = r.StartedAt.Format(time.RFC3339Nano)
	}
	if r.CompletedAt != nil {
		m["completed_at"] = r.CompletedAt.Format(time.RFC3339Nano)
	}
	return m
}

func mapToRun(m map[string]string) (*run.Run, error) {
	rID, err := id.ParseRunID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("autowebsites/redis: parse run id: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	r := &run.Run{
		Entity: autowebsites.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		ID:      rID,
		Trigger: run.TriggerKind(m["trigger"]),
		State:   run.State(m["state"]),
	}

	if v := m["config"]; v != "" && v != "null" {
		_ = json.Unmarshal([]byte(v), &r.Config) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["stats"]; v != "" && v != "null" {
		_ = json.Unmarshal([]byte(v), &r.Stats) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["errors"]; v != "" && v != "null" {
		_ = json.Unmarshal([]byte(v), &r.Errors) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["started_at"]; v != "" {
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["completed_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		r.CompletedAt = &t
	}
	return r, nil
}
