package bunstore

import (
	"context"
	"fmt"
	"time"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/run"
)

// CreateRun persists a new run. Returns autowebsites.ErrRunExists if the ID
// is already taken.
func (s *Store) CreateRun(ctx context.Context, r *run.Run) error {
	m, err := toRunModel(r)
	if err != nil {
		return err
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		if isDuplicateKey(err) {
			return autowebsites.ErrRunExists
		}
		return fmt.Errorf("autowebsites/bun: create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*run.Run, error) {
	m := new(runModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", runID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, autowebsites.ErrRunNotFound
		}
		return nil, fmt.Errorf("autowebsites/bun: get run: %w", err)
	}
	return fromRunModel(m)
}

// UpdateRun persists changes to an existing run and bumps its updated-at
// timestamp.
func (s *Store) UpdateRun(ctx context.Context, r *run.Run) error {
	m, err := toRunModel(r)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()

	res, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("autowebsites/bun: update run: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return autowebsites.ErrRunNotFound
	}
	return nil
}

// ListRuns returns runs matching the given options, newest first.
func (s *Store) ListRuns(ctx context.Context, opts run.ListOpts) ([]*run.Run, error) {
	var models []runModel
	q := s.db.NewSelect().Model(&models).
		Order("created_at DESC")
	if opts.State != "" {
		q = q.Where("state = ?", string(opts.State))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("autowebsites/bun: list runs: %w", err)
	}

	runs := make([]*run.Run, 0, len(models))
	for i := range models {
		r, convErr := fromRunModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("autowebsites/bun: list runs convert: %w", convErr)
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// CountRuns returns the number of runs matching the given options.
func (s *Store) CountRuns(ctx context.Context, opts run.CountOpts) (int64, error) {
	q := s.db.NewSelect().Model((*runModel)(nil))
	if opts.State != "" {
		q = q.Where("state = ?", string(opts.State))
	}
	if opts.Trigger != "" {
		q = q.Where("trigger_kind = ?", string(opts.Trigger))
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("autowebsites/bun: count runs: %w", err)
	}
	return int64(n), nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (*run.Run, error) {
	m := new(runModel)
	err := s.db.NewSelect().Model(m).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, autowebsites.ErrRunNotFound
		}
		return nil, fmt.Errorf("autowebsites/bun: latest run: %w", err)
	}
	return fromRunModel(m)
}
