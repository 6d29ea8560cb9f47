package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/run"
)

const runColumns = `
	id, trigger_kind, state, config, stats, errors,
	started_at, completed_at, created_at, updated_at`

// CreateRun persists a new run.
func (s *Store) CreateRun(ctx context.Context, r *run.Run) error {
	config, stats, errs, err := encodeRun(r)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO autowebsites_runs (
			id, trigger_kind, state, config, stats, errors,
			started_at, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID.String(), string(r.Trigger), string(r.State), config, stats, errs,
		nilIfZeroTime(r.StartedAt), r.CompletedAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return autowebsites.ErrRunExists
		}
		return fmt.Errorf("autowebsites/postgres: create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*run.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+runColumns+` FROM autowebsites_runs WHERE id = $1`,
		runID.String(),
	)

	r, err := scanRun(row)
	if err != nil {
		if isNoRows(err) {
			return nil, autowebsites.ErrRunNotFound
		}
		return nil, fmt.Errorf("autowebsites/postgres: get run: %w", err)
	}
	return r, nil
}

// UpdateRun persists changes to an existing run.
func (s *Store) UpdateRun(ctx context.Context, r *run.Run) error {
	config, stats, errs, err := encodeRun(r)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE autowebsites_runs SET
			trigger_kind = $2, state = $3, config = $4, stats = $5, errors = $6,
			started_at = $7, completed_at = $8, updated_at = NOW()
		WHERE id = $1`,
		r.ID.String(), string(r.Trigger), string(r.State), config, stats, errs,
		nilIfZeroTime(r.StartedAt), r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("autowebsites/postgres: update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autowebsites.ErrRunNotFound
	}
	return nil
}

// ListRuns returns runs matching the given options, newest first.
func (s *Store) ListRuns(ctx context.Context, opts run.ListOpts) ([]*run.Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT`+runColumns+`
		FROM autowebsites_runs
		WHERE ($1 = '' OR state = $1)
		ORDER BY created_at DESC
		LIMIT NULLIF($2, 0) OFFSET $3`,
		string(opts.State), opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []*run.Run
	for rows.Next() {
		r, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("autowebsites/postgres: scan run row: %w", scanErr)
		}
		runs = append(runs, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("autowebsites/postgres: iterate run rows: %w", err)
	}
	return runs, nil
}

// CountRuns returns the number of runs matching the given options.
func (s *Store) CountRuns(ctx context.Context, opts run.CountOpts) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM autowebsites_runs
		WHERE ($1 = '' OR state = $1)
		  AND ($2 = '' OR trigger_kind = $2)`,
		string(opts.State), string(opts.Trigger),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("autowebsites/postgres: count runs: %w", err)
	}
	return count, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (*run.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT` + runColumns + ` FROM autowebsites_runs ORDER BY created_at DESC LIMIT 1`,
	)

	r, err := scanRun(row)
	if err != nil {
		if isNoRows(err) {
			return nil, autowebsites.ErrRunNotFound
		}
		return nil, fmt.Errorf("autowebsites/postgres: latest run: %w", err)
	}
	return r, nil
}

// encodeRun marshals the JSONB columns of a run.
func encodeRun(r *run.Run) (config, stats, errs []byte, err error) {
	if config, err = json.Marshal(r.Config); err != nil {
		return nil, nil, nil, fmt.Errorf("autowebsites/postgres: encode run config: %w", err)
	}
	if stats, err = json.Marshal(r.Stats); err != nil {
		return nil, nil, nil, fmt.Errorf("autowebsites/postgres: encode run stats: %w", err)
	}
	if r.Errors != nil {
		if errs, err = json.Marshal(r.Errors); err != nil {
			return nil, nil, nil, fmt.Errorf("autowebsites/postgres: encode run errors: %w", err)
		}
	}
	return config, stats, errs, nil
}

// scanRun scans a single run row.
func scanRun(row pgx.Row) (*run.Run, error) {
	var (
		r         run.Run
		idStr     string
		trigger   string
		state     string
		config    []byte
		stats     []byte
		errs      []byte
		startedAt *time.Time
	)
	err := row.Scan(
		&idStr, &trigger, &state, &config, &stats, &errs,
		&startedAt, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsedID, parseErr := id.ParseRunID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("autowebsites/postgres: parse run id %q: %w", idStr, parseErr)
	}
	r.ID = parsedID
	r.Trigger = run.TriggerKind(trigger)
	r.State = run.State(state)
	if startedAt != nil {
		r.StartedAt = *startedAt
	}

	if err := json.Unmarshal(config, &r.Config); err != nil {
		return nil, fmt.Errorf("autowebsites/postgres: decode run config: %w", err)
	}
	if err := json.Unmarshal(stats, &r.Stats); err != nil {
		return nil, fmt.Errorf("autowebsites/postgres: decode run stats: %w", err)
	}
	if errs != nil {
		if err := json.Unmarshal(errs, &r.Errors); err != nil {
			return nil, fmt.Errorf("autowebsites/postgres: decode run errors: %w", err)
		}
	}

	return &r, nil
}

// nilIfZeroTime maps the zero time to NULL.
func nilIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
