package run

import (
	"context"

	"github.com/isethius/Autowebsites-sub001/id"
)

// ListOpts controls pagination and filtering for run list queries.
type ListOpts struct {
	// Limit is the maximum number of runs to return. Zero means no limit.
	Limit int
	// Offset is the number of runs to skip.
	Offset int
	// State filters by run state. Empty means all states.
	State State
}

// CountOpts controls filtering for run count queries.
type CountOpts struct {
	// State filters by run state. Empty means all states.
	State State
	// Trigger filters by trigger kind. Empty means all triggers.
	Trigger TriggerKind
}

// Store defines the persistence contract for runs.
type Store interface {
	// CreateRun persists a new run.
	CreateRun(ctx context.Context, r *Run) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID id.RunID) (*Run, error)

	// UpdateRun persists changes to an existing run.
	UpdateRun(ctx context.Context, r *Run) error

	// ListRuns returns runs matching the given options, newest first.
	ListRuns(ctx context.Context, opts ListOpts) ([]*Run, error)

	// CountRuns returns the number of runs matching the given options.
	CountRuns(ctx context.Context, opts CountOpts) (int64, error)

	// LatestRun returns the most recently created run, or
	// autowebsites.ErrRunNotFound when no runs exist.
	LatestRun(ctx context.Context) (*Run, error)
}
