// Package run defines the persisted record of one outreach cycle: its
// lifecycle state, the frozen configuration it ran with, incrementally
// aggregated stats, and an append-only error list.
package run

import (
	"fmt"
	"time"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/campaign"
	"github.com/isethius/Autowebsites-sub001/id"
)

// State represents the lifecycle state of a run.
type State string

const (
	// StatePending means the run was admitted but the pipeline has not
	// started yet.
	StatePending State = "pending"
	// StateRunning means the pipeline is executing.
	StateRunning State = "running"
	// StateCompleted means every phase ran, regardless of individual
	// lead failures.
	StateCompleted State = "completed"
	// StateFailed means a non-isolated error escaped the pipeline itself.
	StateFailed State = "failed"
	// StateCancelled means the cooperative cancel flag was observed
	// before completion.
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is final. A run in a terminal state
// is immutable.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// TriggerKind records what started a run.
type TriggerKind string

const (
	// TriggerCron marks runs started by the scheduler's cron trigger.
	TriggerCron TriggerKind = "cron"
	// TriggerManual marks runs started by an explicit trigger call.
	TriggerManual TriggerKind = "manual"
)

// Run is a single execution of the discovery-to-email pipeline, bounded
// by one admission decision. Created when a cycle passes every gate;
// mutated only by the Runner that owns it.
type Run struct {
	autowebsites.Entity

	ID          id.RunID        `json:"id"`
	Trigger     TriggerKind     `json:"trigger"`
	State       State           `json:"state"`
	Config      campaign.Config `json:"config"`
	Stats       Stats           `json:"stats"`
	Errors      []Error         `json:"errors,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// New creates a pending Run carrying a snapshot of cfg.
func New(trigger TriggerKind, cfg campaign.Config) *Run {
	return &Run{
		Entity:  autowebsites.NewEntity(),
		ID:      id.NewRunID(),
		Trigger: trigger,
		State:   StatePending,
		Config:  cfg.Clone(),
	}
}

// MarkRunning transitions pending -> running and stamps StartedAt.
func (r *Run) MarkRunning(now time.Time) error {
	if r.State != StatePending {
		return fmt.Errorf("%w: %s -> %s", autowebsites.ErrInvalidState, r.State, StateRunning)
	}
	r.State = StateRunning
	r.StartedAt = now.UTC()
	r.Touch()
	return nil
}

// MarkCompleted transitions running -> completed and stamps CompletedAt.
func (r *Run) MarkCompleted(now time.Time) error {
	return r.finish(StateCompleted, now)
}

// MarkFailed transitions running -> failed and stamps CompletedAt.
func (r *Run) MarkFailed(now time.Time) error {
	return r.finish(StateFailed, now)
}

// MarkCancelled transitions running -> cancelled and stamps CompletedAt.
func (r *Run) MarkCancelled(now time.Time) error {
	return r.finish(StateCancelled, now)
}

func (r *Run) finish(s State, now time.Time) error {
	if r.State != StateRunning {
		return fmt.Errorf("%w: %s -> %s", autowebsites.ErrInvalidState, r.State, s)
	}
	r.State = s
	t := now.UTC()
	r.CompletedAt = &t
	r.Touch()
	return nil
}

// RecordError appends a phase-tagged error. Pass id.Nil for errors not
// scoped to a single lead.
func (r *Run) RecordError(at time.Time, phase Phase, leadID id.LeadID, msg string) {
	r.Errors = append(r.Errors, Error{
		At:      at.UTC(),
		Phase:   phase,
		LeadID:  leadID,
		Message: msg,
	})
}

// Clone returns a deep copy. Stores return clones so callers never share
// the maps and slices held by the stored record.
func (r *Run) Clone() *Run {
	cp := *r
	cp.Config = r.Config.Clone()
	cp.Stats = r.Stats.Clone()
	if r.Errors != nil {
		cp.Errors = append([]Error(nil), r.Errors...)
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// Phase is one stage of the per-lead pipeline.
type Phase string

const (
	PhaseDiscovery Phase = "discovery"
	PhaseQualify   Phase = "qualify"
	PhasePreview   Phase = "preview"
	PhaseDeploy    Phase = "deploy"
	PhaseEmail     Phase = "email"
	PhaseOther     Phase = "other"
)

// Error is one recorded failure inside a run. Append-only; a run keeps
// every error it ever saw.
type Error struct {
	At      time.Time `json:"at"`
	Phase   Phase     `json:"phase"`
	Message string    `json:"message"`
	LeadID  id.LeadID `json:"lead_id,omitempty"`
}
