package bunstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/cluster"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/run"
)

// ── Run model ─────────────────────────────────────────────────────

type runModel struct {
	bun.BaseModel `bun:"table:autowebsites_runs"`

	ID          string     `bun:"id,pk"`
	Trigger     string     `bun:"trigger_kind,notnull"`
	State       string     `bun:"state,notnull,default:'pending'"`
	Config      []byte     `bun:"config,notnull"`
	Stats       []byte     `bun:"stats,notnull"`
	Errors      []byte     `bun:"errors"`
	StartedAt   *time.Time `bun:"started_at"`
	CompletedAt *time.Time `bun:"completed_at"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
}

func toRunModel(r *run.Run) (*runModel, error) {
	config, err := json.Marshal(r.Config)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/bun: marshal config: %w", err)
	}
	stats, err := json.Marshal(r.Stats)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/bun: marshal stats: %w", err)
	}

	m := &runModel{
		ID:          r.ID.String(),
		Trigger:     string(r.Trigger),
		State:       string(r.State),
		Config:      config,
		Stats:       stats,
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Errors != nil {
		errs, err := json.Marshal(r.Errors)
		if err != nil {
			return nil, fmt.Errorf("autowebsites/bun: marshal errors: %w", err)
		}
		m.Errors = errs
	}
	if !r.StartedAt.IsZero() {
		t := r.StartedAt
		m.StartedAt = &t
	}
	return m, nil
}

func fromRunModel(m *runModel) (*run.Run, error) {
	parsedID, err := id.ParseRunID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/bun: parse run id %q: %w", m.ID, err)
	}

	r := &run.Run{
		Entity: autowebsites.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          parsedID,
		Trigger:     run.TriggerKind(m.Trigger),
		State:       run.State(m.State),
		CompletedAt: m.CompletedAt,
	}
	if err := json.Unmarshal(m.Config, &r.Config); err != nil {
		return nil, fmt.Errorf("autowebsites/bun: unmarshal config: %w", err)
	}
	if err := json.Unmarshal(m.Stats, &r.Stats); err != nil {
		return nil, fmt.Errorf("autowebsites/bun: unmarshal stats: %w", err)
	}
	if len(m.Errors) > 0 {
		if err := json.Unmarshal(m.Errors, &r.Errors); err != nil {
			return nil, fmt.Errorf("autowebsites/bun: unmarshal errors: %w", err)
		}
	}
	if m.StartedAt != nil {
		r.StartedAt = *m.StartedAt
	}
	return r, nil
}

// ── Quota counter model ───────────────────────────────────────────

type quotaCounterModel struct {
	bun.BaseModel `bun:"table:autowebsites_quota_counters"`

	Kind  string `bun:"kind,pk"`
	Day   string `bun:"day,pk"`
	Count int    `bun:"count,notnull,default:0"`
}

// ── Lock model ────────────────────────────────────────────────────

type lockModel struct {
	bun.BaseModel `bun:"table:autowebsites_locks"`

	Name      string    `bun:"name,pk"`
	Token     string    `bun:"token,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}

// ── Instance model ────────────────────────────────────────────────

type instanceModel struct {
	bun.BaseModel `bun:"table:autowebsites_instances"`

	ID        string    `bun:"id,pk"`
	Hostname  string    `bun:"hostname,notnull,default:''"`
	PID       int       `bun:"pid,notnull,default:0"`
	Version   string    `bun:"version,notnull,default:''"`
	State     string    `bun:"state,notnull"`
	LastSeen  time.Time `bun:"last_seen,notnull"`
	Metadata  []byte    `bun:"metadata"`
	StartedAt time.Time `bun:"started_at,notnull"`
}

func toInstanceModel(inst *cluster.Instance) (*instanceModel, error) {
	m := &instanceModel{
		ID:        inst.ID.String(),
		Hostname:  inst.Hostname,
		PID:       inst.PID,
		Version:   inst.Version,
		State:     string(inst.State),
		LastSeen:  inst.LastSeen,
		StartedAt: inst.StartedAt,
	}
	if inst.Metadata != nil {
		metadata, err := json.Marshal(inst.Metadata)
		if err != nil {
			return nil, fmt.Errorf("autowebsites/bun: marshal metadata: %w", err)
		}
		m.Metadata = metadata
	}
	return m, nil
}

func fromInstanceModel(m *instanceModel) (*cluster.Instance, error) {
	parsedID, err := id.ParseInstanceID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/bun: parse instance id %q: %w", m.ID, err)
	}

	inst := &cluster.Instance{
		ID:        parsedID,
		Hostname:  m.Hostname,
		PID:       m.PID,
		Version:   m.Version,
		State:     cluster.InstanceState(m.State),
		LastSeen:  m.LastSeen,
		StartedAt: m.StartedAt,
	}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &inst.Metadata); err != nil {
			return nil, fmt.Errorf("autowebsites/bun: unmarshal metadata: %w", err)
		}
	}
	return inst, nil
}
