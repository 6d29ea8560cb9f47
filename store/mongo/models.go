package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/cluster"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/run"
)

// ── Run model ─────────────────────────────────────────────────────

type runModel struct {
	ID          string     `bson:"_id"`
	Trigger     string     `bson:"trigger_kind"`
	State       string     `bson:"state"`
	Config      []byte     `bson:"config"`
	Stats       []byte     `bson:"stats"`
	Errors      []byte     `bson:"errors,omitempty"`
	StartedAt   *time.Time `bson:"started_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

func toRunModel(r *run.Run) (*runModel, error) {
	config, err := json.Marshal(r.Config)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/mongo: marshal config: %w", err)
	}
	stats, err := json.Marshal(r.Stats)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/mongo: marshal stats: %w", err)
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
			return nil, fmt.Errorf("autowebsites/mongo: marshal errors: %w", err)
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
		return nil, fmt.Errorf("autowebsites/mongo: parse run id %q: %w", m.ID, err)
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
		return nil, fmt.Errorf("autowebsites/mongo: unmarshal config: %w", err)
	}
	if err := json.Unmarshal(m.Stats, &r.Stats); err != nil {
		return nil, fmt.Errorf("autowebsites/mongo: unmarshal stats: %w", err)
	}
	if len(m.Errors) > 0 {
		if err := json.Unmarshal(m.Errors, &r.Errors); err != nil {
			return nil, fmt.Errorf("autowebsites/mongo: unmarshal errors: %w", err)
		}
	}
	if m.StartedAt != nil {
		r.StartedAt = *m.StartedAt
	}
	return r, nil
}

// ── Quota counter model ───────────────────────────────────────────

// Counter documents use "kind:day" as _id so increments are a single
// upsert on the primary key.
type quotaCounterModel struct {
	ID    string `bson:"_id"`
	Kind  string `bson:"kind"`
	Day   string `bson:"day"`
	Count int    `bson:"count"`
}

func counterID(kind, day string) string { return kind + ":" + day }

// ── Lock model ────────────────────────────────────────────────────

type lockModel struct {
	Name      string    `bson:"_id"`
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// ── Instance model ────────────────────────────────────────────────

type instanceModel struct {
	ID        string            `bson:"_id"`
	Hostname  string            `bson:"hostname"`
	PID       int               `bson:"pid"`
	Version   string            `bson:"version"`
	State     string            `bson:"state"`
	LastSeen  time.Time         `bson:"last_seen"`
	Metadata  map[string]string `bson:"metadata,omitempty"`
	StartedAt time.Time         `bson:"started_at"`
}

func toInstanceModel(inst *cluster.Instance) *instanceModel {
	return &instanceModel{
		ID:        inst.ID.String(),
		Hostname:  inst.Hostname,
		PID:       inst.PID,
		Version:   inst.Version,
		State:     string(inst.State),
		LastSeen:  inst.LastSeen,
		Metadata:  inst.Metadata,
		StartedAt: inst.StartedAt,
	}
}

func fromInstanceModel(m *instanceModel) (*cluster.Instance, error) {
	parsedID, err := id.ParseInstanceID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/mongo: parse instance id %q: %w", m.ID, err)
	}

	return &cluster.Instance{
		ID:        parsedID,
		Hostname:  m.Hostname,
		PID:       m.PID,
		Version:   m.Version,
		State:     cluster.InstanceState(m.State),
		LastSeen:  m.LastSeen,
		Metadata:  m.Metadata,
		StartedAt: m.StartedAt,
	}, nil
}
