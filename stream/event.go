// Package stream provides a real-time event broker for run and lead
// lifecycle events. It bridges the ext.Extension system to connected
// clients via topic-based pub/sub with per-subscriber buffered channels;
// a subscriber that cannot keep up drops events rather than stalling
// the pipeline.
package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// Run events.
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunFailed    EventType = "run.failed"
	EventRunCancelled EventType = "run.cancelled"
	EventRunSkipped   EventType = "run.skipped"

	// Lead milestone events.
	EventLeadDiscovered   EventType = "lead.discovered"
	EventLeadQualified    EventType = "lead.qualified"
	EventLeadSkipped      EventType = "lead.skipped"
	EventPreviewGenerated EventType = "preview.generated"
	EventPreviewDeployed  EventType = "preview.deployed"
	EventEmailSent        EventType = "email.sent"
	EventEmailFailed      EventType = "email.failed"

	// Quota events.
	EventQuotaWarning EventType = "quota.warning"
)

// Event is the envelope sent to subscribers on a topic channel.
type Event struct {
	// Type identifies the lifecycle event.
	Type EventType `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Topic is the entity channel this event was published on, e.g.
	// "run:run_abc". Empty for events not scoped to one entity.
	Topic string `json:"topic,omitempty"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`
}

// RunEventData is the payload for run lifecycle events.
type RunEventData struct {
	RunID      string `json:"run_id,omitempty"`
	Trigger    string `json:"trigger,omitempty"`
	State      string `json:"state,omitempty"`
	Reason     string `json:"reason,omitempty"`
	ElapsedMs  int64  `json:"elapsed_ms,omitempty"`
	Error      string `json:"error,omitempty"`
	Discovered int    `json:"discovered,omitempty"`
	EmailsSent int    `json:"emails_sent,omitempty"`
}

// LeadEventData is the payload for lead milestone events.
type LeadEventData struct {
	RunID      string `json:"run_id"`
	LeadID     string `json:"lead_id"`
	Business   string `json:"business"`
	Industry   string `json:"industry,omitempty"`
	Location   string `json:"location,omitempty"`
	Reason     string `json:"reason,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
	MessageID  string `json:"message_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// QuotaEventData is the payload for quota events.
type QuotaEventData struct {
	Day        string `json:"day"`
	DailyLimit int    `json:"daily_limit"`
	SentToday  int    `json:"sent_today"`
	Remaining  int    `json:"remaining"`
}
