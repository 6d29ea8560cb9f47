package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/isethius/Autowebsites-sub001/ext"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*Extension)(nil)
	_ ext.RunStarted       = (*Extension)(nil)
	_ ext.RunCompleted     = (*Extension)(nil)
	_ ext.RunFailed        = (*Extension)(nil)
	_ ext.RunCancelled     = (*Extension)(nil)
	_ ext.RunSkipped       = (*Extension)(nil)
	_ ext.LeadDiscovered   = (*Extension)(nil)
	_ ext.LeadQualified    = (*Extension)(nil)
	_ ext.LeadSkipped      = (*Extension)(nil)
	_ ext.PreviewGenerated = (*Extension)(nil)
	_ ext.PreviewDeployed  = (*Extension)(nil)
	_ ext.EmailSent        = (*Extension)(nil)
	_ ext.EmailFailed      = (*Extension)(nil)
	_ ext.QuotaWarning     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. It is
// defined locally so this package does not import any concrete audit
// client — callers inject their backend at wiring time.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event. Callers
// provide a RecorderFunc adapter that bridges to their audit backend.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges lifecycle events to an audit trail backend. Each
// lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided
// Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Run lifecycle hooks ─────────────────────────────

// OnRunStarted implements ext.RunStarted.
func (e *Extension) OnRunStarted(ctx context.Context, r *run.Run) error {
	return e.record(ctx, ActionRunStarted, SeverityInfo, OutcomeSuccess,
		ResourceRun, r.ID.String(), CategoryRun, nil,
		"trigger", string(r.Trigger),
		"max_leads", r.Config.MaxLeads,
		"max_emails", r.Config.MaxEmails,
	)
}

// OnRunCompleted implements ext.RunCompleted.
func (e *Extension) OnRunCompleted(ctx context.Context, r *run.Run, elapsed time.Duration) error {
	return e.record(ctx, ActionRunCompleted, SeverityInfo, OutcomeSuccess,
		ResourceRun, r.ID.String(), CategoryRun, nil,
		"trigger", string(r.Trigger),
		"elapsed_ms", elapsed.Milliseconds(),
		"discovered", r.Stats.Discovered,
		"emails_sent", r.Stats.EmailsSent,
		"leads_failed", r.Stats.LeadsFailed,
	)
}

// OnRunFailed implements ext.RunFailed.
func (e *Extension) OnRunFailed(ctx context.Context, r *run.Run, runErr error) error {
	return e.record(ctx, ActionRunFailed, SeverityCritical, OutcomeFailure,
		ResourceRun, r.ID.String(), CategoryRun, runErr,
		"trigger", string(r.Trigger),
	)
}

// OnRunCancelled implements ext.RunCancelled.
func (e *Extension) OnRunCancelled(ctx context.Context, r *run.Run) error {
	return e.record(ctx, ActionRunCancelled, SeverityWarning, OutcomeFailure,
		ResourceRun, r.ID.String(), CategoryRun, nil,
		"trigger", string(r.Trigger),
		"emails_sent", r.Stats.EmailsSent,
	)
}

// OnRunSkipped implements ext.RunSkipped. A skip is routine gatekeeping,
// not an error, so it records as info/success with the gate named.
func (e *Extension) OnRunSkipped(ctx context.Context, reason string) error {
	return e.record(ctx, ActionRunSkipped, SeverityInfo, OutcomeSuccess,
		ResourceRun, "", CategoryRun, nil,
		"reason", reason,
	)
}

// ── Lead milestone hooks ────────────────────────────

// OnLeadDiscovered implements ext.LeadDiscovered.
func (e *Extension) OnLeadDiscovered(ctx context.Context, runID id.RunID, l *lead.Lead) error {
	return e.record(ctx, ActionLeadDiscovered, SeverityInfo, OutcomeSuccess,
		ResourceLead, l.ID.String(), CategoryLead, nil,
		"run_id", runID.String(),
		"business", l.BusinessName,
		"industry", l.Industry,
		"location", l.Location,
	)
}

// OnLeadQualified implements ext.LeadQualified.
func (e *Extension) OnLeadQualified(ctx context.Context, runID id.RunID, l *lead.Lead) error {
	return e.record(ctx, ActionLeadQualified, SeverityInfo, OutcomeSuccess,
		ResourceLead, l.ID.String(), CategoryLead, nil,
		"run_id", runID.String(),
		"business", l.BusinessName,
	)
}

// OnLeadSkipped implements ext.LeadSkipped.
func (e *Extension) OnLeadSkipped(ctx context.Context, runID id.RunID, l *lead.Lead, reason string) error {
	return e.record(ctx, ActionLeadSkipped, SeverityInfo, OutcomeSuccess,
		ResourceLead, l.ID.String(), CategoryLead, nil,
		"run_id", runID.String(),
		"business", l.BusinessName,
		"reason", reason,
	)
}

// OnPreviewGenerated implements ext.PreviewGenerated.
func (e *Extension) OnPreviewGenerated(ctx context.Context, runID id.RunID, l *lead.Lead) error {
	return e.record(ctx, ActionPreviewGenerated, SeverityInfo, OutcomeSuccess,
		ResourceLead, l.ID.String(), CategoryLead, nil,
		"run_id", runID.String(),
		"business", l.BusinessName,
	)
}

// OnPreviewDeployed implements ext.PreviewDeployed.
func (e *Extension) OnPreviewDeployed(ctx context.Context, runID id.RunID, l *lead.Lead, previewURL string) error {
	return e.record(ctx, ActionPreviewDeployed, SeverityInfo, OutcomeSuccess,
		ResourceLead, l.ID.String(), CategoryLead, nil,
		"run_id", runID.String(),
		"business", l.BusinessName,
		"preview_url", previewURL,
	)
}

// OnEmailSent implements ext.EmailSent.
func (e *Extension) OnEmailSent(ctx context.Context, runID id.RunID, l *lead.Lead, messageID string) error {
	return e.record(ctx, ActionEmailSent, SeverityInfo, OutcomeSuccess,
		ResourceLead, l.ID.String(), CategoryLead, nil,
		"run_id", runID.String(),
		"business", l.BusinessName,
		"email", l.Email,
		"message_id", messageID,
	)
}

// OnEmailFailed implements ext.EmailFailed. Per-lead email failures are
// isolated from the run, so they record as warning rather than critical.
func (e *Extension) OnEmailFailed(ctx context.Context, runID id.RunID, l *lead.Lead, sendErr error) error {
	return e.record(ctx, ActionEmailFailed, SeverityWarning, OutcomeFailure,
		ResourceLead, l.ID.String(), CategoryLead, sendErr,
		"run_id", runID.String(),
		"business", l.BusinessName,
		"email", l.Email,
	)
}

// ── Quota hooks ─────────────────────────────────────

// OnQuotaWarning implements ext.QuotaWarning.
func (e *Extension) OnQuotaWarning(ctx context.Context, snap *quota.Snapshot) error {
	return e.record(ctx, ActionQuotaWarning, SeverityWarning, OutcomeSuccess,
		ResourceQuota, snap.Day, CategoryQuota, nil,
		"daily_limit", snap.DailyLimit,
		"sent_today", snap.SentToday,
		"remaining", snap.Remaining,
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
