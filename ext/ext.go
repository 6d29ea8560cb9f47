package ext

import (
	"context"
	"time"

	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Run lifecycle hooks
// ──────────────────────────────────────────────────

// RunStarted is called when a cycle passes every gate and begins.
type RunStarted interface {
	OnRunStarted(ctx context.Context, r *run.Run) error
}

// RunCompleted is called after a cycle finishes all phases, regardless
// of individual lead failures.
type RunCompleted interface {
	OnRunCompleted(ctx context.Context, r *run.Run, elapsed time.Duration) error
}

// RunFailed is called when a non-isolated error escapes the pipeline.
type RunFailed interface {
	OnRunFailed(ctx context.Context, r *run.Run, err error) error
}

// RunCancelled is called when a cycle observes the cooperative cancel
// flag and stops.
type RunCancelled interface {
	OnRunCancelled(ctx context.Context, r *run.Run) error
}

// RunSkipped is called when a trigger fires but a gate refuses
// admission. The reason names the gate: "already_running",
// "outside_hours", "quota_exhausted", or "locked".
type RunSkipped interface {
	OnRunSkipped(ctx context.Context, reason string) error
}

// ──────────────────────────────────────────────────
// Lead milestone hooks
// ──────────────────────────────────────────────────

// LeadDiscovered is called for each candidate discovery produces.
type LeadDiscovered interface {
	OnLeadDiscovered(ctx context.Context, runID id.RunID, l *lead.Lead) error
}

// LeadQualified is called when a lead passes the qualification filter.
type LeadQualified interface {
	OnLeadQualified(ctx context.Context, runID id.RunID, l *lead.Lead) error
}

// LeadSkipped is called when a lead is filtered out or capped. The
// reason names the cause, e.g. "unqualified" or "email_cap".
type LeadSkipped interface {
	OnLeadSkipped(ctx context.Context, runID id.RunID, l *lead.Lead, reason string) error
}

// PreviewGenerated is called when preview content is ready for a lead.
type PreviewGenerated interface {
	OnPreviewGenerated(ctx context.Context, runID id.RunID, l *lead.Lead) error
}

// PreviewDeployed is called when a lead's preview is live.
type PreviewDeployed interface {
	OnPreviewDeployed(ctx context.Context, runID id.RunID, l *lead.Lead, previewURL string) error
}

// EmailSent is called when the provider accepts an outreach email.
type EmailSent interface {
	OnEmailSent(ctx context.Context, runID id.RunID, l *lead.Lead, messageID string) error
}

// EmailFailed is called when an outreach email is attempted and fails.
type EmailFailed interface {
	OnEmailFailed(ctx context.Context, runID id.RunID, l *lead.Lead, err error) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// QuotaWarning is called when remaining daily capacity is running low.
type QuotaWarning interface {
	OnQuotaWarning(ctx context.Context, snap *quota.Snapshot) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
