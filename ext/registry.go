package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type runStartedEntry struct {
	name string
	hook RunStarted
}

type runCompletedEntry struct {
	name string
	hook RunCompleted
}

type runFailedEntry struct {
	name string
	hook RunFailed
}

type runCancelledEntry struct {
	name string
	hook RunCancelled
}

type runSkippedEntry struct {
	name string
	hook RunSkipped
}

type leadDiscoveredEntry struct {
	name string
	hook LeadDiscovered
}

type leadQualifiedEntry struct {
	name string
	hook LeadQualified
}

type leadSkippedEntry struct {
	name string
	hook LeadSkipped
}

type previewGeneratedEntry struct {
	name string
	hook PreviewGenerated
}

type previewDeployedEntry struct {
	name string
	hook PreviewDeployed
}

type emailSentEntry struct {
	name string
	hook EmailSent
}

type emailFailedEntry struct {
	name string
	hook EmailFailed
}

type quotaWarningEntry struct {
	name string
	hook QuotaWarning
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	runStarted       []runStartedEntry
	runCompleted     []runCompletedEntry
	runFailed        []runFailedEntry
	runCancelled     []runCancelledEntry
	runSkipped       []runSkippedEntry
	leadDiscovered   []leadDiscoveredEntry
	leadQualified    []leadQualifiedEntry
	leadSkipped      []leadSkippedEntry
	previewGenerated []previewGeneratedEntry
	previewDeployed  []previewDeployedEntry
	emailSent        []emailSentEntry
	emailFailed      []emailFailedEntry
	quotaWarning     []quotaWarningEntry
	shutdown         []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(RunStarted); ok {
		r.runStarted = append(r.runStarted, runStartedEntry{name, h})
	}
	if h, ok := e.(RunCompleted); ok {
		r.runCompleted = append(r.runCompleted, runCompletedEntry{name, h})
	}
	if h, ok := e.(RunFailed); ok {
		r.runFailed = append(r.runFailed, runFailedEntry{name, h})
	}
	if h, ok := e.(RunCancelled); ok {
		r.runCancelled = append(r.runCancelled, runCancelledEntry{name, h})
	}
	if h, ok := e.(RunSkipped); ok {
		r.runSkipped = append(r.runSkipped, runSkippedEntry{name, h})
	}
	if h, ok := e.(LeadDiscovered); ok {
		r.leadDiscovered = append(r.leadDiscovered, leadDiscoveredEntry{name, h})
	}
	if h, ok := e.(LeadQualified); ok {
		r.leadQualified = append(r.leadQualified, leadQualifiedEntry{name, h})
	}
	if h, ok := e.(LeadSkipped); ok {
		r.leadSkipped = append(r.leadSkipped, leadSkippedEntry{name, h})
	}
	if h, ok := e.(PreviewGenerated); ok {
		r.previewGenerated = append(r.previewGenerated, previewGeneratedEntry{name, h})
	}
	if h, ok := e.(PreviewDeployed); ok {
		r.previewDeployed = append(r.previewDeployed, previewDeployedEntry{name, h})
	}
	if h, ok := e.(EmailSent); ok {
		r.emailSent = append(r.emailSent, emailSentEntry{name, h})
	}
	if h, ok := e.(EmailFailed); ok {
		r.emailFailed = append(r.emailFailed, emailFailedEntry{name, h})
	}
	if h, ok := e.(QuotaWarning); ok {
		r.quotaWarning = append(r.quotaWarning, quotaWarningEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Run event emitters
// ──────────────────────────────────────────────────

// EmitRunStarted notifies all extensions that implement RunStarted.
func (r *Registry) EmitRunStarted(ctx context.Context, rn *run.Run) {
	for _, e := range r.runStarted {
		if err := e.hook.OnRunStarted(ctx, rn); err != nil {
			r.logHookError("OnRunStarted", e.name, err)
		}
	}
}

// EmitRunCompleted notifies all extensions that implement RunCompleted.
func (r *Registry) EmitRunCompleted(ctx context.Context, rn *run.Run, elapsed time.Duration) {
	for _, e := range r.runCompleted {
		if err := e.hook.OnRunCompleted(ctx, rn, elapsed); err != nil {
			r.logHookError("OnRunCompleted", e.name, err)
		}
	}
}

// EmitRunFailed notifies all extensions that implement RunFailed.
func (r *Registry) EmitRunFailed(ctx context.Context, rn *run.Run, runErr error) {
	for _, e := range r.runFailed {
		if err := e.hook.OnRunFailed(ctx, rn, runErr); err != nil {
			r.logHookError("OnRunFailed", e.name, err)
		}
	}
}

// EmitRunCancelled notifies all extensions that implement RunCancelled.
func (r *Registry) EmitRunCancelled(ctx context.Context, rn *run.Run) {
	for _, e := range r.runCancelled {
		if err := e.hook.OnRunCancelled(ctx, rn); err != nil {
			r.logHookError("OnRunCancelled", e.name, err)
		}
	}
}

// EmitRunSkipped notifies all extensions that implement RunSkipped.
func (r *Registry) EmitRunSkipped(ctx context.Context, reason string) {
	for _, e := range r.runSkipped {
		if err := e.hook.OnRunSkipped(ctx, reason); err != nil {
			r.logHookError("OnRunSkipped", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Lead milestone emitters
// ──────────────────────────────────────────────────

// EmitLeadDiscovered notifies all extensions that implement LeadDiscovered.
func (r *Registry) EmitLeadDiscovered(ctx context.Context, runID id.RunID, l *lead.Lead) {
	for _, e := range r.leadDiscovered {
		if err := e.hook.OnLeadDiscovered(ctx, runID, l); err != nil {
			r.logHookError("OnLeadDiscovered", e.name, err)
		}
	}
}

// EmitLeadQualified notifies all extensions that implement LeadQualified.
func (r *Registry) EmitLeadQualified(ctx context.Context, runID id.RunID, l *lead.Lead) {
	for _, e := range r.leadQualified {
		if err := e.hook.OnLeadQualified(ctx, runID, l); err != nil {
			r.logHookError("OnLeadQualified", e.name, err)
		}
	}
}

// EmitLeadSkipped notifies all extensions that implement LeadSkipped.
func (r *Registry) EmitLeadSkipped(ctx context.Context, runID id.RunID, l *lead.Lead, reason string) {
	for _, e := range r.leadSkipped {
		if err := e.hook.OnLeadSkipped(ctx, runID, l, reason); err != nil {
			r.logHookError("OnLeadSkipped", e.name, err)
		}
	}
}

// EmitPreviewGenerated notifies all extensions that implement PreviewGenerated.
func (r *Registry) EmitPreviewGenerated(ctx context.Context, runID id.RunID, l *lead.Lead) {
	for _, e := range r.previewGenerated {
		if err := e.hook.OnPreviewGenerated(ctx, runID, l); err != nil {
			r.logHookError("OnPreviewGenerated", e.name, err)
		}
	}
}

// EmitPreviewDeployed notifies all extensions that implement PreviewDeployed.
func (r *Registry) EmitPreviewDeployed(ctx context.Context, runID id.RunID, l *lead.Lead, previewURL string) {
	for _, e := range r.previewDeployed {
		if err := e.hook.OnPreviewDeployed(ctx, runID, l, previewURL); err != nil {
			r.logHookError("OnPreviewDeployed", e.name, err)
		}
	}
}

// EmitEmailSent notifies all extensions that implement EmailSent.
func (r *Registry) EmitEmailSent(ctx context.Context, runID id.RunID, l *lead.Lead, messageID string) {
	for _, e := range r.emailSent {
		if err := e.hook.OnEmailSent(ctx, runID, l, messageID); err != nil {
			r.logHookError("OnEmailSent", e.name, err)
		}
	}
}

// EmitEmailFailed notifies all extensions that implement EmailFailed.
func (r *Registry) EmitEmailFailed(ctx context.Context, runID id.RunID, l *lead.Lead, sendErr error) {
	for _, e := range r.emailFailed {
		if err := e.hook.OnEmailFailed(ctx, runID, l, sendErr); err != nil {
			r.logHookError("OnEmailFailed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitQuotaWarning notifies all extensions that implement QuotaWarning.
func (r *Registry) EmitQuotaWarning(ctx context.Context, snap *quota.Snapshot) {
	for _, e := range r.quotaWarning {
		if err := e.hook.OnQuotaWarning(ctx, snap); err != nil {
			r.logHookError("OnQuotaWarning", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not affect the run.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
