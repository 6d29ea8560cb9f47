// Package ext defines the extension system for the orchestrator.
//
// Extensions are notified of lifecycle events and can react to them —
// recording metrics, publishing to a message bus, writing audit logs,
// feeding a dashboard. Each lifecycle hook is a separate interface so
// extensions opt in only to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnEmailSent(ctx context.Context, runID id.RunID, l *lead.Lead, messageID string) error {
//	    log.Printf("emailed %s (%s)", l.BusinessName, messageID)
//	    return nil
//	}
//
// # Run Lifecycle Hooks
//
//   - [RunStarted] — a cycle passed every gate and began executing
//   - [RunCompleted] — the cycle finished; per-lead failures included
//   - [RunFailed] — a non-isolated error escaped the pipeline
//   - [RunCancelled] — the cooperative cancel flag was observed
//   - [RunSkipped] — a trigger fired but a gate refused admission
//
// # Lead Milestone Hooks
//
//   - [LeadDiscovered] — discovery produced a candidate
//   - [LeadQualified] — the lead passed the qualification filter
//   - [LeadSkipped] — the lead was filtered out or capped
//   - [PreviewGenerated] — preview content was generated
//   - [PreviewDeployed] — the preview is live at a URL
//   - [EmailSent] — outreach email accepted by the provider
//   - [EmailFailed] — outreach email was attempted and failed
//
// # Other Hooks
//
//   - [QuotaWarning] — today's remaining capacity is running low
//   - [Shutdown] — the orchestrator is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface. Hook errors are logged and
// never propagated: event delivery is strictly best-effort and must not
// affect run outcome.
package ext
