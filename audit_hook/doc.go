// Package audithook is an extension that bridges lifecycle events to an
// append-only audit trail backend.
//
// Every run, lead, and quota lifecycle hook emits a structured audit
// event through the [Recorder] interface. The extension assigns
// appropriate severity levels (info for normal operations, warning for
// cancellations and per-lead email failures, critical for run failures)
// and rich metadata (trigger, business name, elapsed time, errors).
//
// # Usage
//
//	audithook.New(audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    return auditClient.Write(ctx, evt.Action, evt.Resource, evt.ResourceID, evt.Metadata)
//	}))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionRunFailed,
//	        audithook.ActionEmailSent,
//	        audithook.ActionEmailFailed,
//	    ),
//	)
package audithook
