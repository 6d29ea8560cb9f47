package amqphook

// Lifecycle event types. Each constant maps to one ext lifecycle hook
// and doubles as the routing key on the topic exchange, so consumers
// can bind with patterns like "run.*" or "email.#".
const (
	EventRunStarted       = "run.started"
	EventRunCompleted     = "run.completed"
	EventRunFailed        = "run.failed"
	EventRunCancelled     = "run.cancelled"
	EventRunSkipped       = "run.skipped"
	EventLeadDiscovered   = "lead.discovered"
	EventLeadQualified    = "lead.qualified"
	EventLeadSkipped      = "lead.skipped"
	EventPreviewGenerated = "preview.generated"
	EventPreviewDeployed  = "preview.deployed"
	EventEmailSent        = "email.sent"
	EventEmailFailed      = "email.failed"
	EventQuotaWarning     = "quota.warning"
)

// AllEvents returns every event type this extension can publish.
func AllEvents() []string {
	return []string{
		EventRunStarted,
		EventRunCompleted,
		EventRunFailed,
		EventRunCancelled,
		EventRunSkipped,
		EventLeadDiscovered,
		EventLeadQualified,
		EventLeadSkipped,
		EventPreviewGenerated,
		EventPreviewDeployed,
		EventEmailSent,
		EventEmailFailed,
		EventQuotaWarning,
	}
}
