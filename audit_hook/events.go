package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle
// hook and becomes the Action field of the audit event.
const (
	ActionRunStarted       = "run.started"
	ActionRunCompleted     = "run.completed"
	ActionRunFailed        = "run.failed"
	ActionRunCancelled     = "run.cancelled"
	ActionRunSkipped       = "run.skipped"
	ActionLeadDiscovered   = "lead.discovered"
	ActionLeadQualified    = "lead.qualified"
	ActionLeadSkipped      = "lead.skipped"
	ActionPreviewGenerated = "preview.generated"
	ActionPreviewDeployed  = "preview.deployed"
	ActionEmailSent        = "email.sent"
	ActionEmailFailed      = "email.failed"
	ActionQuotaWarning     = "quota.warning"
)

// Audit event categories group related actions.
const (
	CategoryRun   = "autowebsites.run"
	CategoryLead  = "autowebsites.lead"
	CategoryQuota = "autowebsites.quota"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceRun   = "run"
	ResourceLead  = "lead"
	ResourceQuota = "email_quota"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionRunStarted,
		ActionRunCompleted,
		ActionRunFailed,
		ActionRunCancelled,
		ActionRunSkipped,
		ActionLeadDiscovered,
		ActionLeadQualified,
		ActionLeadSkipped,
		ActionPreviewGenerated,
		ActionPreviewDeployed,
		ActionEmailSent,
		ActionEmailFailed,
		ActionQuotaWarning,
	}
}
