package campaign

// Limits are the effective per-cycle caps after quota admission: the
// smaller of each configured cap and what today's quota still allows.
type Limits struct {
	MaxLeads  int `json:"max_leads"`
	MaxEmails int `json:"max_emails"`
}

// EffectiveLimits ties lead intake to sendable capacity: MaxEmails is
// min(cfg.MaxEmails, remaining) and MaxLeads is min(cfg.MaxLeads,
// MaxEmails), so a cycle never discovers more than it can act on.
func EffectiveLimits(cfg Config, remaining int) Limits {
	emails := min(cfg.MaxEmails, remaining)
	return Limits{
		MaxLeads:  min(cfg.MaxLeads, emails),
		MaxEmails: emails,
	}
}
