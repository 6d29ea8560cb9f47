// Package quota tracks daily usage counters and answers the admission
// question "how much capacity is left today".
//
// Counters roll over at the UTC day boundary. A Snapshot is a
// point-in-time read, never a reservation: two instances can both read
// Remaining > 0 before either sends, which is acceptable because the
// distributed lock, not the quota check, is the authoritative admission
// gate.
package quota

import "time"

// Kind names a daily usage counter.
type Kind string

const (
	// KindEmails counts outreach emails sent.
	KindEmails Kind = "emails"
	// KindDeploys counts preview deployments.
	KindDeploys Kind = "deploys"
	// KindLeads counts leads processed.
	KindLeads Kind = "leads"
	// KindAICalls counts content-generation calls.
	KindAICalls Kind = "ai_calls"
)

// DayKey formats t's UTC date as the storage key for daily counters.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Snapshot is a point-in-time view of today's usage.
type Snapshot struct {
	// Day is the UTC date the counters belong to, formatted YYYY-MM-DD.
	Day string `json:"day"`

	DailyLimit int `json:"daily_limit"`
	SentToday  int `json:"sent_today"`

	// Remaining is max(0, DailyLimit - SentToday).
	Remaining int `json:"remaining"`

	DeploysToday int `json:"deploys_today"`
	LeadsToday   int `json:"leads_today"`
	AICallsToday int `json:"ai_calls_today"`
}

// Exhausted reports whether no email capacity is left today.
func (s *Snapshot) Exhausted() bool { return s.Remaining <= 0 }
