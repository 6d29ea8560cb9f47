// Package lead defines the ephemeral types that flow through one cycle of
// the pipeline: the discovered lead, the per-lead processing result, and
// the pure qualification filter.
//
// Leads are never persisted individually; they exist for the duration of
// a single traversal and are aggregated into the owning run's stats and
// error list.
package lead

import (
	"time"

	"github.com/isethius/Autowebsites-sub001/id"
)

// Status summarizes how far a lead made it through the pipeline.
type Status string

const (
	// StatusOK means every enabled phase succeeded for this lead.
	StatusOK Status = "ok"
	// StatusPartial means at least one phase succeeded before a later
	// phase failed or was skipped.
	StatusPartial Status = "partial"
	// StatusFailed means the lead produced no usable output.
	StatusFailed Status = "failed"
	// StatusSkipped means the lead was filtered out (qualification,
	// email cap, or cancellation) rather than attempted.
	StatusSkipped Status = "skipped"
)

// Lead is one discovered business, candidate for a website preview and
// an outreach email.
type Lead struct {
	ID           id.LeadID `json:"id"`
	BusinessName string    `json:"business_name"`
	Industry     string    `json:"industry"`
	Location     string    `json:"location"`
	Website      string    `json:"website,omitempty"`
	WebsiteScore int       `json:"website_score"` // 0 = no website, else 1-10
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// New creates a Lead with a fresh ID and DiscoveredAt set to now.
func New(businessName, industry, location string) *Lead {
	return &Lead{
		ID:           id.NewLeadID(),
		BusinessName: businessName,
		Industry:     industry,
		Location:     location,
		DiscoveredAt: time.Now().UTC(),
	}
}

// HasWebsite reports whether the lead already has a site of its own.
func (l *Lead) HasWebsite() bool { return l.Website != "" }

// Result is the outcome of one lead's traversal through the pipeline.
type Result struct {
	Lead       *Lead  `json:"lead"`
	Status     Status `json:"status"`
	PreviewURL string `json:"preview_url,omitempty"`
	MessageID  string `json:"message_id,omitempty"`
	Err        error  `json:"-"`
}
