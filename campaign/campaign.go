// Package campaign defines the run configuration for an outreach cycle:
// target industries and locations, per-run caps, qualification thresholds,
// the nightly run-hours window, and the weighted discovery schedule.
//
// A Config is resolved once per cycle (defaults < environment < explicit
// overrides), validated, and then frozen: the admitted Run carries its own
// snapshot and never observes later changes.
package campaign

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// CapPolicy decides what happens to leads still queued when the per-cycle
// email cap is reached.
type CapPolicy string

const (
	// CapPreviewOnly keeps processing leads through preview and deploy
	// but skips the email phase once the cap is hit.
	CapPreviewOnly CapPolicy = "preview_only"

	// CapStop stops dispatching further leads entirely once the cap is hit.
	CapStop CapPolicy = "stop"
)

// Config is the full configuration for one outreach cycle. Immutable once
// a cycle starts; the Run records a snapshot.
type Config struct {
	// Industries are the business verticals to discover, e.g. "plumbing".
	Industries []string `json:"industries" validate:"required,min=1"`

	// Locations are the geographic markets to discover, e.g. "austin-tx".
	Locations []string `json:"locations" validate:"required,min=1"`

	// Weights optionally repeats an industry in the schedule. Missing
	// entries default to 1; present entries must be >= 1.
	Weights map[string]int `json:"weights,omitempty"`

	// MaxLeads caps how many leads one cycle may discover.
	MaxLeads int `json:"max_leads" validate:"min=1"`

	// MaxEmails caps how many outreach emails one cycle may send. Lead
	// intake is tied to it: a cycle never discovers more leads than it
	// could email. To discover without sending, use SendEmails instead.
	MaxEmails int `json:"max_emails" validate:"min=0"`

	// ScoreThreshold is the website score (1-10) at or below which an
	// existing site counts as poor.
	ScoreThreshold int `json:"score_threshold" validate:"min=1,max=10"`

	// IncludeNoWebsite admits leads with no website at all.
	IncludeNoWebsite bool `json:"include_no_website"`

	// IncludePoorWebsite admits leads whose site scores at or below
	// ScoreThreshold.
	IncludePoorWebsite bool `json:"include_poor_website"`

	// SendEmails toggles the email phase for the whole cycle.
	SendEmails bool `json:"send_emails"`

	// DeployPreviews toggles preview deployment for the whole cycle.
	DeployPreviews bool `json:"deploy_previews"`

	// RunHours is the time-of-day window in which cycles may start.
	RunHours Hours `json:"run_hours"`

	// DelayBetweenLeads is the minimum spacing between lead starts,
	// global across the worker pool.
	DelayBetweenLeads time.Duration `json:"delay_between_leads" validate:"min=1s"`

	// MaxConcurrentLeads bounds the worker pool.
	MaxConcurrentLeads int `json:"max_concurrent_leads" validate:"min=1"`

	// OnEmailCap decides what happens to queued leads once the email cap
	// is reached mid-cycle.
	OnEmailCap CapPolicy `json:"on_email_cap" validate:"oneof=preview_only stop"`
}

// Default returns the baseline configuration. Every field passes Validate.
func Default() Config {
	return Config{
		Industries:         []string{"plumbing", "landscaping", "roofing"},
		Locations:          []string{"austin-tx"},
		MaxLeads:           20,
		MaxEmails:          10,
		ScoreThreshold:     6,
		IncludeNoWebsite:   true,
		IncludePoorWebsite: true,
		SendEmails:         true,
		DeployPreviews:     true,
		RunHours:           Hours{Start: 22, End: 6},
		DelayBetweenLeads:  2 * time.Second,
		MaxConcurrentLeads: 3,
		OnEmailCap:         CapPreviewOnly,
	}
}

// ValidationError reports an invalid Config. It is fatal for the cycle
// that carried it: the scheduler blocks the run entirely rather than
// retrying.
type ValidationError struct {
	Field string
	Rule  string
	Cause error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("campaign: invalid config field %s (%s): %v", e.Field, e.Rule, e.Cause)
	}
	return fmt.Sprintf("campaign: invalid config field %s (%s)", e.Field, e.Rule)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Validate checks the configuration. It returns a *ValidationError naming
// the first offending field, or nil.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Field: verrs[0].Field(), Rule: verrs[0].Tag(), Cause: err}
		}
		return &ValidationError{Field: "Config", Rule: "struct", Cause: err}
	}

	// Cross-field checks the tag language cannot express.
	for ind, w := range c.Weights {
		if w < 1 {
			return &ValidationError{
				Field: "Weights",
				Rule:  "min",
				Cause: fmt.Errorf("weight for %q is %d, must be >= 1", ind, w),
			}
		}
	}
	return nil
}

// Clone returns a deep copy. The pipeline snapshots the config onto the
// Run with Clone so later mutation of the caller's copy cannot leak in.
func (c Config) Clone() Config {
	out := c
	out.Industries = append([]string(nil), c.Industries...)
	out.Locations = append([]string(nil), c.Locations...)
	if c.Weights != nil {
		out.Weights = make(map[string]int, len(c.Weights))
		for k, v := range c.Weights {
			out.Weights[k] = v
		}
	}
	return out
}
