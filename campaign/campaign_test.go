package campaign_test

import (
	"errors"
	"testing"
	"time"

	"github.com/isethius/Autowebsites-sub001/campaign"
)

func TestDefault_Validates(t *testing.T) {
	cfg := campaign.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() should validate, got %v", err)
	}
}

func TestValidate_RejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*campaign.Config)
	}{
		{"empty industries", func(c *campaign.Config) { c.Industries = nil }},
		{"empty locations", func(c *campaign.Config) { c.Locations = nil }},
		{"max leads zero", func(c *campaign.Config) { c.MaxLeads = 0 }},
		{"max emails negative", func(c *campaign.Config) { c.MaxEmails = -1 }},
		{"score threshold too low", func(c *campaign.Config) { c.ScoreThreshold = 0 }},
		{"score threshold too high", func(c *campaign.Config) { c.ScoreThreshold = 11 }},
		{"delay under a second", func(c *campaign.Config) { c.DelayBetweenLeads = 500 * time.Millisecond }},
		{"concurrency zero", func(c *campaign.Config) { c.MaxConcurrentLeads = 0 }},
		{"hours start out of range", func(c *campaign.Config) { c.RunHours.Start = 24 }},
		{"hours end negative", func(c *campaign.Config) { c.RunHours.End = -1 }},
		{"unknown cap policy", func(c *campaign.Config) { c.OnEmailCap = "halt" }},
		{"zero weight", func(c *campaign.Config) { c.Weights = map[string]int{"plumbing": 0} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := campaign.Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			var verr *campaign.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestValidate_MaxEmailsZeroAllowed(t *testing.T) {
	cfg := campaign.Default()
	cfg.MaxEmails = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("MaxEmails=0 should be allowed (sends disabled), got %v", err)
	}
}

func TestValidationError_NamesField(t *testing.T) {
	cfg := campaign.Default()
	cfg.MaxLeads = 0

	err := cfg.Validate()
	var verr *campaign.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Field != "MaxLeads" {
		t.Errorf("Field = %q, want %q", verr.Field, "MaxLeads")
	}
}

func TestClone_Independent(t *testing.T) {
	orig := campaign.Default()
	orig.Weights = map[string]int{"plumbing": 2}

	cp := orig.Clone()
	cp.Industries[0] = "mutated"
	cp.Locations[0] = "mutated"
	cp.Weights["plumbing"] = 99

	if orig.Industries[0] == "mutated" {
		t.Error("Clone shares the Industries slice")
	}
	if orig.Locations[0] == "mutated" {
		t.Error("Clone shares the Locations slice")
	}
	if orig.Weights["plumbing"] != 2 {
		t.Error("Clone shares the Weights map")
	}
}
