package campaign

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Overrides carries per-trigger adjustments to a Config. Nil pointer
// fields and nil slices mean "keep the resolved value"; this is how a
// manual trigger distinguishes "set SendEmails to false" from "leave it
// alone".
type Overrides struct {
	Industries         []string       `json:"industries,omitempty"`
	Locations          []string       `json:"locations,omitempty"`
	Weights            map[string]int `json:"weights,omitempty"`
	MaxLeads           *int           `json:"max_leads,omitempty"`
	MaxEmails          *int           `json:"max_emails,omitempty"`
	ScoreThreshold     *int           `json:"score_threshold,omitempty"`
	IncludeNoWebsite   *bool          `json:"include_no_website,omitempty"`
	IncludePoorWebsite *bool          `json:"include_poor_website,omitempty"`
	SendEmails         *bool          `json:"send_emails,omitempty"`
	DeployPreviews     *bool          `json:"deploy_previews,omitempty"`
	RunHours           *Hours         `json:"run_hours,omitempty"`
	DelayBetweenLeads  *time.Duration `json:"delay_between_leads,omitempty"`
	MaxConcurrentLeads *int           `json:"max_concurrent_leads,omitempty"`
	OnEmailCap         *CapPolicy     `json:"on_email_cap,omitempty"`
}

// Resolve produces the validated configuration for one cycle by merging
// defaults < environment < explicit overrides. A nil base starts from
// Default() plus FromEnv; a non-nil base (typically resolved once at
// daemon startup) skips the environment pass. Validation runs last, so a
// bad override fails here rather than mid-cycle.
func Resolve(base *Config, ov *Overrides) (*Config, error) {
	var cfg Config
	if base != nil {
		cfg = base.Clone()
	} else {
		cfg = FromEnv(Default())
	}

	if ov != nil {
		if len(ov.Industries) > 0 {
			cfg.Industries = append([]string(nil), ov.Industries...)
		}
		if len(ov.Locations) > 0 {
			cfg.Locations = append([]string(nil), ov.Locations...)
		}
		if len(ov.Weights) > 0 {
			cfg.Weights = make(map[string]int, len(ov.Weights))
			for k, v := range ov.Weights {
				cfg.Weights[k] = v
			}
		}
		if ov.MaxLeads != nil {
			cfg.MaxLeads = *ov.MaxLeads
		}
		if ov.MaxEmails != nil {
			cfg.MaxEmails = *ov.MaxEmails
		}
		if ov.ScoreThreshold != nil {
			cfg.ScoreThreshold = *ov.ScoreThreshold
		}
		if ov.IncludeNoWebsite != nil {
			cfg.IncludeNoWebsite = *ov.IncludeNoWebsite
		}
		if ov.IncludePoorWebsite != nil {
			cfg.IncludePoorWebsite = *ov.IncludePoorWebsite
		}
		if ov.SendEmails != nil {
			cfg.SendEmails = *ov.SendEmails
		}
		if ov.DeployPreviews != nil {
			cfg.DeployPreviews = *ov.DeployPreviews
		}
		if ov.RunHours != nil {
			cfg.RunHours = *ov.RunHours
		}
		if ov.DelayBetweenLeads != nil {
			cfg.DelayBetweenLeads = *ov.DelayBetweenLeads
		}
		if ov.MaxConcurrentLeads != nil {
			cfg.MaxConcurrentLeads = *ov.MaxConcurrentLeads
		}
		if ov.OnEmailCap != nil {
			cfg.OnEmailCap = *ov.OnEmailCap
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv overlays environment variables onto base. Unset or unparseable
// variables leave the base value untouched.
//
//	INDUSTRIES            comma-separated list
//	LOCATIONS             comma-separated list
//	INDUSTRY_WEIGHTS      "plumbing=3,roofing=1"
//	MAX_LEADS_PER_RUN     int
//	MAX_EMAILS_PER_RUN    int
//	SCORE_THRESHOLD       int
//	INCLUDE_NO_WEBSITE    bool
//	INCLUDE_POOR_WEBSITE  bool
//	SEND_EMAILS           bool
//	DEPLOY_PREVIEWS       bool
//	RUN_HOURS_START       int (0-23)
//	RUN_HOURS_END         int (0-23)
//	DELAY_BETWEEN_LEADS   duration ("2s")
//	MAX_CONCURRENT_LEADS  int
//	ON_EMAIL_CAP          "preview_only" | "stop"
func FromEnv(base Config) Config {
	cfg := base.Clone()

	if v := envList("INDUSTRIES"); len(v) > 0 {
		cfg.Industries = v
	}
	if v := envList("LOCATIONS"); len(v) > 0 {
		cfg.Locations = v
	}
	if v := envWeights("INDUSTRY_WEIGHTS"); len(v) > 0 {
		cfg.Weights = v
	}
	if v, ok := envInt("MAX_LEADS_PER_RUN"); ok {
		cfg.MaxLeads = v
	}
	if v, ok := envInt("MAX_EMAILS_PER_RUN"); ok {
		cfg.MaxEmails = v
	}
	if v, ok := envInt("SCORE_THRESHOLD"); ok {
		cfg.ScoreThreshold = v
	}
	if v, ok := envBool("INCLUDE_NO_WEBSITE"); ok {
		cfg.IncludeNoWebsite = v
	}
	if v, ok := envBool("INCLUDE_POOR_WEBSITE"); ok {
		cfg.IncludePoorWebsite = v
	}
	if v, ok := envBool("SEND_EMAILS"); ok {
		cfg.SendEmails = v
	}
	if v, ok := envBool("DEPLOY_PREVIEWS"); ok {
		cfg.DeployPreviews = v
	}
	if v, ok := envInt("RUN_HOURS_START"); ok {
		cfg.RunHours.Start = v
	}
	if v, ok := envInt("RUN_HOURS_END"); ok {
		cfg.RunHours.End = v
	}
	if v, ok := envDuration("DELAY_BETWEEN_LEADS"); ok {
		cfg.DelayBetweenLeads = v
	}
	if v, ok := envInt("MAX_CONCURRENT_LEADS"); ok {
		cfg.MaxConcurrentLeads = v
	}
	if v := os.Getenv("ON_EMAIL_CAP"); v != "" {
		cfg.OnEmailCap = CapPolicy(v)
	}

	return cfg
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envWeights(key string) map[string]int {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := make(map[string]int)
	for _, pair := range strings.Split(v, ",") {
		name, val, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			continue
		}
		w, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			continue
		}
		out[strings.TrimSpace(name)] = w
	}
	return out
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
