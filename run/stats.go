package run

import "time"

// Stats aggregates one run's counters. Every counter is monotonic within
// a run: the pipeline only ever increments.
type Stats struct {
	Discovered        int `json:"discovered"`
	Qualified         int `json:"qualified"`
	Skipped           int `json:"skipped"`
	PreviewsGenerated int `json:"previews_generated"`
	PreviewsDeployed  int `json:"previews_deployed"`
	EmailsSent        int `json:"emails_sent"`
	EmailsFailed      int `json:"emails_failed"`
	LeadsFailed       int `json:"leads_failed"`

	// ByIndustry and ByLocation count discovered leads per key.
	ByIndustry map[string]int `json:"by_industry,omitempty"`
	ByLocation map[string]int `json:"by_location,omitempty"`

	// PhaseDurations holds wall-clock elapsed per pipeline phase.
	PhaseDurations map[Phase]time.Duration `json:"phase_durations,omitempty"`
}

// Clone returns a deep copy.
func (s Stats) Clone() Stats {
	cp := s
	if s.ByIndustry != nil {
		cp.ByIndustry = make(map[string]int, len(s.ByIndustry))
		for k, v := range s.ByIndustry {
			cp.ByIndustry[k] = v
		}
	}
	if s.ByLocation != nil {
		cp.ByLocation = make(map[string]int, len(s.ByLocation))
		for k, v := range s.ByLocation {
			cp.ByLocation[k] = v
		}
	}
	if s.PhaseDurations != nil {
		cp.PhaseDurations = make(map[Phase]time.Duration, len(s.PhaseDurations))
		for k, v := range s.PhaseDurations {
			cp.PhaseDurations[k] = v
		}
	}
	return cp
}
