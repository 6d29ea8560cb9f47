package pipeline

import (
	"sync"
	"time"

	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/run"
)

// collector aggregates per-lead outcomes from concurrent workers into
// run stats. One mutex guards the counters, breakdown maps, and the
// error list; the hot email-cap check lives on an atomic in the
// execution, not here.
type collector struct {
	mu     sync.Mutex
	stats  run.Stats
	errors []run.Error
}

func newCollector() *collector {
	return &collector{
		stats: run.Stats{
			ByIndustry:     make(map[string]int),
			ByLocation:     make(map[string]int),
			PhaseDurations: make(map[run.Phase]time.Duration),
		},
	}
}

func (c *collector) leadDiscovered(industry, location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Discovered++
	c.stats.ByIndustry[industry]++
	c.stats.ByLocation[location]++
}

func (c *collector) leadQualified() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Qualified++
}

func (c *collector) leadSkipped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Skipped++
}

func (c *collector) previewGenerated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.PreviewsGenerated++
}

func (c *collector) previewDeployed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.PreviewsDeployed++
}

func (c *collector) emailSent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.EmailsSent++
}

func (c *collector) emailFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.EmailsFailed++
}

func (c *collector) leadFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.LeadsFailed++
}

// phaseElapsed adds d to the accumulated wall-clock time for phase.
// Workers time each phase independently, so the totals reflect summed
// effort across the pool, not the cycle's wall-clock span.
func (c *collector) phaseElapsed(phase run.Phase, d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.PhaseDurations[phase] += d
}

// recordError appends a phase-tagged error. Pass id.Nil for errors not
// scoped to a single lead.
func (c *collector) recordError(at time.Time, phase run.Phase, leadID id.LeadID, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, run.Error{
		At:      at.UTC(),
		Phase:   phase,
		LeadID:  leadID,
		Message: msg,
	})
}

// snapshot returns deep copies safe to hand to the run record while
// workers may still be appending.
func (c *collector) snapshot() (run.Stats, []run.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []run.Error
	if c.errors != nil {
		errs = append([]run.Error(nil), c.errors...)
	}
	return c.stats.Clone(), errs
}
