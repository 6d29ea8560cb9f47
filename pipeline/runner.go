package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/isethius/Autowebsites-sub001/backoff"
	"github.com/isethius/Autowebsites-sub001/campaign"
	"github.com/isethius/Autowebsites-sub001/clock"
	"github.com/isethius/Autowebsites-sub001/discovery"
	"github.com/isethius/Autowebsites-sub001/ext"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/middleware"
	"github.com/isethius/Autowebsites-sub001/outreach"
	"github.com/isethius/Autowebsites-sub001/preview"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
)

// defaultLeadTimeout bounds one lead's full pass through preview,
// deploy, and email when no explicit timeout is configured.
const defaultLeadTimeout = 2 * time.Minute

// Runner executes admitted cycles. It owns no lifecycle state of its
// own: the scheduler creates the Run, calls Execute, and applies the
// terminal transition from the returned outcome.
type Runner struct {
	source     discovery.Source
	generator  preview.Generator
	deployer   preview.Deployer
	composer   outreach.Composer
	sender     outreach.Sender
	extensions *ext.Registry
	quotas     *quota.Provider
	runs       run.Store
	retry      backoff.Policy
	mw         middleware.Middleware
	clock      clock.Clock
	logger     *slog.Logger

	leadTimeout time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithQuota sets the provider used to record daily usage counters.
// Without one, counters are simply not recorded.
func WithQuota(p *quota.Provider) RunnerOption {
	return func(r *Runner) { r.quotas = p }
}

// WithRunStore enables best-effort run checkpoints between phases so
// readers see discovery and qualification counts before the cycle ends.
func WithRunStore(s run.Store) RunnerOption {
	return func(r *Runner) { r.runs = s }
}

// WithRetryPolicy sets the retry policy for discovery source calls.
func WithRetryPolicy(p backoff.Policy) RunnerOption {
	return func(r *Runner) { r.retry = p }
}

// WithMiddleware replaces the default per-lead middleware chain.
func WithMiddleware(mws ...middleware.Middleware) RunnerOption {
	return func(r *Runner) { r.mw = middleware.Chain(mws...) }
}

// WithClock overrides the wall clock, for tests.
func WithClock(c clock.Clock) RunnerOption {
	return func(r *Runner) { r.clock = c }
}

// WithLeadTimeout bounds each lead's full pipeline pass. Zero disables
// the per-lead deadline.
func WithLeadTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.leadTimeout = d }
}

// NewRunner creates a Runner over the given collaborators.
//
// Nil collaborators disable their phase: a nil generator skips preview
// generation, a nil deployer skips deployment, and a nil composer or
// sender skips email. This lets dry-run wiring omit adapters instead of
// stubbing them.
func NewRunner(
	source discovery.Source,
	generator preview.Generator,
	deployer preview.Deployer,
	composer outreach.Composer,
	sender outreach.Sender,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...RunnerOption,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if extensions == nil {
		extensions = ext.NewRegistry(logger)
	}
	r := &Runner{
		source:      source,
		generator:   generator,
		deployer:    deployer,
		composer:    composer,
		sender:      sender,
		extensions:  extensions,
		retry:       backoff.Policy{Attempts: 2},
		clock:       clock.System(),
		logger:      logger,
		leadTimeout: defaultLeadTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.mw == nil {
		r.mw = middleware.Chain(
			middleware.Recover(r.logger),
			middleware.RunContext(),
			middleware.Logging(r.logger),
			middleware.Timeout(r.logger),
		)
	}
	return r
}

// Outcome summarizes one executed cycle.
type Outcome struct {
	// Cancelled reports that the cooperative flag or the context stopped
	// the cycle before every lead was processed.
	Cancelled bool

	// Results holds one entry per qualified lead, in completion order.
	Results []*lead.Result
}

// Execute runs one cycle: discovery over the schedule, qualification,
// and concurrent lead processing, then writes the aggregated stats and
// error list onto rn. The caller owns rn's lifecycle transitions; a
// non-nil error means a non-isolated failure and the run should be
// marked failed.
func (r *Runner) Execute(ctx context.Context, rn *run.Run, limits campaign.Limits, schedule []campaign.Pair, cancel *CancelFlag) (*Outcome, error) {
	if r.source == nil {
		return nil, errors.New("pipeline: no discovery source configured")
	}

	e := &execution{
		Runner:  r,
		run:     rn,
		limits:  limits,
		cancel:  cancel,
		col:     newCollector(),
		limiter: rate.NewLimiter(rate.Every(rn.Config.DelayBetweenLeads), 1),
	}

	r.logger.Info("cycle started",
		slog.String("run_id", rn.ID.String()),
		slog.String("trigger", string(rn.Trigger)),
		slog.Int("schedule_pairs", len(schedule)),
		slog.Int("max_leads", limits.MaxLeads),
		slog.Int("max_emails", limits.MaxEmails),
	)

	leads := e.discover(ctx, schedule)
	e.checkpoint(ctx)

	if !e.interrupted.Load() {
		qualified := e.qualify(ctx, leads)
		e.checkpoint(ctx)

		if !e.interrupted.Load() {
			e.process(ctx, qualified)
		}
	}

	stats, errs := e.col.snapshot()
	rn.Stats = stats
	rn.Errors = errs

	out := &Outcome{
		Cancelled: e.interrupted.Load(),
		Results:   e.results,
	}

	r.logger.Info("cycle finished",
		slog.String("run_id", rn.ID.String()),
		slog.Int("discovered", stats.Discovered),
		slog.Int("qualified", stats.Qualified),
		slog.Int("skipped", stats.Skipped),
		slog.Int("previews_generated", stats.PreviewsGenerated),
		slog.Int("previews_deployed", stats.PreviewsDeployed),
		slog.Int("emails_sent", stats.EmailsSent),
		slog.Int("emails_failed", stats.EmailsFailed),
		slog.Int("leads_failed", stats.LeadsFailed),
		slog.Bool("cancelled", out.Cancelled),
	)
	return out, nil
}

// execution is the per-cycle state shared between the feeder and the
// worker pool.
type execution struct {
	*Runner

	run     *run.Run
	limits  campaign.Limits
	cancel  *CancelFlag
	col     *collector
	limiter *rate.Limiter

	// emailsReserved counts claimed email slots against the cycle cap.
	// A claim is consumed by the attempt whether or not the send
	// succeeds.
	emailsReserved atomic.Int64

	// capHit gates the one-time cap log and stop-policy switch.
	capHit atomic.Bool

	// stopped halts further dispatch under the stop cap policy.
	stopped atomic.Bool

	// interrupted records that cancellation was observed at a checkpoint
	// before all work completed.
	interrupted atomic.Bool

	resMu   sync.Mutex
	results []*lead.Result
}

// cancelRequested reports whether the cycle should wind down, and
// latches the interruption so the outcome reflects it.
func (e *execution) cancelRequested(ctx context.Context) bool {
	if ctx.Err() == nil && !e.cancel.Cancelled() {
		return false
	}
	e.interrupted.Store(true)
	return true
}

func (e *execution) addResult(res *lead.Result) {
	e.resMu.Lock()
	defer e.resMu.Unlock()
	e.results = append(e.results, res)
}

// ──────────────────────────────────────────────────
// Phase 1: discovery
// ──────────────────────────────────────────────────

func (e *execution) discover(ctx context.Context, schedule []campaign.Pair) []*lead.Lead {
	start := e.clock.Now()
	defer func() {
		e.col.phaseElapsed(run.PhaseDiscovery, e.clock.Now().Sub(start))
	}()

	seen := make(map[string]struct{})
	var leads []*lead.Lead
	for _, pair := range schedule {
		if len(leads) >= e.limits.MaxLeads {
			break
		}
		if e.cancelRequested(ctx) {
			break
		}

		batch, err := e.discoverPair(ctx, pair, e.limits.MaxLeads-len(leads))
		if err != nil {
			e.col.recordError(e.clock.Now(), run.PhaseDiscovery, id.Nil,
				fmt.Sprintf("%s in %s: %v", pair.Industry, pair.Location, err))
			e.logger.Warn("discovery failed for pair",
				slog.String("run_id", e.run.ID.String()),
				slog.String("industry", pair.Industry),
				slog.String("location", pair.Location),
				"error", err)
			continue
		}

		for _, l := range batch {
			if len(leads) >= e.limits.MaxLeads {
				break
			}
			// Weighted schedules revisit pairs, so the same business can
			// surface more than once.
			key := l.BusinessName + "|" + pair.Location
			if _, dup := seen[key]; dup {
				e.logger.Debug("duplicate lead dropped",
					slog.String("business", l.BusinessName),
					slog.String("location", pair.Location))
				continue
			}
			seen[key] = struct{}{}

			leads = append(leads, l)
			e.col.leadDiscovered(pair.Industry, pair.Location)
			e.extensions.EmitLeadDiscovered(ctx, e.run.ID, l)
		}
	}

	if e.quotas != nil {
		e.quotas.Record(ctx, quota.KindLeads, len(leads))
	}
	return leads
}

func (e *execution) discoverPair(ctx context.Context, p campaign.Pair, limit int) ([]*lead.Lead, error) {
	var batch []*lead.Lead
	err := e.retry.Do(ctx, func() error {
		var derr error
		batch, derr = e.source.Discover(ctx, p.Industry, p.Location, limit)
		return derr
	})
	return batch, err
}

// ──────────────────────────────────────────────────
// Phase 2: qualification
// ──────────────────────────────────────────────────

func (e *execution) qualify(ctx context.Context, leads []*lead.Lead) []*lead.Lead {
	start := e.clock.Now()
	defer func() {
		e.col.phaseElapsed(run.PhaseQualify, e.clock.Now().Sub(start))
	}()

	qualified := make([]*lead.Lead, 0, len(leads))
	for _, l := range leads {
		if lead.Qualify(l, e.run.Config) {
			qualified = append(qualified, l)
			e.col.leadQualified()
			e.extensions.EmitLeadQualified(ctx, e.run.ID, l)
			continue
		}
		e.col.leadSkipped()
		e.extensions.EmitLeadSkipped(ctx, e.run.ID, l, "unqualified")
		e.logger.Debug("lead skipped",
			slog.String("run_id", e.run.ID.String()),
			slog.String("business", l.BusinessName),
			slog.String("reason", "unqualified"))
	}
	return qualified
}

// ──────────────────────────────────────────────────
// Phase 3: preview, deploy, email on the worker pool
// ──────────────────────────────────────────────────

func (e *execution) process(ctx context.Context, qualified []*lead.Lead) {
	if len(qualified) == 0 {
		return
	}

	workers := e.run.Config.MaxConcurrentLeads
	if workers < 1 {
		workers = 1
	}
	if workers > len(qualified) {
		workers = len(qualified)
	}

	leadCh := make(chan *lead.Lead)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, leadCh)
		}()
	}

	dispatched := 0
feed:
	for _, l := range qualified {
		if e.cancelRequested(ctx) || e.stopped.Load() {
			break
		}
		select {
		case leadCh <- l:
			dispatched++
		case <-ctx.Done():
			e.interrupted.Store(true)
			break feed
		}
	}
	close(leadCh)
	wg.Wait()

	// Leads never dispatched were either capped out under the stop
	// policy or abandoned on cancellation.
	reason := "email_cap"
	if e.interrupted.Load() {
		reason = "cancelled"
	}
	for _, l := range qualified[dispatched:] {
		e.skipLead(ctx, l, reason)
	}
}

func (e *execution) worker(ctx context.Context, leadCh <-chan *lead.Lead) {
	for l := range leadCh {
		if e.cancelRequested(ctx) {
			e.skipLead(ctx, l, "cancelled")
			continue
		}
		if e.stopped.Load() {
			e.skipLead(ctx, l, "email_cap")
			continue
		}
		if err := e.limiter.Wait(ctx); err != nil {
			e.interrupted.Store(true)
			e.skipLead(ctx, l, "cancelled")
			continue
		}
		e.processLead(ctx, l)
	}
}

func (e *execution) skipLead(ctx context.Context, l *lead.Lead, reason string) {
	e.col.leadSkipped()
	e.extensions.EmitLeadSkipped(ctx, e.run.ID, l, reason)
	e.addResult(&lead.Result{Lead: l, Status: lead.StatusSkipped})
}

// processLead runs one lead through the middleware chain and the
// enabled phases. All phase failures are absorbed into the result and
// the run's error list; only an error the phases never saw (a recovered
// panic, a deadline tripping between calls) reaches the outer handler.
func (e *execution) processLead(ctx context.Context, l *lead.Lead) {
	res := &lead.Result{Lead: l, Status: lead.StatusOK}
	task := &middleware.Task{RunID: e.run.ID, Lead: l, Timeout: e.leadTimeout}

	err := e.mw(ctx, task, func(ctx context.Context) error {
		return e.runPhases(ctx, l, res)
	})
	if err != nil && res.Err == nil {
		res.Status = lead.StatusFailed
		res.Err = err
		e.col.recordError(e.clock.Now(), run.PhaseOther, l.ID, err.Error())
	}
	if res.Err != nil {
		e.col.leadFailed()
	}
	e.addResult(res)
}

// runPhases executes preview, deploy, and email for one lead. It
// records phase-tagged errors itself and returns the failure so the
// middleware chain observes it.
func (e *execution) runPhases(ctx context.Context, l *lead.Lead, res *lead.Result) error {
	cfg := e.run.Config
	produced := false

	if e.generator != nil {
		start := e.clock.Now()
		content, err := e.generator.Generate(ctx, l)
		e.col.phaseElapsed(run.PhasePreview, e.clock.Now().Sub(start))
		if e.quotas != nil {
			e.quotas.Record(ctx, quota.KindAICalls, 1)
		}
		if err != nil {
			res.Status = lead.StatusFailed
			res.Err = err
			e.col.recordError(e.clock.Now(), run.PhasePreview, l.ID, err.Error())
			e.logger.Warn("preview generation failed",
				slog.String("run_id", e.run.ID.String()),
				slog.String("lead_id", l.ID.String()),
				slog.String("business", l.BusinessName),
				"error", err)
			return fmt.Errorf("preview: %w", err)
		}
		produced = true
		e.col.previewGenerated()
		e.extensions.EmitPreviewGenerated(ctx, e.run.ID, l)

		if cfg.DeployPreviews && e.deployer != nil {
			start = e.clock.Now()
			url, err := e.deployer.Deploy(ctx, l, content)
			e.col.phaseElapsed(run.PhaseDeploy, e.clock.Now().Sub(start))
			if err != nil {
				res.Status = lead.StatusPartial
				res.Err = err
				e.col.recordError(e.clock.Now(), run.PhaseDeploy, l.ID, err.Error())
				e.logger.Warn("preview deploy failed",
					slog.String("run_id", e.run.ID.String()),
					slog.String("lead_id", l.ID.String()),
					slog.String("business", l.BusinessName),
					"error", err)
				return fmt.Errorf("deploy: %w", err)
			}
			res.PreviewURL = url
			e.col.previewDeployed()
			if e.quotas != nil {
				e.quotas.Record(ctx, quota.KindDeploys, 1)
			}
			e.extensions.EmitPreviewDeployed(ctx, e.run.ID, l, url)
		}
	}

	if !cfg.SendEmails || e.composer == nil || e.sender == nil {
		return nil
	}
	if l.Email == "" {
		if produced {
			res.Status = lead.StatusPartial
		} else {
			res.Status = lead.StatusSkipped
		}
		e.logger.Debug("lead has no email address",
			slog.String("run_id", e.run.ID.String()),
			slog.String("business", l.BusinessName))
		return nil
	}
	if !e.reserveEmail() {
		if e.capHit.CompareAndSwap(false, true) {
			e.logger.Info("email cap reached",
				slog.String("run_id", e.run.ID.String()),
				slog.Int("cap", e.limits.MaxEmails),
				slog.String("policy", string(cfg.OnEmailCap)))
			if cfg.OnEmailCap == campaign.CapStop {
				e.stopped.Store(true)
			}
		}
		if produced {
			res.Status = lead.StatusPartial
		} else {
			res.Status = lead.StatusSkipped
		}
		e.extensions.EmitLeadSkipped(ctx, e.run.ID, l, "email_cap")
		return nil
	}

	start := e.clock.Now()
	msg, err := e.composer.Compose(ctx, l, res.PreviewURL)
	if err != nil {
		e.col.phaseElapsed(run.PhaseEmail, e.clock.Now().Sub(start))
		return e.emailFailed(ctx, l, res, produced, err)
	}
	messageID, err := e.sender.Send(ctx, l, msg)
	e.col.phaseElapsed(run.PhaseEmail, e.clock.Now().Sub(start))
	if err != nil {
		return e.emailFailed(ctx, l, res, produced, err)
	}

	res.MessageID = messageID
	e.col.emailSent()
	if e.quotas != nil {
		e.quotas.Record(ctx, quota.KindEmails, 1)
	}
	e.extensions.EmitEmailSent(ctx, e.run.ID, l, messageID)
	e.logger.Info("outreach email sent",
		slog.String("run_id", e.run.ID.String()),
		slog.String("lead_id", l.ID.String()),
		slog.String("business", l.BusinessName),
		slog.String("message_id", messageID))
	return nil
}

func (e *execution) emailFailed(ctx context.Context, l *lead.Lead, res *lead.Result, produced bool, err error) error {
	if produced {
		res.Status = lead.StatusPartial
	} else {
		res.Status = lead.StatusFailed
	}
	res.Err = err
	e.col.emailFailed()
	e.col.recordError(e.clock.Now(), run.PhaseEmail, l.ID, err.Error())
	e.extensions.EmitEmailFailed(ctx, e.run.ID, l, err)
	e.logger.Warn("outreach email failed",
		slog.String("run_id", e.run.ID.String()),
		slog.String("lead_id", l.ID.String()),
		slog.String("business", l.BusinessName),
		"error", err)
	return fmt.Errorf("email: %w", err)
}

// reserveEmail claims one slot against the cycle's email cap.
func (e *execution) reserveEmail() bool {
	for {
		cur := e.emailsReserved.Load()
		if cur >= int64(e.limits.MaxEmails) {
			return false
		}
		if e.emailsReserved.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// checkpoint best-effort persists the run's counters between phases.
// The final persistence with the terminal state belongs to the caller.
func (e *execution) checkpoint(ctx context.Context) {
	if e.runs == nil {
		return
	}
	stats, errs := e.col.snapshot()
	e.run.Stats = stats
	e.run.Errors = errs
	if err := e.runs.UpdateRun(ctx, e.run); err != nil {
		e.logger.Warn("run checkpoint failed",
			slog.String("run_id", e.run.ID.String()),
			"error", err)
	}
}
