package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/isethius/Autowebsites-sub001/campaign"
	"github.com/isethius/Autowebsites-sub001/clock"
	"github.com/isethius/Autowebsites-sub001/cluster"
	"github.com/isethius/Autowebsites-sub001/ext"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/lock"
	"github.com/isethius/Autowebsites-sub001/pipeline"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
)

// Outcome classifies the immediate answer to a cycle attempt.
type Outcome string

const (
	// OutcomeStarted means a Run was created and is executing.
	OutcomeStarted Outcome = "started"
	// OutcomeAlreadyRunning means this process is mid-cycle.
	OutcomeAlreadyRunning Outcome = "already_running"
	// OutcomeOutsideHours means the current hour falls outside RunHours.
	OutcomeOutsideHours Outcome = "outside_hours"
	// OutcomeQuotaExhausted means today's email quota is spent.
	OutcomeQuotaExhausted Outcome = "quota_exhausted"
	// OutcomeLocked means another instance holds the cycle lock.
	OutcomeLocked Outcome = "locked"
	// OutcomeInvalid means the config failed validation or a gate could
	// not be evaluated; Err carries the cause.
	OutcomeInvalid Outcome = "invalid"
)

// Ack is the immediate answer to a trigger attempt. Started acks carry
// the new Run's id; already-running acks carry the active Run's id.
// The cycle itself continues in the background — callers poll the Run
// record for its eventual result.
type Ack struct {
	RunID   id.RunID `json:"run_id"`
	Outcome Outcome  `json:"outcome"`
	Err     error    `json:"-"`
}

// Status is a read-only snapshot of the scheduler.
type Status struct {
	// Scheduled reports whether a trigger is armed.
	Scheduled bool `json:"scheduled"`
	// Running reports whether a cycle is executing right now.
	Running     bool            `json:"running"`
	NextFire    *time.Time      `json:"next_fire,omitempty"`
	ActiveRunID id.RunID        `json:"active_run_id"`
	LastRunID   id.RunID        `json:"last_run_id"`
	Config      campaign.Config `json:"config"`
}

// Executor runs one admitted cycle. *pipeline.Runner is the production
// implementation.
type Executor interface {
	Execute(ctx context.Context, rn *run.Run, limits campaign.Limits, schedule []campaign.Pair, cancel *pipeline.CancelFlag) (*pipeline.Outcome, error)
}

// Scheduler admits and supervises outreach cycles. One Scheduler per
// process; the distributed lock arbitrates between processes.
type Scheduler struct {
	executor   Executor
	runs       run.Store
	quotas     *quota.Provider
	locks      *lock.Manager
	extensions *ext.Registry
	base       campaign.Config
	logger     *slog.Logger

	trigger   Trigger
	registrar *cluster.Registrar
	clock     clock.Clock

	// rng seeds each cycle's schedule shuffle. Attempts are serialized
	// by the busy mutex, so unsynchronized use is safe.
	rng *rand.Rand

	lockName      string
	lockTTL       time.Duration
	warnThreshold int

	// busy is gate 1: held for the whole cycle, TryLock refuses overlap.
	busy sync.Mutex

	mu        sync.Mutex
	started   bool
	active    *activeCycle
	lastRunID id.RunID

	wg sync.WaitGroup
}

type activeCycle struct {
	runID  id.RunID
	cancel *pipeline.CancelFlag
	done   chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTrigger arms t on Start. Without a trigger the scheduler only
// runs on explicit TriggerNow calls.
func WithTrigger(t Trigger) SchedulerOption {
	return func(s *Scheduler) { s.trigger = t }
}

// WithRegistrar registers the instance on Start and deregisters it on
// Stop.
func WithRegistrar(r *cluster.Registrar) SchedulerOption {
	return func(s *Scheduler) { s.registrar = r }
}

// WithLockName sets the distributed-lock key guarding the cycle. Every
// instance that should exclude the others must use the same name.
func WithLockName(name string) SchedulerOption {
	return func(s *Scheduler) { s.lockName = name }
}

// WithLockTTL sets the lease TTL. The lease is renewed at half this
// interval while a cycle runs; a crashed holder is reclaimable after
// one TTL.
func WithLockTTL(ttl time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.lockTTL = ttl }
}

// WithClock overrides the wall clock, for tests.
func WithClock(c clock.Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithRand seeds the schedule shuffle, for tests.
func WithRand(rng *rand.Rand) SchedulerOption {
	return func(s *Scheduler) { s.rng = rng }
}

// WithQuotaWarnThreshold sets the Remaining level at or below which an
// admitted cycle emits a quota warning.
func WithQuotaWarnThreshold(n int) SchedulerOption {
	return func(s *Scheduler) { s.warnThreshold = n }
}

// New creates a Scheduler. base is the campaign configuration cron
// cycles run with; TriggerNow overlays per-call overrides on top of it.
func New(
	executor Executor,
	runs run.Store,
	quotas *quota.Provider,
	locks *lock.Manager,
	extensions *ext.Registry,
	base campaign.Config,
	logger *slog.Logger,
	opts ...SchedulerOption,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		executor:      executor,
		runs:          runs,
		quotas:        quotas,
		locks:         locks,
		extensions:    extensions,
		base:          base.Clone(),
		logger:        logger,
		clock:         clock.System(),
		lockName:      "autowebsites:cycle",
		lockTTL:       10 * time.Minute,
		warnThreshold: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.extensions == nil {
		s.extensions = ext.NewRegistry(logger)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Start registers the instance (when a registrar is configured) and
// arms the trigger. It returns immediately; firings happen on the
// trigger's goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	if s.registrar != nil {
		if err := s.registrar.Start(ctx); err != nil {
			return fmt.Errorf("scheduler: start registrar: %w", err)
		}
	}
	if s.trigger != nil {
		s.trigger.Start(s.onFire)
	}

	s.logger.Info("scheduler started",
		slog.String("lock", s.lockName),
		slog.Duration("lock_ttl", s.lockTTL),
		slog.Bool("trigger_armed", s.trigger != nil),
	)
	return nil
}

// Stop winds the scheduler down: the trigger stops firing, the active
// cycle (if any) is asked to cancel and waited for, then the instance
// deregisters. ctx bounds the wait; on expiry the cycle keeps running
// in the background and the lease TTL covers a hard exit.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	active := s.active
	s.mu.Unlock()

	if s.trigger != nil {
		s.trigger.Stop()
	}

	if active != nil {
		active.cancel.Cancel()
		select {
		case <-active.done:
		case <-ctx.Done():
			s.logger.Warn("scheduler stopped with cycle still running",
				slog.String("run_id", active.runID.String()))
		}
	}

	if s.registrar != nil {
		if err := s.registrar.Stop(ctx); err != nil {
			s.logger.Warn("registrar stop failed", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("scheduler stopped")
	return nil
}

// TriggerNow attempts to start a cycle immediately, walking the same
// gates a cron firing does. Overrides adjust the base campaign config
// for this cycle only; nil keeps it unchanged.
func (s *Scheduler) TriggerNow(ctx context.Context, ov *campaign.Overrides) Ack {
	return s.attempt(ctx, run.TriggerManual, ov)
}

// CancelCurrent requests cooperative cancellation of the active cycle
// and reports whether one was running. The pipeline observes the flag
// between lead dispatches; in-flight leads finish first.
func (s *Scheduler) CancelCurrent() bool {
	s.mu.Lock()
	cycle := s.active
	s.mu.Unlock()
	if cycle == nil {
		return false
	}
	cycle.cancel.Cancel()
	s.logger.Info("cycle cancellation requested",
		slog.String("run_id", cycle.runID.String()))
	return true
}

// Status reports the scheduler's current shape. Read-only.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Scheduled: s.started && s.trigger != nil,
		Running:   s.active != nil,
		LastRunID: s.lastRunID,
		Config:    s.base.Clone(),
	}
	if s.active != nil {
		st.ActiveRunID = s.active.runID
	}
	if s.trigger != nil {
		if next := s.trigger.Next(); !next.IsZero() {
			st.NextFire = &next
		}
	}
	return st
}

func (s *Scheduler) onFire() {
	s.attempt(context.Background(), run.TriggerCron, nil)
}

// attempt walks the gate sequence and, when every gate passes, admits a
// cycle. Validation runs before any gate so a bad override fails fast.
func (s *Scheduler) attempt(ctx context.Context, trigger run.TriggerKind, ov *campaign.Overrides) Ack {
	cfg, err := campaign.Resolve(&s.base, ov)
	if err != nil {
		s.logger.Error("cycle config rejected",
			slog.String("trigger", string(trigger)),
			slog.String("error", err.Error()))
		return Ack{Outcome: OutcomeInvalid, Err: err}
	}

	// Gate 1: one cycle per process.
	if !s.busy.TryLock() {
		s.mu.Lock()
		last := s.lastRunID
		if s.active != nil {
			last = s.active.runID
		}
		s.mu.Unlock()

		s.logger.Info("cycle skipped",
			slog.String("reason", "already_running"),
			slog.String("run_id", last.String()))
		s.extensions.EmitRunSkipped(ctx, "already_running")
		return Ack{RunID: last, Outcome: OutcomeAlreadyRunning}
	}
	admitted := false
	defer func() {
		if !admitted {
			s.busy.Unlock()
		}
	}()

	now := s.clock.Now()

	// Gate 2: run-hours window.
	if !cfg.RunHours.Within(now) {
		s.logger.Info("cycle skipped",
			slog.String("reason", "outside_hours"),
			slog.Int("hour", now.Hour()),
			slog.Int("window_start", cfg.RunHours.Start),
			slog.Int("window_end", cfg.RunHours.End))
		s.extensions.EmitRunSkipped(ctx, "outside_hours")
		return Ack{Outcome: OutcomeOutsideHours}
	}

	// Gate 3: daily quota. Advisory only — the lock below is the
	// authoritative admission gate between instances.
	snap, err := s.quotas.Snapshot(ctx, now)
	if err != nil {
		s.logger.Error("quota snapshot failed", slog.String("error", err.Error()))
		return Ack{Outcome: OutcomeInvalid, Err: err}
	}
	if snap.Exhausted() {
		s.logger.Info("cycle skipped",
			slog.String("reason", "quota_exhausted"),
			slog.Int("sent_today", snap.SentToday),
			slog.Int("daily_limit", snap.DailyLimit))
		s.extensions.EmitRunSkipped(ctx, "quota_exhausted")
		return Ack{Outcome: OutcomeQuotaExhausted}
	}
	if snap.Remaining <= s.warnThreshold {
		s.logger.Warn("quota nearly exhausted",
			slog.Int("remaining", snap.Remaining),
			slog.Int("daily_limit", snap.DailyLimit))
		s.extensions.EmitQuotaWarning(ctx, snap)
	}

	// Gate 4: distributed lock.
	lease, err := s.locks.TryAcquire(ctx, s.lockName, s.lockTTL)
	if err != nil {
		s.logger.Error("lock acquire failed",
			slog.String("lock", s.lockName),
			slog.String("error", err.Error()))
		return Ack{Outcome: OutcomeInvalid, Err: err}
	}
	if lease == nil {
		s.logger.Info("cycle skipped",
			slog.String("reason", "locked"),
			slog.String("lock", s.lockName))
		s.extensions.EmitRunSkipped(ctx, "locked")
		return Ack{Outcome: OutcomeLocked}
	}

	// Admitted. Everything below runs under the lease.
	limits := campaign.EffectiveLimits(*cfg, snap.Remaining)
	schedule := campaign.BuildSchedule(*cfg, s.rng)

	rn := run.New(trigger, *cfg)
	err = s.runs.CreateRun(ctx, rn)
	if err == nil {
		err = rn.MarkRunning(now)
	}
	if err == nil {
		err = s.runs.UpdateRun(ctx, rn)
	}
	if err != nil {
		s.locks.Release(ctx, lease)
		s.logger.Error("run admission failed",
			slog.String("run_id", rn.ID.String()),
			slog.String("error", err.Error()))
		return Ack{Outcome: OutcomeInvalid, Err: err}
	}

	cycle := &activeCycle{
		runID:  rn.ID,
		cancel: pipeline.NewCancelFlag(),
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	s.active = cycle
	s.lastRunID = rn.ID
	s.mu.Unlock()
	admitted = true

	s.extensions.EmitRunStarted(ctx, rn)
	s.logger.Info("cycle admitted",
		slog.String("run_id", rn.ID.String()),
		slog.String("trigger", string(trigger)),
		slog.Int("max_leads", limits.MaxLeads),
		slog.Int("max_emails", limits.MaxEmails),
		slog.Int("schedule_pairs", len(schedule)),
		slog.Int("quota_remaining", snap.Remaining))

	s.wg.Add(1)
	go s.runCycle(rn, limits, schedule, lease, cycle)

	return Ack{RunID: rn.ID, Outcome: OutcomeStarted}
}

// runCycle executes one admitted cycle and owns its cleanup: terminal
// Run state, lock release, busy mutex, active slot. It runs detached
// from the triggering caller — a TriggerNow request going away must not
// abort the cycle it started.
func (s *Scheduler) runCycle(rn *run.Run, limits campaign.Limits, schedule []campaign.Pair, lease *lock.Lease, cycle *activeCycle) {
	defer s.wg.Done()

	ctx := context.Background()
	started := s.clock.Now()

	renewCtx, stopRenewal := context.WithCancel(ctx)
	var renewWG sync.WaitGroup
	renewWG.Add(1)
	go func() {
		defer renewWG.Done()
		s.renewLoop(renewCtx, lease, cycle.cancel)
	}()

	out, execErr := s.executor.Execute(ctx, rn, limits, schedule, cycle.cancel)

	stopRenewal()
	renewWG.Wait()

	now := s.clock.Now()
	s.finishRun(ctx, rn, out, execErr, now, now.Sub(started))

	// Cleanup order: Run persisted above, then the lock, then the
	// local mutex.
	s.locks.Release(ctx, lease)

	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
	s.busy.Unlock()
	close(cycle.done)
}

// finishRun applies the terminal state transition, persists the Run,
// and emits the matching lifecycle event.
func (s *Scheduler) finishRun(ctx context.Context, rn *run.Run, out *pipeline.Outcome, execErr error, now time.Time, elapsed time.Duration) {
	var markErr error
	switch {
	case execErr != nil:
		rn.RecordError(now, run.PhaseOther, id.Nil, execErr.Error())
		markErr = rn.MarkFailed(now)
	case out.Cancelled:
		markErr = rn.MarkCancelled(now)
	default:
		markErr = rn.MarkCompleted(now)
	}
	if markErr != nil {
		s.logger.Error("run state transition failed",
			slog.String("run_id", rn.ID.String()),
			slog.String("error", markErr.Error()))
	}
	if err := s.runs.UpdateRun(ctx, rn); err != nil {
		s.logger.Error("run final persist failed",
			slog.String("run_id", rn.ID.String()),
			slog.String("error", err.Error()))
	}

	switch {
	case execErr != nil:
		s.extensions.EmitRunFailed(ctx, rn, execErr)
		s.logger.Error("cycle failed",
			slog.String("run_id", rn.ID.String()),
			slog.String("error", execErr.Error()))
	case out.Cancelled:
		s.extensions.EmitRunCancelled(ctx, rn)
		s.logger.Info("cycle cancelled",
			slog.String("run_id", rn.ID.String()),
			slog.Int("emails_sent", rn.Stats.EmailsSent))
	default:
		s.extensions.EmitRunCompleted(ctx, rn, elapsed)
		s.logger.Info("cycle completed",
			slog.String("run_id", rn.ID.String()),
			slog.Duration("elapsed", elapsed),
			slog.Int("discovered", rn.Stats.Discovered),
			slog.Int("emails_sent", rn.Stats.EmailsSent))
	}
}

// renewLoop extends the lease at half the TTL while the cycle runs. A
// lost lease means another instance may already have reclaimed the
// lock, so the cycle is asked to stop rather than keep working without
// mutual exclusion.
func (s *Scheduler) renewLoop(ctx context.Context, lease *lock.Lease, flag *pipeline.CancelFlag) {
	ticker := time.NewTicker(s.lockTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := s.locks.Renew(ctx, lease, s.lockTTL)
			if err != nil {
				s.logger.Warn("lease renew failed",
					slog.String("lock", lease.Name),
					slog.String("error", err.Error()))
				continue
			}
			if !ok {
				s.logger.Error("lease lost mid-cycle, cancelling",
					slog.String("lock", lease.Name))
				flag.Cancel()
				return
			}
		}
	}
}
