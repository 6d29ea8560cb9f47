package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/isethius/Autowebsites-sub001/clock"
)

// Provider reads and records daily usage against a configured limit.
type Provider struct {
	store  Store
	limit  int
	clock  clock.Clock
	logger *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock overrides the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(p *Provider) { p.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// NewProvider creates a Provider enforcing dailyLimit emails per UTC day.
func NewProvider(store Store, dailyLimit int, opts ...Option) *Provider {
	p := &Provider{
		store:  store,
		limit:  dailyLimit,
		clock:  clock.System(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot reads today's counters as of now. Pure query, no side effects,
// no reservation.
func (p *Provider) Snapshot(ctx context.Context, now time.Time) (*Snapshot, error) {
	day := DayKey(now)

	sent, err := p.store.TodayCount(ctx, KindEmails, day)
	if err != nil {
		return nil, fmt.Errorf("quota: read %s counter: %w", KindEmails, err)
	}
	deploys, err := p.store.TodayCount(ctx, KindDeploys, day)
	if err != nil {
		return nil, fmt.Errorf("quota: read %s counter: %w", KindDeploys, err)
	}
	leads, err := p.store.TodayCount(ctx, KindLeads, day)
	if err != nil {
		return nil, fmt.Errorf("quota: read %s counter: %w", KindLeads, err)
	}
	ai, err := p.store.TodayCount(ctx, KindAICalls, day)
	if err != nil {
		return nil, fmt.Errorf("quota: read %s counter: %w", KindAICalls, err)
	}

	remaining := p.limit - sent
	if remaining < 0 {
		remaining = 0
	}
	return &Snapshot{
		Day:          day,
		DailyLimit:   p.limit,
		SentToday:    sent,
		Remaining:    remaining,
		DeploysToday: deploys,
		LeadsToday:   leads,
		AICallsToday: ai,
	}, nil
}

// Record adds n to today's counter for kind. Best-effort: failures are
// logged, never returned, so a counter hiccup cannot fail a run.
func (p *Provider) Record(ctx context.Context, kind Kind, n int) {
	if n <= 0 {
		return
	}
	day := DayKey(p.clock.Now())
	if err := p.store.IncrCount(ctx, kind, day, n); err != nil {
		p.logger.Warn("quota counter increment failed",
			slog.String("kind", string(kind)),
			slog.String("day", day),
			slog.Int("n", n),
			"error", err)
	}
}
