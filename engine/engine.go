package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/backoff"
	"github.com/isethius/Autowebsites-sub001/campaign"
	"github.com/isethius/Autowebsites-sub001/cluster"
	"github.com/isethius/Autowebsites-sub001/discovery"
	"github.com/isethius/Autowebsites-sub001/ext"
	"github.com/isethius/Autowebsites-sub001/lock"
	mw "github.com/isethius/Autowebsites-sub001/middleware"
	"github.com/isethius/Autowebsites-sub001/observability"
	"github.com/isethius/Autowebsites-sub001/outreach"
	"github.com/isethius/Autowebsites-sub001/pipeline"
	"github.com/isethius/Autowebsites-sub001/preview"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
	"github.com/isethius/Autowebsites-sub001/scheduler"
	"github.com/isethius/Autowebsites-sub001/stream"
)

// instrumentationName identifies this module to OpenTelemetry providers.
const instrumentationName = "github.com/isethius/Autowebsites-sub001"

// Engine wraps an Orchestrator with typed subsystem access.
// Use Build() to create one from an Orchestrator.
type Engine struct {
	o          *autowebsites.Orchestrator
	extensions *ext.Registry
	runs       run.Store
	quotas     *quota.Provider
	locks      *lock.Manager
	instances  cluster.Store
	registrar  *cluster.Registrar
	runner     *pipeline.Runner
	scheduler  *scheduler.Scheduler
	broker     *stream.Broker
	mws        []mw.Middleware
	logger     *slog.Logger

	// Pipeline collaborators. Nil disables the phase.
	source    discovery.Source
	generator preview.Generator
	deployer  preview.Deployer
	composer  outreach.Composer
	sender    outreach.Sender

	base     campaign.Config
	cronExpr string
	version  string

	retry    backoff.Policy
	retrySet bool

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	// Prometheus registerer for run/lead counters (optional; nil means
	// the default registry).
	promRegisterer prometheus.Registerer
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.extensions.Register(e)
	}
}

// WithMiddleware appends middleware to the per-lead chain, after the
// default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithSource sets the lead discovery source. Without one, cycles admit
// and complete with zero leads.
func WithSource(s discovery.Source) Option {
	return func(eng *Engine) {
		eng.source = s
	}
}

// WithGenerator sets the preview content generator.
func WithGenerator(g preview.Generator) Option {
	return func(eng *Engine) {
		eng.generator = g
	}
}

// WithDeployer sets the preview deployer.
func WithDeployer(d preview.Deployer) Option {
	return func(eng *Engine) {
		eng.deployer = d
	}
}

// WithComposer sets the outreach email composer.
func WithComposer(c outreach.Composer) Option {
	return func(eng *Engine) {
		eng.composer = c
	}
}

// WithSender sets the outreach email sender.
func WithSender(s outreach.Sender) Option {
	return func(eng *Engine) {
		eng.sender = s
	}
}

// WithCampaign sets the base campaign configuration cron cycles run
// with. If not set, campaign.Default() is used. Manual triggers overlay
// per-call overrides on top of this base.
func WithCampaign(cfg campaign.Config) Option {
	return func(eng *Engine) {
		eng.base = cfg.Clone()
	}
}

// WithCronSchedule arms a cron trigger with the given expression
// (standard five-field format, evaluated in UTC). Without one, cycles
// run only on explicit TriggerNow calls.
func WithCronSchedule(expr string) Option {
	return func(eng *Engine) {
		eng.cronExpr = expr
	}
}

// WithRetryPolicy sets the retry policy for discovery source calls.
func WithRetryPolicy(p backoff.Policy) Option {
	return func(eng *Engine) {
		eng.retry = p
		eng.retrySet = true
	}
}

// WithVersion sets the version string recorded in this instance's
// registry entry.
func WithVersion(v string) Option {
	return func(eng *Engine) {
		eng.version = v
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// When set, the tracing middleware uses this provider instead of the
// global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// When set, the metrics middleware uses this provider instead of the
// global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// WithPrometheusRegisterer sets the registry the observability
// extension registers its run and lead counters with. When not set,
// prometheus.DefaultRegisterer is used.
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(eng *Engine) {
		eng.promRegisterer = reg
	}
}

// Build creates an Engine from an existing Orchestrator.
// The Orchestrator's store must implement every subsystem store
// interface; store.Store does.
func Build(o *autowebsites.Orchestrator, opts ...Option) (*Engine, error) {
	logger := o.Logger()
	st := o.Store()

	if st == nil {
		return nil, autowebsites.ErrNoStore
	}

	rs, ok := st.(run.Store)
	if !ok {
		return nil, fmt.Errorf("autowebsites: store does not implement run.Store")
	}
	qs, ok := st.(quota.Store)
	if !ok {
		return nil, fmt.Errorf("autowebsites: store does not implement quota.Store")
	}
	ls, ok := st.(lock.Store)
	if !ok {
		return nil, fmt.Errorf("autowebsites: store does not implement lock.Store")
	}
	cs, ok := st.(cluster.Store)
	if !ok {
		return nil, fmt.Errorf("autowebsites: store does not implement cluster.Store")
	}

	eng := &Engine{
		o:          o,
		extensions: ext.NewRegistry(logger),
		runs:       rs,
		instances:  cs,
		logger:     logger,
		base:       campaign.Default(),
	}

	for _, opt := range opts {
		opt(eng)
	}

	if err := eng.base.Validate(); err != nil {
		return nil, fmt.Errorf("autowebsites: campaign config: %w", err)
	}

	cfg := o.Config()
	eng.quotas = quota.NewProvider(qs, cfg.DailyEmailLimit, quota.WithLogger(logger))
	eng.locks = lock.NewManager(ls, lock.WithLogger(logger))

	// The stream broker is always on; the API's event feed and any
	// in-process subscribers read from it.
	eng.broker = stream.NewBroker(logger)
	eng.extensions.Register(eng.broker)

	// Register the observability metrics extension.
	var obsExt *observability.MetricsExtension
	if eng.promRegisterer != nil {
		obsExt = observability.NewMetricsExtensionWithRegisterer(eng.promRegisterer)
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	// Default per-lead stack: recover → run context → tracing → metrics
	// → logging → timeout. RunContext runs early so every later stage
	// sees the run id in ctx.
	defaultMws := []mw.Middleware{
		mw.Recover(logger),
		mw.RunContext(),
		tracingMw,
		metricsMw,
		mw.Logging(logger),
		mw.Timeout(logger),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)

	runnerOpts := []pipeline.RunnerOption{
		pipeline.WithQuota(eng.quotas),
		pipeline.WithRunStore(rs),
		pipeline.WithMiddleware(allMws...),
	}
	if eng.retrySet {
		runnerOpts = append(runnerOpts, pipeline.WithRetryPolicy(eng.retry))
	}
	eng.runner = pipeline.NewRunner(
		eng.source,
		eng.generator,
		eng.deployer,
		eng.composer,
		eng.sender,
		eng.extensions,
		logger,
		runnerOpts...,
	)

	// Instance registry entry for this process, heartbeated while the
	// scheduler runs.
	eng.registrar = cluster.NewRegistrar(cs, cluster.Self(eng.version), logger,
		cluster.WithHeartbeatInterval(cfg.HeartbeatInterval),
		cluster.WithStaleThreshold(cfg.StaleInstanceThreshold),
	)

	schedOpts := []scheduler.SchedulerOption{
		scheduler.WithRegistrar(eng.registrar),
		scheduler.WithLockName(cfg.LockName),
		scheduler.WithLockTTL(cfg.LockTTL),
	}
	if eng.cronExpr != "" {
		trig, err := scheduler.NewCronTrigger(eng.cronExpr)
		if err != nil {
			return nil, fmt.Errorf("autowebsites: cron schedule %q: %w", eng.cronExpr, err)
		}
		schedOpts = append(schedOpts, scheduler.WithTrigger(trig))
	}
	eng.scheduler = scheduler.New(
		eng.runner,
		rs,
		eng.quotas,
		eng.locks,
		eng.extensions,
		eng.base,
		logger,
		schedOpts...,
	)

	// Wire back into the Orchestrator.
	o.SetScheduler(eng.scheduler)
	o.SetExtensions(eng.extensions)

	return eng, nil
}

// Start arms the trigger and registers this instance.
func (eng *Engine) Start(ctx context.Context) error {
	return eng.o.Start(ctx)
}

// Stop gracefully shuts down the engine: the trigger disarms, the
// active cycle (if any) is cancelled and waited for, the instance
// deregisters, extensions observe shutdown, and the store closes.
func (eng *Engine) Stop(ctx context.Context) error {
	return eng.o.Stop(ctx)
}

// TriggerNow attempts to start a cycle immediately, walking the same
// admission gates a cron firing does. Overrides adjust the base
// campaign config for this cycle only; nil keeps it unchanged.
func (eng *Engine) TriggerNow(ctx context.Context, ov *campaign.Overrides) scheduler.Ack {
	return eng.scheduler.TriggerNow(ctx, ov)
}

// CancelCurrent requests cooperative cancellation of the active cycle
// and reports whether one was running.
func (eng *Engine) CancelCurrent() bool {
	return eng.scheduler.CancelCurrent()
}

// Status reports the scheduler's current shape.
func (eng *Engine) Status() scheduler.Status {
	return eng.scheduler.Status()
}

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Scheduler returns the cycle scheduler.
func (eng *Engine) Scheduler() *scheduler.Scheduler { return eng.scheduler }

// Runner returns the lead pipeline runner.
func (eng *Engine) Runner() *pipeline.Runner { return eng.runner }

// Broker returns the stream broker feeding real-time subscribers.
func (eng *Engine) Broker() *stream.Broker { return eng.broker }

// Quotas returns the daily quota provider.
func (eng *Engine) Quotas() *quota.Provider { return eng.quotas }

// Locks returns the distributed lock manager.
func (eng *Engine) Locks() *lock.Manager { return eng.locks }

// Runs returns the run store.
func (eng *Engine) Runs() run.Store { return eng.runs }

// Instances returns the cluster instance store.
func (eng *Engine) Instances() cluster.Store { return eng.instances }

// Registrar returns this instance's registrar.
func (eng *Engine) Registrar() *cluster.Registrar { return eng.registrar }

// Orchestrator returns the underlying Orchestrator.
func (eng *Engine) Orchestrator() *autowebsites.Orchestrator { return eng.o }
