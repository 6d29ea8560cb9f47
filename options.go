package autowebsites

import (
	"context"
	"log/slog"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// Storer is the minimal store interface held by the Orchestrator.
// It covers lifecycle operations only. The full composite interface
// (store.Store) is used in subsystem layers that don't create import
// cycles. Implementations satisfy store.Store which embeds all
// subsystem stores.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// schedulerRunner is an internal interface for scheduler lifecycle.
type schedulerRunner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// extensionEmitter is an internal interface for extension lifecycle events.
type extensionEmitter interface {
	EmitShutdown(ctx context.Context)
}

// Orchestrator is the central coordinator for the nightly outreach
// cycle: scheduling, admission gates, the lead pipeline, and run
// persistence.
//
// Create one with New() and functional options. The Orchestrator holds
// references to subsystem components via internal interfaces to avoid
// import cycles. Use the Build() function from the engine package to
// wire everything together.
type Orchestrator struct {
	config     Config
	logger     *slog.Logger
	store      Storer
	extensions extensionEmitter
	scheduler  schedulerRunner

	// started tracks whether Start has been called.
	started bool
}

// New creates a new Orchestrator with the given options.
func New(opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Logger returns the orchestrator's logger.
func (o *Orchestrator) Logger() *slog.Logger { return o.logger }

// Store returns the orchestrator's store.
func (o *Orchestrator) Store() Storer { return o.store }

// Config returns a copy of the orchestrator's configuration.
func (o *Orchestrator) Config() Config { return o.config }

// SetScheduler sets the scheduler (called by the engine package).
func (o *Orchestrator) SetScheduler(s schedulerRunner) { o.scheduler = s }

// SetExtensions sets the extension emitter (called by the engine package).
func (o *Orchestrator) SetExtensions(e extensionEmitter) { o.extensions = e }

// Start begins the scheduling loop.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.scheduler == nil {
		return ErrNotBuilt
	}
	if err := o.scheduler.Start(ctx); err != nil {
		return err
	}
	o.started = true
	return nil
}

// Stop gracefully shuts down the orchestrator.
func (o *Orchestrator) Stop(ctx context.Context) error {
	if o.scheduler != nil && o.started {
		if err := o.scheduler.Stop(ctx); err != nil {
			o.logger.Error("scheduler stop error", "error", err)
		}
	}
	if o.extensions != nil {
		o.extensions.EmitShutdown(ctx)
	}
	if o.store != nil {
		return o.store.Close()
	}
	return nil
}

// WithLockName sets the distributed-lock key guarding the cycle.
func WithLockName(name string) Option {
	return func(o *Orchestrator) error {
		o.config.LockName = name
		return nil
	}
}

// WithDailyEmailLimit sets the per-day cap on outreach emails.
func WithDailyEmailLimit(n int) Option {
	return func(o *Orchestrator) error {
		o.config.DailyEmailLimit = n
		return nil
	}
}

// WithLogger sets the structured logger for the orchestrator.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) error {
		o.logger = l
		return nil
	}
}

// WithStore sets the persistence backend for the orchestrator.
// The store must implement Storer at minimum; typically it will be a
// store.Store which embeds all subsystem store interfaces.
func WithStore(s Storer) Option {
	return func(o *Orchestrator) error {
		o.store = s
		return nil
	}
}
