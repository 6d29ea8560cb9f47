package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registrar keeps one instance's registry entry alive. It registers the
// instance on Start, heartbeats on an interval, and reaps stale peers so
// the registry reflects reality even after crashes.
type Registrar struct {
	store  Store
	self   *Instance
	logger *slog.Logger

	heartbeatInterval time.Duration
	staleThreshold    time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// Option configures a Registrar.
type Option func(*Registrar)

// WithHeartbeatInterval sets how often the registrar refreshes its
// instance's last-seen timestamp.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(r *Registrar) { r.heartbeatInterval = d }
}

// WithStaleThreshold sets the threshold after which silent instances are
// flagged as stale. A zero value disables reaping.
func WithStaleThreshold(d time.Duration) Option {
	return func(r *Registrar) { r.staleThreshold = d }
}

// NewRegistrar creates a registrar for the given instance.
func NewRegistrar(store Store, self *Instance, logger *slog.Logger, opts ...Option) *Registrar {
	r := &Registrar{
		store:             store,
		self:              self,
		logger:            logger,
		heartbeatInterval: 10 * time.Second,
		staleThreshold:    30 * time.Second,
		stopCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Instance returns the instance this registrar maintains.
func (r *Registrar) Instance() *Instance { return r.self }

// Start registers the instance and launches the heartbeat and reaper
// goroutines. It returns immediately.
func (r *Registrar) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	if err := r.store.RegisterInstance(ctx, r.self); err != nil {
		return fmt.Errorf("cluster: register instance: %w", err)
	}
	r.running = true

	r.logger.Info("instance registered",
		slog.String("instance_id", r.self.ID.String()),
		slog.String("hostname", r.self.Hostname),
		slog.Int("pid", r.self.PID),
	)

	r.wg.Add(1)
	go r.heartbeatLoop()

	if r.staleThreshold > 0 {
		r.wg.Add(1)
		go r.reaperLoop()
	}

	return nil
}

// Stop halts the loops and deregisters the instance. If the context has
// a deadline, waiting is abandoned when time runs out.
func (r *Registrar) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopCh)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("registrar shutdown timed out")
	}

	if err := r.store.DeregisterInstance(ctx, r.self.ID); err != nil {
		r.logger.Warn("instance deregister failed",
			slog.String("instance_id", r.self.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// heartbeatLoop periodically refreshes this instance's last-seen timestamp.
func (r *Registrar) heartbeatLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			if err := r.store.HeartbeatInstance(context.Background(), r.self.ID); err != nil {
				r.logger.Warn("instance heartbeat failed",
					slog.String("instance_id", r.self.ID.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// reaperLoop periodically flags instances whose heartbeat has expired.
func (r *Registrar) reaperLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.staleThreshold)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.reapStale()
		}
	}
}

func (r *Registrar) reapStale() {
	stale, err := r.store.ReapStaleInstances(context.Background(), r.staleThreshold)
	if err != nil {
		r.logger.Error("reap stale instances error", slog.String("error", err.Error()))
		return
	}

	for _, inst := range stale {
		r.logger.Info("flagged stale instance",
			slog.String("instance_id", inst.ID.String()),
			slog.String("hostname", inst.Hostname),
			slog.Time("last_seen", inst.LastSeen),
		)
	}
}
