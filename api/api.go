// Package api provides the HTTP surface of the orchestrator: run
// triggering and inspection, scheduler status, aggregate stats, the
// instance registry, a WebSocket event feed, health, and metrics.
//
// Routes are registered on a standard net/http mux using method+path
// patterns. All /v1 routes pass through logging and panic recovery;
// when an auth secret is configured they also require a Bearer token
// signed with it. /healthz and /metrics stay outside auth so probes
// and scrapers need no token.
package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/isethius/Autowebsites-sub001/engine"
)

// API wires the HTTP handlers for a running engine.
type API struct {
	eng        *engine.Engine
	logger     *slog.Logger
	authSecret []byte
}

// Option configures an API.
type Option func(*API)

// WithAuthSecret enables Bearer-token authentication on all /v1 routes.
// Tokens must be HS256 JWTs signed with the given secret.
func WithAuthSecret(secret []byte) Option {
	return func(a *API) {
		a.authSecret = secret
	}
}

// WithLogger overrides the request logger. Defaults to the engine's
// orchestrator logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		a.logger = l
	}
}

// New creates an API over an engine.
func New(eng *engine.Engine, opts ...Option) *API {
	a := &API{
		eng:    eng,
		logger: eng.Orchestrator().Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return mux
}

// RegisterRoutes registers every route on the given mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	base := Chain(
		Recovery(a.logger),
		Logging(a.logger),
	)
	v1 := base
	if len(a.authSecret) > 0 {
		v1 = Chain(
			Recovery(a.logger),
			Logging(a.logger),
			BearerAuth(a.authSecret),
		)
	}

	a.registerRunRoutes(mux, v1)
	a.registerStatusRoutes(mux, v1)
	a.registerEventRoutes(mux, v1)

	mux.Handle("GET /healthz", base(http.HandlerFunc(a.healthz)))
	mux.Handle("GET /metrics", base(promhttp.Handler()))
}

// registerRunRoutes registers run management routes.
func (a *API) registerRunRoutes(mux *http.ServeMux, chain Middleware) {
	mux.Handle("POST /v1/runs/trigger", chain(http.HandlerFunc(a.triggerRun)))
	mux.Handle("GET /v1/runs", chain(http.HandlerFunc(a.listRuns)))
	mux.Handle("GET /v1/runs/{runID}", chain(http.HandlerFunc(a.getRun)))
	mux.Handle("POST /v1/runs/cancel", chain(http.HandlerFunc(a.cancelRun)))
}

// registerStatusRoutes registers scheduler status, aggregate stats, and
// instance registry routes.
func (a *API) registerStatusRoutes(mux *http.ServeMux, chain Middleware) {
	mux.Handle("GET /v1/status", chain(http.HandlerFunc(a.status)))
	mux.Handle("GET /v1/stats", chain(http.HandlerFunc(a.stats)))
	mux.Handle("GET /v1/instances", chain(http.HandlerFunc(a.instances)))
}

// registerEventRoutes registers the WebSocket event feed.
func (a *API) registerEventRoutes(mux *http.ServeMux, chain Middleware) {
	mux.Handle("GET /v1/events", chain(http.HandlerFunc(a.events)))
}
