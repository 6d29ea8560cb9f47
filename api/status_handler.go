package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/isethius/Autowebsites-sub001/run"
)

// status reports the scheduler's current shape: whether a trigger is
// armed, the next fire time, and the active run.
func (a *API) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.eng.Status())
}

// stats aggregates run counts by state, today's quota usage, and stream
// broker totals.
func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var counts RunCounts
	for _, state := range []run.State{
		run.StatePending,
		run.StateRunning,
		run.StateCompleted,
		run.StateFailed,
		run.StateCancelled,
	} {
		count, err := a.eng.Runs().CountRuns(ctx, run.CountOpts{State: state})
		if err != nil {
			internalError(w, a.logger, fmt.Errorf("count runs (%s): %w", state, err))
			return
		}
		switch state {
		case run.StatePending:
			counts.Pending = count
		case run.StateRunning:
			counts.Running = count
		case run.StateCompleted:
			counts.Completed = count
		case run.StateFailed:
			counts.Failed = count
		case run.StateCancelled:
			counts.Cancelled = count
		}
	}

	snap, err := a.eng.Quotas().Snapshot(ctx, time.Now().UTC())
	if err != nil {
		internalError(w, a.logger, fmt.Errorf("quota snapshot: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Runs:   counts,
		Quota:  snap,
		Stream: a.eng.Broker().Stats(),
	})
}

// instances lists the registered orchestrator instances, oldest first.
func (a *API) instances(w http.ResponseWriter, r *http.Request) {
	list, err := a.eng.Instances().ListInstances(r.Context())
	if err != nil {
		internalError(w, a.logger, fmt.Errorf("list instances: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// healthz reports store reachability.
func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	if err := a.eng.Orchestrator().Store().Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
