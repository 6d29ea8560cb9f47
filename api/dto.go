package api

import (
	"net/url"
	"strconv"

	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
	"github.com/isethius/Autowebsites-sub001/stream"
)

// defaultListLimit bounds list responses when the caller sends no limit.
const defaultListLimit = 50

// TriggerResponse answers POST /v1/runs/trigger.
type TriggerResponse struct {
	RunID   string `json:"run_id,omitempty"`
	Outcome string `json:"outcome"`
}

// CancelResponse answers POST /v1/runs/cancel.
type CancelResponse struct {
	Cancelled bool   `json:"cancelled"`
	RunID     string `json:"run_id,omitempty"`
}

// RunCounts groups run totals by state.
type RunCounts struct {
	Pending   int64 `json:"pending"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}

// StatsResponse answers GET /v1/stats.
type StatsResponse struct {
	Runs   RunCounts          `json:"runs"`
	Quota  *quota.Snapshot    `json:"quota"`
	Stream stream.BrokerStats `json:"stream"`
}

// HealthResponse answers GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// runStateFromString maps a query value onto a run state.
func runStateFromString(s string) (run.State, bool) {
	switch state := run.State(s); state {
	case run.StatePending, run.StateRunning, run.StateCompleted,
		run.StateFailed, run.StateCancelled:
		return state, true
	default:
		return "", false
	}
}

// intQuery reads an integer query parameter, falling back on absent or
// unparseable values.
func intQuery(q url.Values, key string, fallback int) int {
	v := q.Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
