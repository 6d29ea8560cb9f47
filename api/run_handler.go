package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/isethius/Autowebsites-sub001/campaign"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/run"
	"github.com/isethius/Autowebsites-sub001/scheduler"
)

// triggerRun attempts to start a cycle right now. The optional JSON
// body carries campaign overrides for this cycle only. The response is
// an immediate ack: started cycles continue in the background and
// callers poll the run record for the result.
func (a *API) triggerRun(w http.ResponseWriter, r *http.Request) {
	var ov *campaign.Overrides
	if err := json.NewDecoder(r.Body).Decode(&ov); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, fmt.Sprintf("invalid trigger body: %v", err))
		return
	}

	ack := a.eng.TriggerNow(r.Context(), ov)
	resp := TriggerResponse{RunID: ack.RunID.String(), Outcome: string(ack.Outcome)}

	switch ack.Outcome {
	case scheduler.OutcomeStarted:
		writeJSON(w, http.StatusAccepted, resp)
	case scheduler.OutcomeInvalid:
		var verr *campaign.ValidationError
		if errors.As(ack.Err, &verr) {
			badRequest(w, verr.Error())
			return
		}
		internalError(w, a.logger, ack.Err)
	default:
		// A gate refused admission. The attempt itself succeeded; the
		// answer is the skip outcome.
		writeJSON(w, http.StatusOK, resp)
	}
}

// listRuns returns runs newest first, optionally filtered by state.
func (a *API) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := run.ListOpts{
		Limit:  intQuery(q, "limit", defaultListLimit),
		Offset: intQuery(q, "offset", 0),
	}
	if v := q.Get("state"); v != "" {
		state, ok := runStateFromString(v)
		if !ok {
			badRequest(w, fmt.Sprintf("unknown run state %q", v))
			return
		}
		opts.State = state
	}

	runs, err := a.eng.Runs().ListRuns(r.Context(), opts)
	if err != nil {
		internalError(w, a.logger, fmt.Errorf("list runs: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// getRun returns one run by id.
func (a *API) getRun(w http.ResponseWriter, r *http.Request) {
	runID, err := id.ParseRunID(r.PathValue("runID"))
	if err != nil {
		badRequest(w, fmt.Sprintf("invalid run ID: %v", err))
		return
	}

	rn, err := a.eng.Runs().GetRun(r.Context(), runID)
	if storeError(w, a.logger, err) {
		return
	}
	writeJSON(w, http.StatusOK, rn)
}

// cancelRun requests cooperative cancellation of the active cycle.
// In-flight leads finish; the run lands in the cancelled state.
func (a *API) cancelRun(w http.ResponseWriter, r *http.Request) {
	// Capture the active run id before flipping the flag; afterwards the
	// scheduler may already have cleared its active slot.
	st := a.eng.Status()
	cancelled := a.eng.CancelCurrent()

	resp := CancelResponse{Cancelled: cancelled}
	if cancelled {
		resp.RunID = st.ActiveRunID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}
