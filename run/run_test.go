package run_test

import (
	"errors"
	"testing"
	"time"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/campaign"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/run"
)

func TestNew_PendingWithSnapshot(t *testing.T) {
	cfg := campaign.Default()
	r := run.New(run.TriggerManual, cfg)

	if r.State != run.StatePending {
		t.Errorf("State = %q, want pending", r.State)
	}
	if r.ID.IsNil() {
		t.Error("expected a generated run ID")
	}
	if r.Trigger != run.TriggerManual {
		t.Errorf("Trigger = %q, want manual", r.Trigger)
	}

	// The snapshot must not share slices with the caller's config.
	cfg.Industries[0] = "mutated"
	if r.Config.Industries[0] == "mutated" {
		t.Error("Run.Config shares the caller's Industries slice")
	}
}

func TestLifecycle_HappyPath(t *testing.T) {
	r := run.New(run.TriggerCron, campaign.Default())
	start := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)

	if err := r.MarkRunning(start); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if r.State != run.StateRunning {
		t.Errorf("State = %q, want running", r.State)
	}
	if !r.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", r.StartedAt, start)
	}

	end := start.Add(20 * time.Minute)
	if err := r.MarkCompleted(end); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if !r.State.Terminal() {
		t.Error("completed should be terminal")
	}
	if r.CompletedAt == nil || !r.CompletedAt.Equal(end) {
		t.Errorf("CompletedAt = %v, want %v", r.CompletedAt, end)
	}
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	now := time.Now()

	t.Run("complete before running", func(t *testing.T) {
		r := run.New(run.TriggerCron, campaign.Default())
		if err := r.MarkCompleted(now); !errors.Is(err, autowebsites.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("run twice", func(t *testing.T) {
		r := run.New(run.TriggerCron, campaign.Default())
		if err := r.MarkRunning(now); err != nil {
			t.Fatal(err)
		}
		if err := r.MarkRunning(now); !errors.Is(err, autowebsites.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("terminal is immutable", func(t *testing.T) {
		r := run.New(run.TriggerCron, campaign.Default())
		if err := r.MarkRunning(now); err != nil {
			t.Fatal(err)
		}
		if err := r.MarkCancelled(now); err != nil {
			t.Fatal(err)
		}
		if err := r.MarkFailed(now); !errors.Is(err, autowebsites.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState after cancel, got %v", err)
		}
	})
}

func TestStateTerminal(t *testing.T) {
	tests := []struct {
		state run.State
		want  bool
	}{
		{run.StatePending, false},
		{run.StateRunning, false},
		{run.StateCompleted, true},
		{run.StateFailed, true},
		{run.StateCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestRecordError_AppendOnly(t *testing.T) {
	r := run.New(run.TriggerCron, campaign.Default())
	at := time.Now()

	leadID := id.NewLeadID()
	r.RecordError(at, run.PhasePreview, leadID, "render blew up")
	r.RecordError(at, run.PhaseDiscovery, id.Nil, "directory timed out")

	if len(r.Errors) != 2 {
		t.Fatalf("len(Errors) = %d, want 2", len(r.Errors))
	}
	if r.Errors[0].Phase != run.PhasePreview || r.Errors[0].LeadID != leadID {
		t.Errorf("first error = %+v, want preview/lead-scoped", r.Errors[0])
	}
	if !r.Errors[1].LeadID.IsNil() {
		t.Error("second error should not be lead-scoped")
	}
}

func TestClone_Independent(t *testing.T) {
	r := run.New(run.TriggerCron, campaign.Default())
	r.Stats.ByIndustry = map[string]int{"plumbing": 2}
	r.RecordError(time.Now(), run.PhaseEmail, id.Nil, "smtp refused")

	cp := r.Clone()
	cp.Stats.ByIndustry["plumbing"] = 99
	cp.Errors[0].Message = "mutated"
	cp.Config.Industries[0] = "mutated"

	if r.Stats.ByIndustry["plumbing"] != 2 {
		t.Error("Clone shares ByIndustry map")
	}
	if r.Errors[0].Message == "mutated" {
		t.Error("Clone shares Errors slice")
	}
	if r.Config.Industries[0] == "mutated" {
		t.Error("Clone shares Config slices")
	}
}
