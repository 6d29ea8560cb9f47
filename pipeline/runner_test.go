package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/isethius/Autowebsites-sub001/backoff"
	"github.com/isethius/Autowebsites-sub001/campaign"
	"github.com/isethius/Autowebsites-sub001/clock"
	"github.com/isethius/Autowebsites-sub001/discovery"
	"github.com/isethius/Autowebsites-sub001/ext"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/outreach"
	"github.com/isethius/Autowebsites-sub001/preview"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
	"github.com/isethius/Autowebsites-sub001/store/memory"
)

// ──────────────────────────────────────────────────
// Stubs and helpers
// ──────────────────────────────────────────────────

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig is the default config tuned so tests finish quickly.
func testConfig() campaign.Config {
	cfg := campaign.Default()
	cfg.DelayBetweenLeads = time.Millisecond
	cfg.MaxConcurrentLeads = 2
	return cfg
}

func testRun(t *testing.T, cfg campaign.Config) *run.Run {
	t.Helper()
	rn := run.New(run.TriggerCron, cfg)
	if err := rn.MarkRunning(time.Now()); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	return rn
}

// makeLeads builds n qualifying leads (no website, email set).
func makeLeads(n int, prefix string) []*lead.Lead {
	leads := make([]*lead.Lead, n)
	for i := range leads {
		l := lead.New(fmt.Sprintf("%s %d", prefix, i+1), "plumbing", "austin-tx")
		l.Email = fmt.Sprintf("owner-%d@example.test", i+1)
		leads[i] = l
	}
	return leads
}

// fixedSource hands out the given leads for every pair, respecting limit.
func fixedSource(leads ...*lead.Lead) discovery.Source {
	return discovery.SourceFunc(func(_ context.Context, _, _ string, limit int) ([]*lead.Lead, error) {
		if limit < len(leads) {
			return leads[:limit], nil
		}
		return leads, nil
	})
}

type stubGenerator struct {
	mu          sync.Mutex
	calls       int
	failFor     map[string]error
	panicFor    string
	delay       time.Duration
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (g *stubGenerator) Generate(ctx context.Context, l *lead.Lead) (*preview.Content, error) {
	cur := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		prev := g.maxInFlight.Load()
		if cur <= prev || g.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.panicFor != "" && l.BusinessName == g.panicFor {
		panic("generator blew up")
	}
	if err := g.failFor[l.BusinessName]; err != nil {
		return nil, err
	}
	return &preview.Content{Headline: "A new site for " + l.BusinessName}, nil
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type stubDeployer struct {
	mu      sync.Mutex
	calls   int
	failFor map[string]error
}

func (d *stubDeployer) Deploy(_ context.Context, l *lead.Lead, _ *preview.Content) (string, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if err := d.failFor[l.BusinessName]; err != nil {
		return "", err
	}
	return "https://previews.test/" + l.ID.String(), nil
}

func (d *stubDeployer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type stubComposer struct {
	err error
}

func (c stubComposer) Compose(_ context.Context, l *lead.Lead, previewURL string) (*outreach.Message, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &outreach.Message{To: l.Email, Subject: "A website concept", Body: previewURL}, nil
}

type stubSender struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]error
	onSend  func()
}

func (s *stubSender) Send(_ context.Context, l *lead.Lead, _ *outreach.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[l.BusinessName]; err != nil {
		return "", err
	}
	s.sent = append(s.sent, l.BusinessName)
	if s.onSend != nil {
		s.onSend()
	}
	return fmt.Sprintf("msg-%d", len(s.sent)), nil
}

func (s *stubSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// skipRecorder captures LeadSkipped reasons across the whole cycle.
type skipRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *skipRecorder) Name() string { return "skip-recorder" }

func (r *skipRecorder) OnLeadSkipped(_ context.Context, _ id.RunID, _ *lead.Lead, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
	return nil
}

func (r *skipRecorder) count(reason string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.reasons {
		if got == reason {
			n++
		}
	}
	return n
}

// testDeps bundles one runner's collaborator stubs.
type testDeps struct {
	src   discovery.Source
	gen   *stubGenerator
	dep   *stubDeployer
	comp  outreach.Composer
	send  *stubSender
	reg   *ext.Registry
	skips *skipRecorder
}

func newTestDeps(src discovery.Source) *testDeps {
	skips := &skipRecorder{}
	reg := ext.NewRegistry(testLogger())
	reg.Register(skips)
	return &testDeps{
		src:   src,
		gen:   &stubGenerator{},
		dep:   &stubDeployer{},
		comp:  stubComposer{},
		send:  &stubSender{},
		reg:   reg,
		skips: skips,
	}
}

func (d *testDeps) runner(opts ...RunnerOption) *Runner {
	base := []RunnerOption{WithRetryPolicy(backoff.Policy{Attempts: 1})}
	return NewRunner(d.src, d.gen, d.dep, d.comp, d.send, d.reg, testLogger(), append(base, opts...)...)
}

func countStatuses(results []*lead.Result) map[lead.Status]int {
	counts := make(map[lead.Status]int)
	for _, res := range results {
		counts[res.Status]++
	}
	return counts
}

func limitsFor(cfg campaign.Config) campaign.Limits {
	return campaign.Limits{MaxLeads: cfg.MaxLeads, MaxEmails: cfg.MaxEmails}
}

func onePair() []campaign.Pair {
	return []campaign.Pair{{Industry: "plumbing", Location: "austin-tx"}}
}

// ──────────────────────────────────────────────────
// Full-cycle behavior
// ──────────────────────────────────────────────────

func TestRunner_FullCycle(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(fixedSource(makeLeads(3, "Plumber")...))
	cfg := testConfig()
	rn := testRun(t, cfg)

	out, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Cancelled {
		t.Fatal("cycle reported cancelled")
	}

	want := run.Stats{
		Discovered:        3,
		Qualified:         3,
		PreviewsGenerated: 3,
		PreviewsDeployed:  3,
		EmailsSent:        3,
	}
	got := rn.Stats
	if got.Discovered != want.Discovered || got.Qualified != want.Qualified ||
		got.PreviewsGenerated != want.PreviewsGenerated ||
		got.PreviewsDeployed != want.PreviewsDeployed ||
		got.EmailsSent != want.EmailsSent {
		t.Errorf("stats = %+v, want counters %+v", got, want)
	}
	if got.Skipped != 0 || got.LeadsFailed != 0 || got.EmailsFailed != 0 {
		t.Errorf("unexpected failures in stats: %+v", got)
	}
	if len(rn.Errors) != 0 {
		t.Errorf("errors = %v, want none", rn.Errors)
	}
	if got.ByIndustry["plumbing"] != 3 {
		t.Errorf("ByIndustry[plumbing] = %d, want 3", got.ByIndustry["plumbing"])
	}
	if got.ByLocation["austin-tx"] != 3 {
		t.Errorf("ByLocation[austin-tx] = %d, want 3", got.ByLocation["austin-tx"])
	}
	for _, phase := range []run.Phase{run.PhaseDiscovery, run.PhaseQualify, run.PhasePreview, run.PhaseDeploy, run.PhaseEmail} {
		if _, ok := got.PhaseDurations[phase]; !ok {
			t.Errorf("PhaseDurations missing %s", phase)
		}
	}

	if len(out.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(out.Results))
	}
	for _, res := range out.Results {
		if res.Status != lead.StatusOK {
			t.Errorf("lead %s status = %s, want ok", res.Lead.BusinessName, res.Status)
		}
		if res.PreviewURL == "" || res.MessageID == "" {
			t.Errorf("lead %s missing outputs: url=%q msg=%q", res.Lead.BusinessName, res.PreviewURL, res.MessageID)
		}
	}
}

func TestRunner_LeadCapBoundsDiscovery(t *testing.T) {
	t.Parallel()

	// Effective limits 3/3 even though the source can offer 5.
	var gotLimit atomic.Int32
	src := discovery.SourceFunc(func(_ context.Context, _, _ string, limit int) ([]*lead.Lead, error) {
		gotLimit.Store(int32(limit))
		all := makeLeads(5, "Roofer")
		if limit < len(all) {
			all = all[:limit]
		}
		return all, nil
	})
	deps := newTestDeps(src)
	cfg := testConfig()
	rn := testRun(t, cfg)

	limits := campaign.Limits{MaxLeads: 3, MaxEmails: 3}
	out, err := deps.runner().Execute(context.Background(), rn, limits, onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := gotLimit.Load(); got != 3 {
		t.Errorf("source saw limit %d, want 3", got)
	}
	if rn.Stats.Discovered != 3 {
		t.Errorf("Discovered = %d, want 3", rn.Stats.Discovered)
	}
	if rn.Stats.EmailsSent != 3 {
		t.Errorf("EmailsSent = %d, want 3", rn.Stats.EmailsSent)
	}
	if len(out.Results) != 3 {
		t.Errorf("results = %d, want 3", len(out.Results))
	}
}

func TestRunner_PreviewFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	// 10 qualified leads, 3 fail preview generation. The cycle still
	// finishes cleanly with exactly 3 preview-phase errors.
	leads := makeLeads(10, "Landscaper")
	deps := newTestDeps(fixedSource(leads...))
	deps.gen.failFor = map[string]error{
		"Landscaper 2": errors.New("model overloaded"),
		"Landscaper 5": errors.New("model overloaded"),
		"Landscaper 9": errors.New("model overloaded"),
	}
	cfg := testConfig()
	cfg.MaxConcurrentLeads = 3
	rn := testRun(t, cfg)

	out, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Cancelled {
		t.Fatal("cycle reported cancelled")
	}

	if rn.Stats.PreviewsGenerated != 7 {
		t.Errorf("PreviewsGenerated = %d, want 7", rn.Stats.PreviewsGenerated)
	}
	if rn.Stats.LeadsFailed != 3 {
		t.Errorf("LeadsFailed = %d, want 3", rn.Stats.LeadsFailed)
	}
	if rn.Stats.EmailsSent != 7 {
		t.Errorf("EmailsSent = %d, want 7", rn.Stats.EmailsSent)
	}
	if len(rn.Errors) != 3 {
		t.Fatalf("errors = %d, want 3: %v", len(rn.Errors), rn.Errors)
	}
	for _, e := range rn.Errors {
		if e.Phase != run.PhasePreview {
			t.Errorf("error phase = %s, want preview", e.Phase)
		}
		if e.LeadID.IsNil() {
			t.Error("preview error missing lead id")
		}
	}

	counts := countStatuses(out.Results)
	if counts[lead.StatusFailed] != 3 || counts[lead.StatusOK] != 7 {
		t.Errorf("status counts = %v, want 3 failed / 7 ok", counts)
	}
}

func TestRunner_DiscoveryFailureContinuesToNextPair(t *testing.T) {
	t.Parallel()

	src := discovery.SourceFunc(func(_ context.Context, industry, _ string, _ int) ([]*lead.Lead, error) {
		if industry == "roofing" {
			return nil, errors.New("directory timeout")
		}
		return makeLeads(2, "Plumber"), nil
	})
	deps := newTestDeps(src)
	cfg := testConfig()
	rn := testRun(t, cfg)

	schedule := []campaign.Pair{
		{Industry: "roofing", Location: "austin-tx"},
		{Industry: "plumbing", Location: "austin-tx"},
	}
	_, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), schedule, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if rn.Stats.Discovered != 2 {
		t.Errorf("Discovered = %d, want 2", rn.Stats.Discovered)
	}
	if len(rn.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(rn.Errors))
	}
	e := rn.Errors[0]
	if e.Phase != run.PhaseDiscovery {
		t.Errorf("error phase = %s, want discovery", e.Phase)
	}
	if !e.LeadID.IsNil() {
		t.Error("discovery error should not carry a lead id")
	}
	if !strings.Contains(e.Message, "roofing in austin-tx") {
		t.Errorf("error message = %q, want pair named", e.Message)
	}
	if rn.Stats.EmailsSent != 2 {
		t.Errorf("EmailsSent = %d, want 2", rn.Stats.EmailsSent)
	}
}

func TestRunner_DiscoveryRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	src := discovery.SourceFunc(func(_ context.Context, _, _ string, _ int) ([]*lead.Lead, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("connection reset")
		}
		return makeLeads(1, "Electrician"), nil
	})
	deps := newTestDeps(src)
	cfg := testConfig()
	rn := testRun(t, cfg)

	policy := backoff.Policy{Attempts: 3, Strategy: backoff.NewConstant(0)}
	_, err := deps.runner(WithRetryPolicy(policy)).Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("source calls = %d, want 2", got)
	}
	if rn.Stats.Discovered != 1 {
		t.Errorf("Discovered = %d, want 1", rn.Stats.Discovered)
	}
	if len(rn.Errors) != 0 {
		t.Errorf("errors = %v, want none after successful retry", rn.Errors)
	}
}

func TestRunner_UnqualifiedLeadsSkipped(t *testing.T) {
	t.Parallel()

	noSite := lead.New("No Site Plumbing", "plumbing", "austin-tx")
	noSite.Email = "a@example.test"
	poorSite := lead.New("Poor Site Plumbing", "plumbing", "austin-tx")
	poorSite.Email = "b@example.test"
	poorSite.Website = "https://poor.example"
	poorSite.WebsiteScore = 3
	goodSite := lead.New("Good Site Plumbing", "plumbing", "austin-tx")
	goodSite.Email = "c@example.test"
	goodSite.Website = "https://good.example"
	goodSite.WebsiteScore = 9

	deps := newTestDeps(fixedSource(noSite, poorSite, goodSite))
	cfg := testConfig()
	rn := testRun(t, cfg)

	_, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if rn.Stats.Qualified != 2 {
		t.Errorf("Qualified = %d, want 2", rn.Stats.Qualified)
	}
	if rn.Stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", rn.Stats.Skipped)
	}
	if got := deps.skips.count("unqualified"); got != 1 {
		t.Errorf("unqualified skip events = %d, want 1", got)
	}
	if rn.Stats.EmailsSent != 2 {
		t.Errorf("EmailsSent = %d, want 2", rn.Stats.EmailsSent)
	}
}

// ──────────────────────────────────────────────────
// Email cap policies
// ──────────────────────────────────────────────────

func TestRunner_EmailCapPreviewOnly(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(fixedSource(makeLeads(5, "Plumber")...))
	cfg := testConfig()
	cfg.OnEmailCap = campaign.CapPreviewOnly
	rn := testRun(t, cfg)

	limits := campaign.Limits{MaxLeads: 5, MaxEmails: 2}
	out, err := deps.runner().Execute(context.Background(), rn, limits, onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if rn.Stats.EmailsSent != 2 {
		t.Errorf("EmailsSent = %d, want 2", rn.Stats.EmailsSent)
	}
	// Previews keep flowing after the cap under preview_only.
	if rn.Stats.PreviewsGenerated != 5 {
		t.Errorf("PreviewsGenerated = %d, want 5", rn.Stats.PreviewsGenerated)
	}
	if got := deps.skips.count("email_cap"); got != 3 {
		t.Errorf("email_cap skip events = %d, want 3", got)
	}
	counts := countStatuses(out.Results)
	if counts[lead.StatusOK] != 2 || counts[lead.StatusPartial] != 3 {
		t.Errorf("status counts = %v, want 2 ok / 3 partial", counts)
	}
	if rn.Stats.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0 (capped leads were still processed)", rn.Stats.Skipped)
	}
}

func TestRunner_EmailCapStopHaltsDispatch(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(fixedSource(makeLeads(8, "Roofer")...))
	cfg := testConfig()
	cfg.OnEmailCap = campaign.CapStop
	cfg.MaxConcurrentLeads = 1
	rn := testRun(t, cfg)

	limits := campaign.Limits{MaxLeads: 8, MaxEmails: 1}
	out, err := deps.runner().Execute(context.Background(), rn, limits, onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Cancelled {
		t.Fatal("cap stop must not report cancellation")
	}

	if rn.Stats.EmailsSent != 1 {
		t.Errorf("EmailsSent = %d, want 1", rn.Stats.EmailsSent)
	}
	// Lead 1 emailed; lead 2 discovered the cap after its preview. With
	// a single worker nothing else gets past preview.
	if rn.Stats.PreviewsGenerated != 2 {
		t.Errorf("PreviewsGenerated = %d, want 2", rn.Stats.PreviewsGenerated)
	}
	if rn.Stats.Skipped != 6 {
		t.Errorf("Skipped = %d, want 6", rn.Stats.Skipped)
	}
	if len(out.Results) != 8 {
		t.Fatalf("results = %d, want 8", len(out.Results))
	}
	counts := countStatuses(out.Results)
	if counts[lead.StatusOK] != 1 || counts[lead.StatusPartial] != 1 || counts[lead.StatusSkipped] != 6 {
		t.Errorf("status counts = %v, want 1 ok / 1 partial / 6 skipped", counts)
	}
}

// ──────────────────────────────────────────────────
// Cancellation
// ──────────────────────────────────────────────────

func TestRunner_CancelBetweenDispatches(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(fixedSource(makeLeads(6, "Plumber")...))
	cfg := testConfig()
	cfg.MaxConcurrentLeads = 1
	rn := testRun(t, cfg)

	flag := NewCancelFlag()
	deps.send.onSend = flag.Cancel

	out, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), flag)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !out.Cancelled {
		t.Fatal("outcome not marked cancelled")
	}
	// The first lead finished (in-flight work completes); everything
	// after the flag was observed is skipped.
	if rn.Stats.EmailsSent != 1 {
		t.Errorf("EmailsSent = %d, want 1", rn.Stats.EmailsSent)
	}
	if rn.Stats.Skipped != 5 {
		t.Errorf("Skipped = %d, want 5", rn.Stats.Skipped)
	}
	if got := deps.skips.count("cancelled"); got != 5 {
		t.Errorf("cancelled skip events = %d, want 5", got)
	}
	if len(out.Results) != 6 {
		t.Errorf("results = %d, want 6", len(out.Results))
	}
}

func TestRunner_CancelBeforeStartDiscoversNothing(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	src := discovery.SourceFunc(func(_ context.Context, _, _ string, _ int) ([]*lead.Lead, error) {
		calls.Add(1)
		return makeLeads(2, "Plumber"), nil
	})
	deps := newTestDeps(src)
	cfg := testConfig()
	rn := testRun(t, cfg)

	flag := NewCancelFlag()
	flag.Cancel()

	out, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), flag)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !out.Cancelled {
		t.Fatal("outcome not marked cancelled")
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("source calls = %d, want 0", got)
	}
	if rn.Stats.Discovered != 0 {
		t.Errorf("Discovered = %d, want 0", rn.Stats.Discovered)
	}
}

func TestRunner_ContextCancellationStopsCycle(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	deps := newTestDeps(fixedSource(makeLeads(6, "Plumber")...))
	deps.send.onSend = cancel
	cfg := testConfig()
	cfg.MaxConcurrentLeads = 1
	rn := testRun(t, cfg)

	out, err := deps.runner().Execute(ctx, rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !out.Cancelled {
		t.Fatal("outcome not marked cancelled")
	}
	if rn.Stats.EmailsSent != 1 {
		t.Errorf("EmailsSent = %d, want 1", rn.Stats.EmailsSent)
	}
}

// ──────────────────────────────────────────────────
// Concurrency and isolation
// ──────────────────────────────────────────────────

func TestRunner_PoolBoundsConcurrency(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(fixedSource(makeLeads(9, "Plumber")...))
	deps.gen.delay = 10 * time.Millisecond
	cfg := testConfig()
	cfg.MaxConcurrentLeads = 3
	rn := testRun(t, cfg)

	_, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	peak := deps.gen.maxInFlight.Load()
	if peak > 3 {
		t.Errorf("peak concurrent generations = %d, want <= 3", peak)
	}
	if peak < 2 {
		t.Errorf("peak concurrent generations = %d, want parallel execution", peak)
	}
}

func TestRunner_PanicIsolatedToLead(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(fixedSource(makeLeads(4, "Plumber")...))
	deps.gen.panicFor = "Plumber 2"
	cfg := testConfig()
	rn := testRun(t, cfg)

	out, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if rn.Stats.LeadsFailed != 1 {
		t.Errorf("LeadsFailed = %d, want 1", rn.Stats.LeadsFailed)
	}
	if rn.Stats.EmailsSent != 3 {
		t.Errorf("EmailsSent = %d, want 3", rn.Stats.EmailsSent)
	}
	if len(rn.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(rn.Errors))
	}
	if rn.Errors[0].Phase != run.PhaseOther {
		t.Errorf("error phase = %s, want other", rn.Errors[0].Phase)
	}
	if !strings.Contains(rn.Errors[0].Message, "panic processing lead") {
		t.Errorf("error message = %q, want recovered panic", rn.Errors[0].Message)
	}
	counts := countStatuses(out.Results)
	if counts[lead.StatusFailed] != 1 || counts[lead.StatusOK] != 3 {
		t.Errorf("status counts = %v, want 1 failed / 3 ok", counts)
	}
}

func TestRunner_ComposeFailureRecorded(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(fixedSource(makeLeads(2, "Plumber")...))
	deps.comp = stubComposer{err: errors.New("bad template")}
	cfg := testConfig()
	rn := testRun(t, cfg)

	out, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if rn.Stats.EmailsSent != 0 {
		t.Errorf("EmailsSent = %d, want 0", rn.Stats.EmailsSent)
	}
	if rn.Stats.EmailsFailed != 2 {
		t.Errorf("EmailsFailed = %d, want 2", rn.Stats.EmailsFailed)
	}
	if len(rn.Errors) != 2 {
		t.Fatalf("errors = %d, want 2", len(rn.Errors))
	}
	for _, e := range rn.Errors {
		if e.Phase != run.PhaseEmail {
			t.Errorf("error phase = %s, want email", e.Phase)
		}
	}
	counts := countStatuses(out.Results)
	if counts[lead.StatusPartial] != 2 {
		t.Errorf("status counts = %v, want 2 partial", counts)
	}
}

func TestRunner_DeployFailureIsPartial(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(fixedSource(makeLeads(3, "Plumber")...))
	deps.dep.failFor = map[string]error{"Plumber 3": errors.New("hosting quota")}
	cfg := testConfig()
	rn := testRun(t, cfg)

	out, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if rn.Stats.PreviewsGenerated != 3 {
		t.Errorf("PreviewsGenerated = %d, want 3", rn.Stats.PreviewsGenerated)
	}
	if rn.Stats.PreviewsDeployed != 2 {
		t.Errorf("PreviewsDeployed = %d, want 2", rn.Stats.PreviewsDeployed)
	}
	// The failed lead never reaches email.
	if rn.Stats.EmailsSent != 2 {
		t.Errorf("EmailsSent = %d, want 2", rn.Stats.EmailsSent)
	}
	if rn.Stats.LeadsFailed != 1 {
		t.Errorf("LeadsFailed = %d, want 1", rn.Stats.LeadsFailed)
	}
	if len(rn.Errors) != 1 || rn.Errors[0].Phase != run.PhaseDeploy {
		t.Errorf("errors = %v, want one deploy-phase entry", rn.Errors)
	}
	counts := countStatuses(out.Results)
	if counts[lead.StatusPartial] != 1 || counts[lead.StatusOK] != 2 {
		t.Errorf("status counts = %v, want 1 partial / 2 ok", counts)
	}
}

func TestRunner_SendFailureRecorded(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(fixedSource(makeLeads(3, "Plumber")...))
	deps.send.failFor = map[string]error{"Plumber 1": errors.New("550 rejected")}
	cfg := testConfig()
	rn := testRun(t, cfg)

	out, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if rn.Stats.EmailsSent != 2 {
		t.Errorf("EmailsSent = %d, want 2", rn.Stats.EmailsSent)
	}
	if rn.Stats.EmailsFailed != 1 {
		t.Errorf("EmailsFailed = %d, want 1", rn.Stats.EmailsFailed)
	}
	if rn.Stats.LeadsFailed != 1 {
		t.Errorf("LeadsFailed = %d, want 1", rn.Stats.LeadsFailed)
	}
	if len(rn.Errors) != 1 || rn.Errors[0].Phase != run.PhaseEmail {
		t.Errorf("errors = %v, want one email-phase entry", rn.Errors)
	}
	counts := countStatuses(out.Results)
	if counts[lead.StatusPartial] != 1 || counts[lead.StatusOK] != 2 {
		t.Errorf("status counts = %v, want 1 partial / 2 ok", counts)
	}
}

// ──────────────────────────────────────────────────
// Feature toggles and edge cases
// ──────────────────────────────────────────────────

func TestRunner_DeployDisabled(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(fixedSource(makeLeads(2, "Plumber")...))
	cfg := testConfig()
	cfg.DeployPreviews = false
	rn := testRun(t, cfg)

	out, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if deps.dep.callCount() != 0 {
		t.Errorf("deployer calls = %d, want 0", deps.dep.callCount())
	}
	if rn.Stats.PreviewsDeployed != 0 {
		t.Errorf("PreviewsDeployed = %d, want 0", rn.Stats.PreviewsDeployed)
	}
	if rn.Stats.PreviewsGenerated != 2 || rn.Stats.EmailsSent != 2 {
		t.Errorf("stats = %+v, want previews and emails unaffected", rn.Stats)
	}
	for _, res := range out.Results {
		if res.PreviewURL != "" {
			t.Errorf("lead %s has preview URL %q with deploys disabled", res.Lead.BusinessName, res.PreviewURL)
		}
	}
}

func TestRunner_SendDisabled(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(fixedSource(makeLeads(2, "Plumber")...))
	cfg := testConfig()
	cfg.SendEmails = false
	rn := testRun(t, cfg)

	out, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if rn.Stats.EmailsSent != 0 {
		t.Errorf("EmailsSent = %d, want 0", rn.Stats.EmailsSent)
	}
	if deps.send.sentCount() != 0 {
		t.Errorf("sender calls = %d, want 0", deps.send.sentCount())
	}
	if rn.Stats.PreviewsDeployed != 2 {
		t.Errorf("PreviewsDeployed = %d, want 2", rn.Stats.PreviewsDeployed)
	}
	counts := countStatuses(out.Results)
	if counts[lead.StatusOK] != 2 {
		t.Errorf("status counts = %v, want 2 ok", counts)
	}
}

func TestRunner_DuplicateLeadsDropped(t *testing.T) {
	t.Parallel()

	// A weighted schedule revisits the same pair; the same business
	// surfacing twice must only be processed once.
	var calls atomic.Int32
	src := discovery.SourceFunc(func(_ context.Context, _, _ string, _ int) ([]*lead.Lead, error) {
		calls.Add(1)
		l := lead.New("Hill Country Plumbing", "plumbing", "austin-tx")
		l.Email = "owner@hillcountry.test"
		return []*lead.Lead{l}, nil
	})
	deps := newTestDeps(src)
	cfg := testConfig()
	rn := testRun(t, cfg)

	schedule := []campaign.Pair{
		{Industry: "plumbing", Location: "austin-tx"},
		{Industry: "plumbing", Location: "austin-tx"},
	}
	_, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), schedule, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("source calls = %d, want 2", got)
	}
	if rn.Stats.Discovered != 1 {
		t.Errorf("Discovered = %d, want 1", rn.Stats.Discovered)
	}
	if rn.Stats.EmailsSent != 1 {
		t.Errorf("EmailsSent = %d, want 1", rn.Stats.EmailsSent)
	}
}

func TestRunner_NoSourceConfigured(t *testing.T) {
	t.Parallel()

	r := NewRunner(nil, &stubGenerator{}, &stubDeployer{}, stubComposer{}, &stubSender{}, nil, testLogger())
	cfg := testConfig()
	rn := testRun(t, cfg)

	_, err := r.Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err == nil {
		t.Fatal("expected error for missing discovery source")
	}
	if !strings.Contains(err.Error(), "no discovery source") {
		t.Errorf("error = %v, want missing-source message", err)
	}
}

func TestRunner_LeadWithoutEmailSkipsSend(t *testing.T) {
	t.Parallel()

	withEmail := lead.New("Has Email Plumbing", "plumbing", "austin-tx")
	withEmail.Email = "owner@example.test"
	noEmail := lead.New("No Email Plumbing", "plumbing", "austin-tx")

	deps := newTestDeps(fixedSource(withEmail, noEmail))
	cfg := testConfig()
	rn := testRun(t, cfg)

	out, err := deps.runner().Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if rn.Stats.EmailsSent != 1 {
		t.Errorf("EmailsSent = %d, want 1", rn.Stats.EmailsSent)
	}
	if rn.Stats.EmailsFailed != 0 {
		t.Errorf("EmailsFailed = %d, want 0", rn.Stats.EmailsFailed)
	}
	// The email-less lead still got its preview.
	if rn.Stats.PreviewsGenerated != 2 {
		t.Errorf("PreviewsGenerated = %d, want 2", rn.Stats.PreviewsGenerated)
	}
	counts := countStatuses(out.Results)
	if counts[lead.StatusOK] != 1 || counts[lead.StatusPartial] != 1 {
		t.Errorf("status counts = %v, want 1 ok / 1 partial", counts)
	}
}

// ──────────────────────────────────────────────────
// Quota recording and checkpoints
// ──────────────────────────────────────────────────

func TestRunner_RecordsDailyCounters(t *testing.T) {
	t.Parallel()

	mem := memory.New()
	manual := clock.NewManual(time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC))
	quotas := quota.NewProvider(mem, 50, quota.WithClock(manual), quota.WithLogger(testLogger()))

	deps := newTestDeps(fixedSource(makeLeads(3, "Plumber")...))
	cfg := testConfig()
	rn := testRun(t, cfg)

	_, err := deps.runner(WithQuota(quotas)).Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	day := quota.DayKey(manual.Now())
	ctx := context.Background()
	for _, tc := range []struct {
		kind quota.Kind
		want int
	}{
		{quota.KindLeads, 3},
		{quota.KindAICalls, 3},
		{quota.KindDeploys, 3},
		{quota.KindEmails, 3},
	} {
		got, err := mem.TodayCount(ctx, tc.kind, day)
		if err != nil {
			t.Fatalf("TodayCount(%s): %v", tc.kind, err)
		}
		if got != tc.want {
			t.Errorf("counter %s = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

// checkpointStore records the stats visible at each UpdateRun call.
type checkpointStore struct {
	mu      sync.Mutex
	updates []run.Stats
}

func (s *checkpointStore) CreateRun(context.Context, *run.Run) error { return nil }
func (s *checkpointStore) GetRun(context.Context, id.RunID) (*run.Run, error) {
	return nil, errors.New("not implemented")
}
func (s *checkpointStore) UpdateRun(_ context.Context, r *run.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, r.Stats.Clone())
	return nil
}
func (s *checkpointStore) ListRuns(context.Context, run.ListOpts) ([]*run.Run, error) {
	return nil, nil
}
func (s *checkpointStore) CountRuns(context.Context, run.CountOpts) (int64, error) {
	return 0, nil
}
func (s *checkpointStore) LatestRun(context.Context) (*run.Run, error) {
	return nil, errors.New("not implemented")
}

func TestRunner_CheckpointsBetweenPhases(t *testing.T) {
	t.Parallel()

	store := &checkpointStore{}
	deps := newTestDeps(fixedSource(makeLeads(3, "Plumber")...))
	cfg := testConfig()
	rn := testRun(t, cfg)

	_, err := deps.runner(WithRunStore(store)).Execute(context.Background(), rn, limitsFor(cfg), onePair(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.updates) != 2 {
		t.Fatalf("checkpoints = %d, want 2", len(store.updates))
	}
	// First checkpoint lands after discovery, before qualification.
	if store.updates[0].Discovered != 3 || store.updates[0].Qualified != 0 {
		t.Errorf("first checkpoint = %+v, want discovery only", store.updates[0])
	}
	if store.updates[1].Qualified != 3 {
		t.Errorf("second checkpoint = %+v, want qualification counted", store.updates[1])
	}
}

func TestCancelFlag_NilSafe(t *testing.T) {
	t.Parallel()

	var flag *CancelFlag
	if flag.Cancelled() {
		t.Error("nil flag reports cancelled")
	}

	flag = NewCancelFlag()
	if flag.Cancelled() {
		t.Error("fresh flag reports cancelled")
	}
	flag.Cancel()
	flag.Cancel()
	if !flag.Cancelled() {
		t.Error("set flag not reported")
	}
}
