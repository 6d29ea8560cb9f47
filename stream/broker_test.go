package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/isethius/Autowebsites-sub001/campaign"
	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRun(t *testing.T) *run.Run {
	t.Helper()
	rn := run.New(run.TriggerManual, campaign.Default())
	if err := rn.MarkRunning(time.Now().UTC()); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	return rn
}

// recv waits for one event or fails the test.
func recv(t *testing.T, sub *Subscriber) *Event {
	t.Helper()
	select {
	case evt := <-sub.C():
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// expectNone asserts no event arrives within a short window.
func expectNone(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case evt := <-sub.C():
		t.Fatalf("unexpected event %s", evt.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_SubscribeAndPublish(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("sub-1", TopicFirehose)

	rn := testRun(t)
	if err := b.OnRunStarted(context.Background(), rn); err != nil {
		t.Fatalf("OnRunStarted: %v", err)
	}

	evt := recv(t, sub)
	if evt.Type != EventRunStarted {
		t.Errorf("event type = %s, want %s", evt.Type, EventRunStarted)
	}
	if evt.Topic != RunTopic(rn.ID.String()) {
		t.Errorf("event topic = %q, want %q", evt.Topic, RunTopic(rn.ID.String()))
	}

	var data RunEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.RunID != rn.ID.String() {
		t.Errorf("data run_id = %q, want %q", data.RunID, rn.ID.String())
	}
	if data.Trigger != string(run.TriggerManual) {
		t.Errorf("data trigger = %q, want %q", data.Trigger, run.TriggerManual)
	}
	if data.State != string(run.StateRunning) {
		t.Errorf("data state = %q, want %q", data.State, run.StateRunning)
	}
}

func TestBroker_RunEventFansOutToRunsAndFirehose(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	fire := b.Subscribe("fire", TopicFirehose)
	runs := b.Subscribe("runs", TopicRuns)
	leads := b.Subscribe("leads", TopicLeads)

	if err := b.OnRunStarted(context.Background(), testRun(t)); err != nil {
		t.Fatalf("OnRunStarted: %v", err)
	}

	recv(t, fire)
	recv(t, runs)
	expectNone(t, leads)
}

func TestBroker_LeadEventReachesLeadsTopic(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	leads := b.Subscribe("leads", TopicLeads)
	runs := b.Subscribe("runs", TopicRuns)

	rn := testRun(t)
	l := lead.New("Hartley Plumbing", "plumbing", "Austin, TX")
	if err := b.OnLeadDiscovered(context.Background(), rn.ID, l); err != nil {
		t.Fatalf("OnLeadDiscovered: %v", err)
	}

	evt := recv(t, leads)
	if evt.Type != EventLeadDiscovered {
		t.Errorf("event type = %s, want %s", evt.Type, EventLeadDiscovered)
	}

	var data LeadEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.LeadID != l.ID.String() {
		t.Errorf("data lead_id = %q, want %q", data.LeadID, l.ID.String())
	}
	if data.Business != "Hartley Plumbing" {
		t.Errorf("data business = %q, want %q", data.Business, "Hartley Plumbing")
	}
	if data.Industry != "plumbing" || data.Location != "Austin, TX" {
		t.Errorf("data industry/location = %q/%q", data.Industry, data.Location)
	}

	expectNone(t, runs)
}

func TestBroker_RunEntityTopicIsolation(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	rn1 := testRun(t)
	rn2 := testRun(t)

	watcher := b.Subscribe("watcher", RunTopic(rn1.ID.String()))

	ctx := context.Background()
	l := lead.New("Side Door Roofing", "roofing", "Tulsa, OK")
	if err := b.OnLeadQualified(ctx, rn2.ID, l); err != nil {
		t.Fatalf("OnLeadQualified: %v", err)
	}
	expectNone(t, watcher)

	if err := b.OnLeadQualified(ctx, rn1.ID, l); err != nil {
		t.Fatalf("OnLeadQualified: %v", err)
	}
	evt := recv(t, watcher)
	if evt.Type != EventLeadQualified {
		t.Errorf("event type = %s, want %s", evt.Type, EventLeadQualified)
	}
}

func TestBroker_RunCompletedCarriesStats(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("sub", TopicRuns)

	rn := testRun(t)
	rn.Stats.Discovered = 12
	rn.Stats.EmailsSent = 5
	if err := rn.MarkCompleted(time.Now().UTC()); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	if err := b.OnRunCompleted(context.Background(), rn, 90*time.Second); err != nil {
		t.Fatalf("OnRunCompleted: %v", err)
	}

	evt := recv(t, sub)
	var data RunEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.State != string(run.StateCompleted) {
		t.Errorf("data state = %q, want %q", data.State, run.StateCompleted)
	}
	if data.ElapsedMs != 90_000 {
		t.Errorf("data elapsed_ms = %d, want 90000", data.ElapsedMs)
	}
	if data.Discovered != 12 || data.EmailsSent != 5 {
		t.Errorf("data discovered/emails_sent = %d/%d, want 12/5", data.Discovered, data.EmailsSent)
	}
}

func TestBroker_RunFailedCarriesError(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("sub", TopicRuns)

	rn := testRun(t)
	if err := b.OnRunFailed(context.Background(), rn, errors.New("discovery provider down")); err != nil {
		t.Fatalf("OnRunFailed: %v", err)
	}

	evt := recv(t, sub)
	if evt.Type != EventRunFailed {
		t.Errorf("event type = %s, want %s", evt.Type, EventRunFailed)
	}
	var data RunEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Error != "discovery provider down" {
		t.Errorf("data error = %q", data.Error)
	}
}

func TestBroker_RunSkippedHasNoEntityTopic(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("sub", TopicRuns)

	if err := b.OnRunSkipped(context.Background(), "quota_exhausted"); err != nil {
		t.Fatalf("OnRunSkipped: %v", err)
	}

	evt := recv(t, sub)
	if evt.Type != EventRunSkipped {
		t.Errorf("event type = %s, want %s", evt.Type, EventRunSkipped)
	}
	if evt.Topic != "" {
		t.Errorf("event topic = %q, want empty", evt.Topic)
	}
	var data RunEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Reason != "quota_exhausted" {
		t.Errorf("data reason = %q, want quota_exhausted", data.Reason)
	}
}

func TestBroker_EmailHooks(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("sub", TopicLeads)

	ctx := context.Background()
	rn := testRun(t)
	l := lead.New("Bayshore HVAC", "hvac", "Tampa, FL")

	if err := b.OnEmailSent(ctx, rn.ID, l, "msg-42"); err != nil {
		t.Fatalf("OnEmailSent: %v", err)
	}
	evt := recv(t, sub)
	if evt.Type != EventEmailSent {
		t.Errorf("event type = %s, want %s", evt.Type, EventEmailSent)
	}
	var sent LeadEventData
	if err := json.Unmarshal(evt.Data, &sent); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if sent.MessageID != "msg-42" {
		t.Errorf("data message_id = %q, want msg-42", sent.MessageID)
	}

	if err := b.OnEmailFailed(ctx, rn.ID, l, errors.New("550 mailbox unavailable")); err != nil {
		t.Fatalf("OnEmailFailed: %v", err)
	}
	evt = recv(t, sub)
	if evt.Type != EventEmailFailed {
		t.Errorf("event type = %s, want %s", evt.Type, EventEmailFailed)
	}
	var failed LeadEventData
	if err := json.Unmarshal(evt.Data, &failed); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if failed.Error != "550 mailbox unavailable" {
		t.Errorf("data error = %q", failed.Error)
	}
}

func TestBroker_PreviewDeployedCarriesURL(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("sub", TopicLeads)

	rn := testRun(t)
	l := lead.New("Luna Landscaping", "landscaping", "Boise, ID")
	if err := b.OnPreviewDeployed(context.Background(), rn.ID, l, "https://previews.example.com/luna"); err != nil {
		t.Fatalf("OnPreviewDeployed: %v", err)
	}

	evt := recv(t, sub)
	var data LeadEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.PreviewURL != "https://previews.example.com/luna" {
		t.Errorf("data preview_url = %q", data.PreviewURL)
	}
}

func TestBroker_QuotaWarningOnFirehoseOnly(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	fire := b.Subscribe("fire", TopicFirehose)
	runs := b.Subscribe("runs", TopicRuns)

	snap := &quota.Snapshot{Day: "2026-03-14", DailyLimit: 50, SentToday: 47, Remaining: 3}
	if err := b.OnQuotaWarning(context.Background(), snap); err != nil {
		t.Fatalf("OnQuotaWarning: %v", err)
	}

	evt := recv(t, fire)
	if evt.Type != EventQuotaWarning {
		t.Errorf("event type = %s, want %s", evt.Type, EventQuotaWarning)
	}
	var data QuotaEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Remaining != 3 || data.SentToday != 47 {
		t.Errorf("data remaining/sent = %d/%d, want 3/47", data.Remaining, data.SentToday)
	}

	expectNone(t, runs)
}

func TestBroker_DeliveredOncePerSubscriber(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	// On both firehose and runs; a run event matches both topics.
	sub := b.Subscribe("sub", TopicFirehose, TopicRuns)

	if err := b.OnRunStarted(context.Background(), testRun(t)); err != nil {
		t.Fatalf("OnRunStarted: %v", err)
	}

	recv(t, sub)
	expectNone(t, sub)

	if got := b.Stats().TotalPublished; got != 1 {
		t.Errorf("TotalPublished = %d, want 1", got)
	}
}

func TestBroker_SubscribeTo(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("sub", TopicRuns)

	l := lead.New("Gate City Electric", "electrician", "Greensboro, NC")
	rn := testRun(t)

	if err := b.OnLeadDiscovered(context.Background(), rn.ID, l); err != nil {
		t.Fatalf("OnLeadDiscovered: %v", err)
	}
	expectNone(t, sub)

	b.SubscribeTo("sub", TopicLeads)
	if err := b.OnLeadDiscovered(context.Background(), rn.ID, l); err != nil {
		t.Fatalf("OnLeadDiscovered: %v", err)
	}
	recv(t, sub)
}

func TestBroker_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("sub", TopicRuns, TopicFirehose)

	b.Unsubscribe("sub", TopicRuns, TopicFirehose)

	if err := b.OnRunStarted(context.Background(), testRun(t)); err != nil {
		t.Fatalf("OnRunStarted: %v", err)
	}
	expectNone(t, sub)
}

func TestBroker_RemoveSubscriberClosesChannel(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("sub", TopicFirehose)

	b.RemoveSubscriber("sub")

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Error("expected closed channel, got event")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after RemoveSubscriber")
	}

	if _, ok := b.GetSubscriber("sub"); ok {
		t.Error("subscriber still registered after RemoveSubscriber")
	}

	// Publishing after removal must not panic or deliver.
	if err := b.OnRunStarted(context.Background(), testRun(t)); err != nil {
		t.Fatalf("OnRunStarted: %v", err)
	}
}

func TestBroker_DropsWhenBufferFull(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger(), WithBufferSize(1))
	sub := b.Subscribe("slow", TopicRuns)

	ctx := context.Background()
	rn := testRun(t)
	if err := b.OnRunStarted(ctx, rn); err != nil {
		t.Fatalf("OnRunStarted: %v", err)
	}
	if err := b.OnRunStarted(ctx, rn); err != nil {
		t.Fatalf("OnRunStarted: %v", err)
	}

	if got := sub.Dropped(); got != 1 {
		t.Errorf("sub.Dropped() = %d, want 1", got)
	}
	stats := b.Stats()
	if stats.TotalPublished != 1 {
		t.Errorf("TotalPublished = %d, want 1", stats.TotalPublished)
	}
	if stats.TotalDropped != 1 {
		t.Errorf("TotalDropped = %d, want 1", stats.TotalDropped)
	}

	// The buffered event is still readable.
	recv(t, sub)
}

func TestBroker_Stats(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	b.Subscribe("a", TopicRuns)
	b.Subscribe("b", TopicRuns, TopicLeads)

	stats := b.Stats()
	if stats.SubscriberCount != 2 {
		t.Errorf("SubscriberCount = %d, want 2", stats.SubscriberCount)
	}
	if stats.TopicCount != 2 {
		t.Errorf("TopicCount = %d, want 2", stats.TopicCount)
	}

	b.RemoveSubscriber("a")
	if got := b.Stats().SubscriberCount; got != 1 {
		t.Errorf("SubscriberCount after remove = %d, want 1", got)
	}
}

func TestBroker_OnShutdownClosesSubscribers(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	s1 := b.Subscribe("s1", TopicFirehose)
	s2 := b.Subscribe("s2", TopicRuns)

	if err := b.OnShutdown(context.Background()); err != nil {
		t.Fatalf("OnShutdown: %v", err)
	}

	for _, sub := range []*Subscriber{s1, s2} {
		select {
		case _, ok := <-sub.C():
			if ok {
				t.Errorf("subscriber %s: expected closed channel", sub.ID())
			}
		case <-time.After(time.Second):
			t.Errorf("subscriber %s: channel not closed", sub.ID())
		}
	}
	if got := b.Stats().SubscriberCount; got != 0 {
		t.Errorf("SubscriberCount after shutdown = %d, want 0", got)
	}
}

func TestSubscriber_Filter(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("picky", TopicFirehose)
	sub.SetFilter(func(evt *Event) bool { return evt.Type == EventEmailSent })

	ctx := context.Background()
	rn := testRun(t)
	l := lead.New("Crown Painting", "painting", "Reno, NV")

	if err := b.OnLeadDiscovered(ctx, rn.ID, l); err != nil {
		t.Fatalf("OnLeadDiscovered: %v", err)
	}
	expectNone(t, sub)

	if err := b.OnEmailSent(ctx, rn.ID, l, "msg-1"); err != nil {
		t.Fatalf("OnEmailSent: %v", err)
	}
	evt := recv(t, sub)
	if evt.Type != EventEmailSent {
		t.Errorf("event type = %s, want %s", evt.Type, EventEmailSent)
	}

	// Filter mismatches are not drops.
	if got := sub.Dropped(); got != 0 {
		t.Errorf("sub.Dropped() = %d, want 0", got)
	}
	if got := b.Stats().TotalDropped; got != 0 {
		t.Errorf("TotalDropped = %d, want 0", got)
	}
}

func TestSubscriber_CloseIdempotent(t *testing.T) {
	t.Parallel()

	sub := NewSubscriber("x", 4)
	sub.Close()
	sub.Close()

	if ok, _ := sub.send(&Event{Type: EventRunStarted}); ok {
		t.Error("send to closed subscriber reported delivery")
	}
}

func TestTopicRegistry_SubscribeUnsubscribe(t *testing.T) {
	t.Parallel()

	tr := NewTopicRegistry()
	sub := NewSubscriber("s", 4)

	tr.Subscribe(TopicRuns, sub)
	tr.Subscribe(TopicLeads, sub)
	if got := tr.TopicCount(); got != 2 {
		t.Errorf("TopicCount = %d, want 2", got)
	}
	if got := tr.SubscriberCount(TopicRuns); got != 1 {
		t.Errorf("SubscriberCount(runs) = %d, want 1", got)
	}
	if got := len(sub.Topics()); got != 2 {
		t.Errorf("len(sub.Topics()) = %d, want 2", got)
	}

	tr.Unsubscribe(TopicRuns, "s")
	if got := tr.SubscriberCount(TopicRuns); got != 0 {
		t.Errorf("SubscriberCount(runs) after unsubscribe = %d, want 0", got)
	}
	// Empty topics are pruned.
	if got := tr.TopicCount(); got != 1 {
		t.Errorf("TopicCount after unsubscribe = %d, want 1", got)
	}

	tr.UnsubscribeAll("s")
	if got := tr.TopicCount(); got != 0 {
		t.Errorf("TopicCount after UnsubscribeAll = %d, want 0", got)
	}
}

func TestTopicRegistry_BroadcastDedupes(t *testing.T) {
	t.Parallel()

	tr := NewTopicRegistry()
	sub := NewSubscriber("s", 4)
	tr.Subscribe(TopicFirehose, sub)
	tr.Subscribe(TopicRuns, sub)

	delivered, dropped := tr.Broadcast([]string{TopicFirehose, TopicRuns}, &Event{Type: EventRunStarted})
	if delivered != 1 || dropped != 0 {
		t.Errorf("Broadcast = (%d, %d), want (1, 0)", delivered, dropped)
	}
	if got := len(sub.ch); got != 1 {
		t.Errorf("buffered events = %d, want 1", got)
	}
}

func TestResolveTopics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		evt  *Event
		want []string
	}{
		{
			name: "run event with entity topic",
			evt:  &Event{Type: EventRunStarted, Topic: "run:run_1"},
			want: []string{TopicFirehose, TopicRuns, "run:run_1"},
		},
		{
			name: "run skipped without entity topic",
			evt:  &Event{Type: EventRunSkipped},
			want: []string{TopicFirehose, TopicRuns},
		},
		{
			name: "lead event",
			evt:  &Event{Type: EventLeadDiscovered, Topic: "run:run_2"},
			want: []string{TopicFirehose, TopicLeads, "run:run_2"},
		},
		{
			name: "preview event",
			evt:  &Event{Type: EventPreviewDeployed, Topic: "run:run_3"},
			want: []string{TopicFirehose, TopicLeads, "run:run_3"},
		},
		{
			name: "email event",
			evt:  &Event{Type: EventEmailSent, Topic: "run:run_4"},
			want: []string{TopicFirehose, TopicLeads, "run:run_4"},
		},
		{
			name: "quota warning stays on firehose",
			evt:  &Event{Type: EventQuotaWarning},
			want: []string{TopicFirehose},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveTopics(tt.evt)
			if len(got) != len(tt.want) {
				t.Fatalf("resolveTopics = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("resolveTopics[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseTopicEntity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		topic      string
		wantType   string
		wantEntity string
	}{
		{"run:run_abc", "run", "run_abc"},
		{"runs", "", ""},
		{"firehose", "", ""},
		{"run:", "run", ""},
	}

	for _, tt := range tests {
		gotType, gotEntity := ParseTopicEntity(tt.topic)
		if gotType != tt.wantType || gotEntity != tt.wantEntity {
			t.Errorf("ParseTopicEntity(%q) = (%q, %q), want (%q, %q)",
				tt.topic, gotType, gotEntity, tt.wantType, tt.wantEntity)
		}
	}
}

func TestValidateTopic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		topic   string
		wantErr bool
	}{
		{"runs", false},
		{"leads", false},
		{"firehose", false},
		{"run:run_abc123", false},
		{"lead:lead_abc", true},
		{"run:", true},
		{"bogus", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateTopic(tt.topic)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTopic(%q) error = %v, wantErr %v", tt.topic, err, tt.wantErr)
		}
	}
}
