package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/isethius/Autowebsites-sub001/ext"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*Broker)(nil)
	_ ext.RunStarted       = (*Broker)(nil)
	_ ext.RunCompleted     = (*Broker)(nil)
	_ ext.RunFailed        = (*Broker)(nil)
	_ ext.RunCancelled     = (*Broker)(nil)
	_ ext.RunSkipped       = (*Broker)(nil)
	_ ext.LeadDiscovered   = (*Broker)(nil)
	_ ext.LeadQualified    = (*Broker)(nil)
	_ ext.LeadSkipped      = (*Broker)(nil)
	_ ext.PreviewGenerated = (*Broker)(nil)
	_ ext.PreviewDeployed  = (*Broker)(nil)
	_ ext.EmailSent        = (*Broker)(nil)
	_ ext.EmailFailed      = (*Broker)(nil)
	_ ext.QuotaWarning     = (*Broker)(nil)
	_ ext.Shutdown         = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// Broker is the real-time stream broker. It implements the extension
// hooks to receive lifecycle events and fans them out to subscribers
// via topic-based pub/sub.
type Broker struct {
	topics *TopicRegistry
	logger *slog.Logger

	// Subscriber management.
	subscribers sync.Map // subscriberID → *Subscriber

	// Metrics.
	totalPublished atomic.Int64
	totalDropped   atomic.Int64

	// Config.
	bufferSize int
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// NewBroker creates a new stream broker.
func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	b := &Broker{
		topics:     NewTopicRegistry(),
		logger:     logger,
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Broker) Name() string { return "stream-broker" }

// Topics returns the topic registry for external use (e.g. the API's
// event feed).
func (b *Broker) Topics() *TopicRegistry { return b.topics }

// Subscribe creates a new subscriber on the given topics.
func (b *Broker) Subscribe(subscriberID string, topics ...string) *Subscriber {
	sub := NewSubscriber(subscriberID, b.bufferSize)
	b.subscribers.Store(subscriberID, sub)
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	return sub
}

// SubscribeTo adds an existing subscriber to additional topics.
func (b *Broker) SubscribeTo(subscriberID string, topics ...string) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return
	}
	sub := val.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
}

// Unsubscribe removes a subscriber from specific topics.
func (b *Broker) Unsubscribe(subscriberID string, topics ...string) {
	for _, topic := range topics {
		b.topics.Unsubscribe(topic, subscriberID)
	}
}

// RemoveSubscriber removes a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.UnsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).Close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
}

// GetSubscriber returns a subscriber by ID.
func (b *Broker) GetSubscriber(subscriberID string) (*Subscriber, bool) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return nil, false
	}
	return val.(*Subscriber), true //nolint:errcheck // sync.Map always stores *Subscriber
}

// Stats returns broker statistics.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		TopicCount:      b.topics.TopicCount(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
		TotalDropped:    b.totalDropped.Load(),
	}
}

// BrokerStats contains broker metrics.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
	TotalDropped    int64 `json:"total_dropped"`
}

// publish broadcasts an event to all matching topics.
func (b *Broker) publish(evt *Event) {
	delivered, dropped := b.topics.Broadcast(resolveTopics(evt), evt)
	b.totalPublished.Add(int64(delivered))
	b.totalDropped.Add(int64(dropped))
}

// mustMarshal marshals data to JSON, panicking on error (programming error).
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("stream: marshal event data: " + err.Error())
	}
	return data
}

func leadData(runID id.RunID, l *lead.Lead) LeadEventData {
	return LeadEventData{
		RunID:    runID.String(),
		LeadID:   l.ID.String(),
		Business: l.BusinessName,
		Industry: l.Industry,
		Location: l.Location,
	}
}

// ── Run lifecycle hooks ─────────────────────────────

func (b *Broker) OnRunStarted(_ context.Context, r *run.Run) error {
	b.publish(&Event{
		Type:      EventRunStarted,
		Timestamp: time.Now().UTC(),
		Topic:     RunTopic(r.ID.String()),
		Data: mustMarshal(RunEventData{
			RunID:   r.ID.String(),
			Trigger: string(r.Trigger),
			State:   string(r.State),
		}),
	})
	return nil
}

func (b *Broker) OnRunCompleted(_ context.Context, r *run.Run, elapsed time.Duration) error {
	b.publish(&Event{
		Type:      EventRunCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     RunTopic(r.ID.String()),
		Data: mustMarshal(RunEventData{
			RunID:      r.ID.String(),
			Trigger:    string(r.Trigger),
			State:      string(r.State),
			ElapsedMs:  elapsed.Milliseconds(),
			Discovered: r.Stats.Discovered,
			EmailsSent: r.Stats.EmailsSent,
		}),
	})
	return nil
}

func (b *Broker) OnRunFailed(_ context.Context, r *run.Run, runErr error) error {
	b.publish(&Event{
		Type:      EventRunFailed,
		Timestamp: time.Now().UTC(),
		Topic:     RunTopic(r.ID.String()),
		Data: mustMarshal(RunEventData{
			RunID:   r.ID.String(),
			Trigger: string(r.Trigger),
			State:   string(r.State),
			Error:   runErr.Error(),
		}),
	})
	return nil
}

func (b *Broker) OnRunCancelled(_ context.Context, r *run.Run) error {
	b.publish(&Event{
		Type:      EventRunCancelled,
		Timestamp: time.Now().UTC(),
		Topic:     RunTopic(r.ID.String()),
		Data: mustMarshal(RunEventData{
			RunID:      r.ID.String(),
			Trigger:    string(r.Trigger),
			State:      string(r.State),
			EmailsSent: r.Stats.EmailsSent,
		}),
	})
	return nil
}

func (b *Broker) OnRunSkipped(_ context.Context, reason string) error {
	b.publish(&Event{
		Type:      EventRunSkipped,
		Timestamp: time.Now().UTC(),
		Data:      mustMarshal(RunEventData{Reason: reason}),
	})
	return nil
}

// ── Lead milestone hooks ────────────────────────────

func (b *Broker) OnLeadDiscovered(_ context.Context, runID id.RunID, l *lead.Lead) error {
	b.publish(&Event{
		Type:      EventLeadDiscovered,
		Timestamp: time.Now().UTC(),
		Topic:     RunTopic(runID.String()),
		Data:      mustMarshal(leadData(runID, l)),
	})
	return nil
}

func (b *Broker) OnLeadQualified(_ context.Context, runID id.RunID, l *lead.Lead) error {
	b.publish(&Event{
		Type:      EventLeadQualified,
		Timestamp: time.Now().UTC(),
		Topic:     RunTopic(runID.String()),
		Data:      mustMarshal(leadData(runID, l)),
	})
	return nil
}

func (b *Broker) OnLeadSkipped(_ context.Context, runID id.RunID, l *lead.Lead, reason string) error {
	data := leadData(runID, l)
	data.Reason = reason
	b.publish(&Event{
		Type:      EventLeadSkipped,
		Timestamp: time.Now().UTC(),
		Topic:     RunTopic(runID.String()),
		Data:      mustMarshal(data),
	})
	return nil
}

func (b *Broker) OnPreviewGenerated(_ context.Context, runID id.RunID, l *lead.Lead) error {
	b.publish(&Event{
		Type:      EventPreviewGenerated,
		Timestamp: time.Now().UTC(),
		Topic:     RunTopic(runID.String()),
		Data:      mustMarshal(leadData(runID, l)),
	})
	return nil
}

func (b *Broker) OnPreviewDeployed(_ context.Context, runID id.RunID, l *lead.Lead, previewURL string) error {
	data := leadData(runID, l)
	data.PreviewURL = previewURL
	b.publish(&Event{
		Type:      EventPreviewDeployed,
		Timestamp: time.Now().UTC(),
		Topic:     RunTopic(runID.String()),
		Data:      mustMarshal(data),
	})
	return nil
}

func (b *Broker) OnEmailSent(_ context.Context, runID id.RunID, l *lead.Lead, messageID string) error {
	data := leadData(runID, l)
	data.MessageID = messageID
	b.publish(&Event{
		Type:      EventEmailSent,
		Timestamp: time.Now().UTC(),
		Topic:     RunTopic(runID.String()),
		Data:      mustMarshal(data),
	})
	return nil
}

func (b *Broker) OnEmailFailed(_ context.Context, runID id.RunID, l *lead.Lead, sendErr error) error {
	data := leadData(runID, l)
	data.Error = sendErr.Error()
	b.publish(&Event{
		Type:      EventEmailFailed,
		Timestamp: time.Now().UTC(),
		Topic:     RunTopic(runID.String()),
		Data:      mustMarshal(data),
	})
	return nil
}

// ── Quota hooks ─────────────────────────────────────

func (b *Broker) OnQuotaWarning(_ context.Context, snap *quota.Snapshot) error {
	b.publish(&Event{
		Type:      EventQuotaWarning,
		Timestamp: time.Now().UTC(),
		Data: mustMarshal(QuotaEventData{
			Day:        snap.Day,
			DailyLimit: snap.DailyLimit,
			SentToday:  snap.SentToday,
			Remaining:  snap.Remaining,
		}),
	})
	return nil
}

// ── Shutdown ────────────────────────────────────────

func (b *Broker) OnShutdown(_ context.Context) error {
	b.subscribers.Range(func(key, value any) bool {
		sub := value.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
		sub.Close()
		b.subscribers.Delete(key)
		return true
	})
	b.logger.Info("stream broker shut down")
	return nil
}
