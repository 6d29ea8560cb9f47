package amqphook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/isethius/Autowebsites-sub001/ext"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*Extension)(nil)
	_ ext.RunStarted       = (*Extension)(nil)
	_ ext.RunCompleted     = (*Extension)(nil)
	_ ext.RunFailed        = (*Extension)(nil)
	_ ext.RunCancelled     = (*Extension)(nil)
	_ ext.RunSkipped       = (*Extension)(nil)
	_ ext.LeadDiscovered   = (*Extension)(nil)
	_ ext.LeadQualified    = (*Extension)(nil)
	_ ext.LeadSkipped      = (*Extension)(nil)
	_ ext.PreviewGenerated = (*Extension)(nil)
	_ ext.PreviewDeployed  = (*Extension)(nil)
	_ ext.EmailSent        = (*Extension)(nil)
	_ ext.EmailFailed      = (*Extension)(nil)
	_ ext.QuotaWarning     = (*Extension)(nil)
)

// DefaultExchange is the topic exchange lifecycle events are published
// to unless WithExchange overrides it.
const DefaultExchange = "autowebsites.events"

// Channel is the subset of *amqp.Channel the extension uses, accepted
// as an interface so tests can stub the broker.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
}

// DeclareExchange declares the durable topic exchange events are
// published to. Call once during wiring, before the first publish.
func DeclareExchange(ch Channel, name string) error {
	if err := ch.ExchangeDeclare(
		name,    // name
		"topic", // kind
		true,    // durable
		false,   // auto-deleted
		false,   // internal
		false,   // no-wait
		nil,     // arguments
	); err != nil {
		return fmt.Errorf("amqp_hook: declare exchange %s: %w", name, err)
	}
	return nil
}

// Message is the JSON envelope every published event is wrapped in.
type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Extension publishes lifecycle events to RabbitMQ. Each hook wraps its
// payload in a [Message] and publishes it with the event type as the
// routing key.
type Extension struct {
	ch       Channel
	exchange string
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension publishing through the provided channel.
func New(ch Channel, opts ...Option) *Extension {
	h := &Extension{
		ch:       ch,
		exchange: DefaultExchange,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements ext.Extension.
func (h *Extension) Name() string { return "amqp-hook" }

// ── Run lifecycle hooks ─────────────────────────────

// OnRunStarted implements ext.RunStarted.
func (h *Extension) OnRunStarted(ctx context.Context, r *run.Run) error {
	return h.send(ctx, EventRunStarted, newRunPayload(r))
}

// OnRunCompleted implements ext.RunCompleted.
func (h *Extension) OnRunCompleted(ctx context.Context, r *run.Run, elapsed time.Duration) error {
	return h.send(ctx, EventRunCompleted, &runCompletedPayload{
		runPayload: *newRunPayload(r),
		ElapsedMs:  elapsed.Milliseconds(),
		Discovered: r.Stats.Discovered,
		EmailsSent: r.Stats.EmailsSent,
	})
}

// OnRunFailed implements ext.RunFailed.
func (h *Extension) OnRunFailed(ctx context.Context, r *run.Run, runErr error) error {
	return h.send(ctx, EventRunFailed, &runFailedPayload{
		runPayload: *newRunPayload(r),
		Error:      runErr.Error(),
	})
}

// OnRunCancelled implements ext.RunCancelled.
func (h *Extension) OnRunCancelled(ctx context.Context, r *run.Run) error {
	return h.send(ctx, EventRunCancelled, &runCancelledPayload{
		runPayload: *newRunPayload(r),
		EmailsSent: r.Stats.EmailsSent,
	})
}

// OnRunSkipped implements ext.RunSkipped.
func (h *Extension) OnRunSkipped(ctx context.Context, reason string) error {
	return h.send(ctx, EventRunSkipped, &runSkippedPayload{Reason: reason})
}

// ── Lead milestone hooks ────────────────────────────

// OnLeadDiscovered implements ext.LeadDiscovered.
func (h *Extension) OnLeadDiscovered(ctx context.Context, runID id.RunID, l *lead.Lead) error {
	return h.send(ctx, EventLeadDiscovered, newLeadPayload(runID, l))
}

// OnLeadQualified implements ext.LeadQualified.
func (h *Extension) OnLeadQualified(ctx context.Context, runID id.RunID, l *lead.Lead) error {
	return h.send(ctx, EventLeadQualified, newLeadPayload(runID, l))
}

// OnLeadSkipped implements ext.LeadSkipped.
func (h *Extension) OnLeadSkipped(ctx context.Context, runID id.RunID, l *lead.Lead, reason string) error {
	return h.send(ctx, EventLeadSkipped, &leadSkippedPayload{
		leadPayload: *newLeadPayload(runID, l),
		Reason:      reason,
	})
}

// OnPreviewGenerated implements ext.PreviewGenerated.
func (h *Extension) OnPreviewGenerated(ctx context.Context, runID id.RunID, l *lead.Lead) error {
	return h.send(ctx, EventPreviewGenerated, newLeadPayload(runID, l))
}

// OnPreviewDeployed implements ext.PreviewDeployed.
func (h *Extension) OnPreviewDeployed(ctx context.Context, runID id.RunID, l *lead.Lead, previewURL string) error {
	return h.send(ctx, EventPreviewDeployed, &previewDeployedPayload{
		leadPayload: *newLeadPayload(runID, l),
		PreviewURL:  previewURL,
	})
}

// OnEmailSent implements ext.EmailSent.
func (h *Extension) OnEmailSent(ctx context.Context, runID id.RunID, l *lead.Lead, messageID string) error {
	return h.send(ctx, EventEmailSent, &emailSentPayload{
		leadPayload: *newLeadPayload(runID, l),
		MessageID:   messageID,
	})
}

// OnEmailFailed implements ext.EmailFailed.
func (h *Extension) OnEmailFailed(ctx context.Context, runID id.RunID, l *lead.Lead, sendErr error) error {
	return h.send(ctx, EventEmailFailed, &emailFailedPayload{
		leadPayload: *newLeadPayload(runID, l),
		Error:       sendErr.Error(),
	})
}

// ── Quota hooks ─────────────────────────────────────

// OnQuotaWarning implements ext.QuotaWarning.
func (h *Extension) OnQuotaWarning(ctx context.Context, snap *quota.Snapshot) error {
	return h.send(ctx, EventQuotaWarning, &quotaPayload{
		Day:        snap.Day,
		DailyLimit: snap.DailyLimit,
		SentToday:  snap.SentToday,
		Remaining:  snap.Remaining,
	})
}

// ── Internal helpers ────────────────────────────────

// send publishes a persistent JSON message if the event type is enabled.
func (h *Extension) send(ctx context.Context, eventType string, payload any) error {
	if h.enabled != nil && !h.enabled[eventType] {
		return nil
	}

	msg := &Message{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("amqp_hook: marshal %s: %w", eventType, err)
	}

	if err := h.ch.PublishWithContext(
		ctx,
		h.exchange, // exchange
		eventType,  // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("amqp_hook: publish %s: %w", eventType, err)
	}

	h.logger.Debug("published lifecycle event",
		slog.String("exchange", h.exchange),
		slog.String("routing_key", eventType),
		slog.String("message_id", msg.ID),
	)
	return nil
}

// ── Default payload types ───────────────────────────

type runPayload struct {
	RunID   string `json:"run_id"`
	Trigger string `json:"trigger"`
	State   string `json:"state"`
}

func newRunPayload(r *run.Run) *runPayload {
	return &runPayload{
		RunID:   r.ID.String(),
		Trigger: string(r.Trigger),
		State:   string(r.State),
	}
}

type runCompletedPayload struct {
	runPayload
	ElapsedMs  int64 `json:"elapsed_ms"`
	Discovered int   `json:"discovered"`
	EmailsSent int   `json:"emails_sent"`
}

type runFailedPayload struct {
	runPayload
	Error string `json:"error"`
}

type runCancelledPayload struct {
	runPayload
	EmailsSent int `json:"emails_sent"`
}

type runSkippedPayload struct {
	Reason string `json:"reason"`
}

type leadPayload struct {
	RunID    string `json:"run_id"`
	LeadID   string `json:"lead_id"`
	Business string `json:"business"`
	Industry string `json:"industry"`
	Location string `json:"location"`
}

func newLeadPayload(runID id.RunID, l *lead.Lead) *leadPayload {
	return &leadPayload{
		RunID:    runID.String(),
		LeadID:   l.ID.String(),
		Business: l.BusinessName,
		Industry: l.Industry,
		Location: l.Location,
	}
}

type leadSkippedPayload struct {
	leadPayload
	Reason string `json:"reason"`
}

type previewDeployedPayload struct {
	leadPayload
	PreviewURL string `json:"preview_url"`
}

type emailSentPayload struct {
	leadPayload
	MessageID string `json:"message_id"`
}

type emailFailedPayload struct {
	leadPayload
	Error string `json:"error"`
}

type quotaPayload struct {
	Day        string `json:"day"`
	DailyLimit int    `json:"daily_limit"`
	SentToday  int    `json:"sent_today"`
	Remaining  int    `json:"remaining"`
}
