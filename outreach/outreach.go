// Package outreach defines the email contracts: composing a message for
// a lead and sending it.
//
// The default [TemplateComposer] renders plain-text messages from Go
// templates. Delivery adapters live in sub-packages; outreach/smtp sends
// over plain SMTP.
package outreach

import (
	"context"

	"github.com/isethius/Autowebsites-sub001/lead"
)

// Message is a composed outreach email, ready to send.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Composer builds the outreach message for a lead. previewURL may be
// empty when the campaign did not deploy a preview.
type Composer interface {
	Compose(ctx context.Context, l *lead.Lead, previewURL string) (*Message, error)
}

// Sender delivers a composed message and returns a provider message ID.
type Sender interface {
	Send(ctx context.Context, l *lead.Lead, msg *Message) (string, error)
}
