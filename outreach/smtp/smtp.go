// Package smtp delivers outreach mail through a plain SMTP relay.
//
// The sender speaks net/smtp with optional PLAIN auth, stamps each
// message with a generated Message-ID, and returns that ID so the run
// can record what was sent. Anything fancier (providers, retries,
// bounce handling) belongs behind outreach.Sender, not in here.
package smtp

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/mail"
	netsmtp "net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/outreach"
)

var _ outreach.Sender = (*Sender)(nil)

// SendFunc matches net/smtp.SendMail, so tests can capture outgoing
// mail without a relay.
type SendFunc func(addr string, auth netsmtp.Auth, from string, to []string, msg []byte) error

// Sender sends mail through one SMTP relay. It is safe for concurrent
// use.
type Sender struct {
	addr string
	host string
	from string
	auth netsmtp.Auth
	send SendFunc
}

// Option configures a Sender.
type Option func(*Sender)

// WithPlainAuth authenticates against the relay with PLAIN auth.
func WithPlainAuth(username, password string) Option {
	return func(s *Sender) { s.auth = netsmtp.PlainAuth("", username, password, s.host) }
}

// WithSendFunc replaces the transport. Used by tests.
func WithSendFunc(fn SendFunc) Option {
	return func(s *Sender) { s.send = fn }
}

// New creates a Sender for the relay at addr (host:port) sending as
// from.
func New(addr, from string, opts ...Option) (*Sender, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("smtp: invalid relay address %q: %w", addr, err)
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return nil, fmt.Errorf("smtp: invalid sender address %q: %w", from, err)
	}

	s := &Sender{addr: addr, host: host, from: from, send: netsmtp.SendMail}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send implements outreach.Sender. The returned message ID is the
// value stamped into the Message-ID header, without angle brackets.
//
// net/smtp has no context support, so cancellation abandons the
// delivery goroutine mid-flight; the relay may still accept the
// message.
func (s *Sender) Send(ctx context.Context, l *lead.Lead, m *outreach.Message) (string, error) {
	if m.To == "" {
		return "", fmt.Errorf("smtp: message for %s has no recipient", l.BusinessName)
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return "", fmt.Errorf("smtp: invalid recipient %q: %w", m.To, err)
	}

	messageID := fmt.Sprintf("%s@%s", uuid.New().String(), s.host)
	msg := buildMessage(s.from, m, messageID)

	done := make(chan error, 1)
	go func() { done <- s.send(s.addr, s.auth, s.from, []string{m.To}, msg) }()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("smtp: send to %s: %w", m.To, err)
		}
		return messageID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func buildMessage(from string, m *outreach.Message, messageID string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&b, "Message-ID: <%s>\r\n", messageID)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.Body)
	return []byte(b.String())
}
