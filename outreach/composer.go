package outreach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/isethius/Autowebsites-sub001/lead"
)

// ErrNoEmail is returned when a lead has no email address to write to.
var ErrNoEmail = errors.New("outreach: lead has no email address")

const defaultSubject = `A website concept for {{.BusinessName}}`

const defaultBody = `Hi,

I came across {{.BusinessName}} while looking at {{.Industry}} businesses in {{.Location}} and put together a quick concept of what a modern website for you could look like:
{{if .PreviewURL}}
{{.PreviewURL}}
{{end}}
If you like the direction, just reply to this email and we can take it from there. If not, no hard feelings — I won't follow up again.

Best,
{{.SenderName}}
`

// templateData is what the subject and body templates render against.
type templateData struct {
	BusinessName string
	Industry     string
	Location     string
	Website      string
	PreviewURL   string
	SenderName   string
}

// TemplateComposer renders outreach messages from text templates.
type TemplateComposer struct {
	subject    *template.Template
	body       *template.Template
	senderName string
}

// ComposerOption configures a TemplateComposer.
type ComposerOption func(*TemplateComposer) error

// WithSubjectTemplate replaces the default subject template.
func WithSubjectTemplate(text string) ComposerOption {
	return func(c *TemplateComposer) error {
		tmpl, err := template.New("subject").Parse(text)
		if err != nil {
			return fmt.Errorf("outreach: parse subject template: %w", err)
		}
		c.subject = tmpl
		return nil
	}
}

// WithBodyTemplate replaces the default body template.
func WithBodyTemplate(text string) ComposerOption {
	return func(c *TemplateComposer) error {
		tmpl, err := template.New("body").Parse(text)
		if err != nil {
			return fmt.Errorf("outreach: parse body template: %w", err)
		}
		c.body = tmpl
		return nil
	}
}

// WithSenderName sets the name used to sign messages.
func WithSenderName(name string) ComposerOption {
	return func(c *TemplateComposer) error {
		c.senderName = name
		return nil
	}
}

// NewTemplateComposer creates a composer with the default templates.
func NewTemplateComposer(opts ...ComposerOption) (*TemplateComposer, error) {
	c := &TemplateComposer{
		subject:    template.Must(template.New("subject").Parse(defaultSubject)),
		body:       template.Must(template.New("body").Parse(defaultBody)),
		senderName: "The Autowebsites Team",
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Compose renders the subject and body for the lead. Leads without an
// email address are rejected with ErrNoEmail.
func (c *TemplateComposer) Compose(_ context.Context, l *lead.Lead, previewURL string) (*Message, error) {
	if l.Email == "" {
		return nil, ErrNoEmail
	}

	data := templateData{
		BusinessName: l.BusinessName,
		Industry:     l.Industry,
		Location:     l.Location,
		Website:      l.Website,
		PreviewURL:   previewURL,
		SenderName:   c.senderName,
	}

	var subject strings.Builder
	if err := c.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("outreach: render subject: %w", err)
	}

	var body strings.Builder
	if err := c.body.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("outreach: render body: %w", err)
	}

	return &Message{
		To:      l.Email,
		Subject: strings.TrimSpace(subject.String()),
		Body:    body.String(),
	}, nil
}
