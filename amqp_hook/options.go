package amqphook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithEvents restricts the extension to publish only the listed event
// types. By default all 13 event types are enabled. Unknown types are
// silently ignored.
func WithEvents(events ...string) Option {
	return func(h *Extension) {
		h.enabled = make(map[string]bool, len(events))
		for _, e := range events {
			h.enabled[e] = true
		}
	}
}

// WithExchange overrides the exchange messages are published to.
func WithExchange(name string) Option {
	return func(h *Extension) { h.exchange = name }
}

// WithLogger sets a custom logger for the extension.
func WithLogger(l *slog.Logger) Option {
	return func(h *Extension) { h.logger = l }
}
