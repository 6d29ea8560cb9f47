// Package amqphook bridges lifecycle events to RabbitMQ. When
// registered as an extension, it publishes a persistent JSON message
// (run.completed, email.sent, etc.) to a topic exchange at every
// lifecycle point, keyed by event type, so downstream consumers can
// bind queues to exactly the events they care about.
//
// Usage:
//
//	conn, _ := amqp.Dial(url)
//	ch, _ := conn.Channel()
//	amqphook.DeclareExchange(ch, amqphook.DefaultExchange)
//
//	hook := amqphook.New(ch)
//	registry.Register(hook)
//
// To restrict which events are published:
//
//	hook := amqphook.New(ch,
//	    amqphook.WithEvents(
//	        amqphook.EventRunCompleted,
//	        amqphook.EventEmailSent,
//	    ),
//	)
package amqphook
