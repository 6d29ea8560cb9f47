package stream

import (
	"sync"
	"sync/atomic"
)

// Subscriber receives events from topics it is subscribed to over a
// buffered channel. Delivery is non-blocking: when the buffer is full
// the event is dropped for this subscriber, never queued against the
// publisher.
type Subscriber struct {
	// id uniquely identifies this subscriber.
	id string

	// ch is the buffered channel events are sent on.
	ch chan *Event

	// mu guards topics and orders in-flight sends against Close, so a
	// concurrent broadcast can never hit a closed channel.
	mu     sync.RWMutex
	topics map[string]struct{}

	// filter is an optional predicate. If set, only events matching
	// the filter are delivered.
	filter func(*Event) bool

	// dropped counts events this subscriber failed to keep up with.
	dropped atomic.Int64

	// closed prevents double-close of the channel.
	closed atomic.Bool
}

// NewSubscriber creates a subscriber with the given buffer size.
func NewSubscriber(id string, bufferSize int) *Subscriber {
	return &Subscriber{
		id:     id,
		ch:     make(chan *Event, bufferSize),
		topics: make(map[string]struct{}),
	}
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// C returns the read-only event channel.
func (s *Subscriber) C() <-chan *Event { return s.ch }

// Dropped returns how many events this subscriber has dropped.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

// SetFilter sets an optional event filter predicate. Set it before the
// subscriber joins any topic; it is read without synchronization during
// delivery.
func (s *Subscriber) SetFilter(fn func(*Event) bool) {
	s.filter = fn
}

// addTopic records that this subscriber is on the given topic.
func (s *Subscriber) addTopic(topic string) {
	s.mu.Lock()
	s.topics[topic] = struct{}{}
	s.mu.Unlock()
}

// removeTopic removes a topic from the subscriber's tracked set.
func (s *Subscriber) removeTopic(topic string) {
	s.mu.Lock()
	delete(s.topics, topic)
	s.mu.Unlock()
}

// Topics returns a copy of all subscribed topic names.
func (s *Subscriber) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	return out
}

// send attempts to deliver an event to the subscriber. delivered is
// true when the event landed in the buffer; dropped is true only when
// a live, matching subscriber had no buffer space. A closed subscriber
// or a filter mismatch is neither.
func (s *Subscriber) send(evt *Event) (delivered, dropped bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed.Load() {
		return false, false
	}

	if s.filter != nil && !s.filter(evt) {
		return false, false
	}

	select {
	case s.ch <- evt:
		return true, false
	default:
		s.dropped.Add(1)
		return false, true
	}
}

// Close closes the subscriber channel. Safe to call multiple times.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}
