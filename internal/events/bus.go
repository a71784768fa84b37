// Package events provides the synchronous, in-process publish/subscribe
// registry scoped to one data-access instance. Topics are structured
// (table, operation) values; delivery is FIFO per topic with no
// persistence and no back-pressure.
package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/leapstack-labs/strata/pkg/core"
)

// Handler receives a published event. A non-nil return propagates to the
// caller of the operation that triggered the publish; publishing is not
// isolated from subscriber failures.
type Handler func(core.Event) error

// Subscription identifies one registered handler.
type Subscription struct {
	ID    string
	Topic core.Topic
}

type subscriber struct {
	id      string
	handler Handler
}

// Bus delivers events to subscribers. The model is single-threaded, but
// the mutex keeps subscription management safe when tests subscribe from
// helper goroutines.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[core.Topic][]subscriber
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subscribers: make(map[core.Topic][]subscriber)}
}

// Subscribe registers handler for topic and returns its subscription.
// Handlers on the same topic run in subscription order.
func (b *Bus) Subscribe(topic core.Topic, handler Handler) Subscription {
	sub := subscriber{id: uuid.New().String(), handler: handler}

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	b.mu.Unlock()

	return Subscription{ID: sub.id, Topic: topic}
}

// Unsubscribe removes a previously registered handler. Unknown
// subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[sub.Topic]
	for i, s := range subs {
		if s.id == sub.ID {
			b.subscribers[sub.Topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to every subscriber of its topic, in FIFO
// order. The first handler error stops delivery and is returned.
func (b *Bus) Publish(event core.Event) error {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subscribers[event.Topic]))
	copy(subs, b.subscribers[event.Topic])
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler(event); err != nil {
			return err
		}
	}
	return nil
}

// SubscriberCount returns the number of handlers on a topic.
func (b *Bus) SubscriberCount(topic core.Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}
