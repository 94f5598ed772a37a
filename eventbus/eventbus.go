// Package eventbus provides a single-process, in-memory publish/subscribe
// mechanism with named topics. Delivery is at-most-once per listener per
// publish: no replay, no persistence, and a listener that was not registered
// at publish time never receives that event.
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// DefaultBuffer is the per-listener queue size. Publishing never blocks:
// events beyond the buffer are dropped for that listener.
const DefaultBuffer = 16

// Bus is a process-wide topic registry. The zero value is not usable,
// construct with New.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscription
	logger *slog.Logger
}

// New creates an empty bus. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		topics: make(map[string]map[string]*Subscription),
		logger: logger.With("component", "eventbus"),
	}
}

// Subscription is a live, cancelable stream of payloads for one listener.
type Subscription struct {
	id     string
	topic  string
	ch     chan any
	bus    *Bus
	cancel sync.Once
}

// Events returns the listener's payload channel. The channel is closed
// when the subscription is cancelled.
func (s *Subscription) Events() <-chan any {
	return s.ch
}

// Cancel deregisters the listener and closes its channel.
// Safe to call more than once.
func (s *Subscription) Cancel() {
	s.cancel.Do(func() {
		s.bus.remove(s)
	})
}

// Subscribe registers a new listener on a topic.
func (b *Bus) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		id:    uuid.NewString(),
		topic: topic,
		ch:    make(chan any, DefaultBuffer),
		bus:   b,
	}

	b.mu.Lock()
	listeners, ok := b.topics[topic]
	if !ok {
		listeners = make(map[string]*Subscription)
		b.topics[topic] = listeners
	}
	listeners[sub.id] = sub
	b.mu.Unlock()

	b.logger.Debug("listener subscribed", "topic", topic, "listener", sub.id)
	return sub
}

// Publish delivers payload to every listener currently registered on the
// topic and returns the number of deliveries. A listener whose buffer is
// full misses the event; the publisher is never blocked.
//
// Sends happen under the read lock and channel close under the write lock,
// so a publish can never race a Cancel into a closed channel.
func (b *Bus) Publish(topic string, payload any) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.topics[topic] {
		select {
		case sub.ch <- payload:
			delivered++
		default:
			b.logger.Warn("listener queue full, event dropped",
				"topic", topic, "listener", sub.id)
		}
	}
	return delivered
}

// Listeners returns the number of active listeners on a topic.
func (b *Bus) Listeners(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if listeners, ok := b.topics[sub.topic]; ok {
		delete(listeners, sub.id)
		if len(listeners) == 0 {
			delete(b.topics, sub.topic)
		}
	}
	close(sub.ch)
	b.logger.Debug("listener removed", "topic", sub.topic, "listener", sub.id)
}
