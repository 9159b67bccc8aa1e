// Package bus provides the in-process publish/subscribe channel that
// decouples the sync engine from the UI. Kinds are dot-namespaced:
//
//	transport.*    connection status and decoded inbound frames
//	session.*      sync state machine transitions
//	conversation.* store mutations visible to the UI
//	presence.*     online/offline and typing changes
//	roster.*       friend list and friend-request updates
//	notify.*       user-facing notifications (toasts)
package bus

import (
	"strings"
	"sync"
	"time"
)

// Event is a single published occurrence.
type Event struct {
	Kind    string
	At      time.Time
	Payload any
}

// Bus fans events out to prefix-matched subscribers. Delivery is
// best-effort: a subscriber with a full buffer misses the event rather
// than blocking the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

type subscriber struct {
	prefix string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Emit publishes an event with the current time.
func (b *Bus) Emit(kind string, payload any) {
	b.Publish(Event{Kind: kind, At: time.Now(), Payload: payload})
}

// Publish delivers evt to every subscriber whose prefix matches evt.Kind.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if strings.HasPrefix(evt.Kind, s.prefix) {
			select {
			case s.ch <- evt:
			default:
			}
		}
	}
}

// Subscribe registers a subscriber for events whose kind starts with prefix.
// An empty prefix receives everything. The returned function unsubscribes.
func (b *Bus) Subscribe(prefix string, buf int) (<-chan Event, func()) {
	ch := make(chan Event, buf)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscriber{prefix: prefix, ch: ch}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
