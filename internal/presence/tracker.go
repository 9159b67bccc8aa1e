// Package presence tracks per-peer online/offline and typing state.
//
// Typing state self-expires: the network signal for "stopped typing" can
// be lost (tab blur, dropped frame), so every "typing" signal arms a timer
// that forces the state back to false if no refresh arrives in time.
package presence

import (
	"sync"
	"time"

	"github.com/pigeonchat/pigeon/internal/bus"
)

// DefaultTypingExpiry matches the refresh cadence of the server's typing
// signals.
const DefaultTypingExpiry = time.Second

// Change is the payload published on "presence.changed" and
// "presence.typing".
type Change struct {
	Peer     string
	Online   bool
	IsTyping bool
}

// Tracker holds last-write-wins presence and self-healing typing state for
// every peer, not just the open conversation, so list previews can show
// "typing…" too.
type Tracker struct {
	mu     sync.Mutex
	online map[string]bool
	typing map[string]*time.Timer
	expiry time.Duration
	bus    *bus.Bus
}

// NewTracker creates a tracker with the given typing expiry window.
// A zero expiry uses DefaultTypingExpiry.
func NewTracker(b *bus.Bus, expiry time.Duration) *Tracker {
	if expiry <= 0 {
		expiry = DefaultTypingExpiry
	}
	return &Tracker{
		online: make(map[string]bool),
		typing: make(map[string]*time.Timer),
		expiry: expiry,
		bus:    b,
	}
}

// SetPresence records a peer's online state. Last write wins.
func (t *Tracker) SetPresence(peer string, online bool) {
	t.mu.Lock()
	t.online[peer] = online
	t.mu.Unlock()

	t.emit("presence.changed", peer)
}

// SetTyping records a typing signal. A true signal (re)arms the expiry
// timer; a false signal clears immediately. Expiry with no refresh forces
// the state to false and notifies, identical to an explicit stop.
func (t *Tracker) SetTyping(peer string, isTyping bool) {
	t.mu.Lock()
	timer, active := t.typing[peer]
	if isTyping {
		if active {
			timer.Reset(t.expiry)
			t.mu.Unlock()
			return
		}
		t.typing[peer] = time.AfterFunc(t.expiry, func() { t.expire(peer) })
	} else {
		if !active {
			t.mu.Unlock()
			return
		}
		timer.Stop()
		delete(t.typing, peer)
	}
	t.mu.Unlock()

	t.emit("presence.typing", peer)
}

func (t *Tracker) expire(peer string) {
	t.mu.Lock()
	if _, active := t.typing[peer]; !active {
		t.mu.Unlock()
		return
	}
	delete(t.typing, peer)
	t.mu.Unlock()

	t.emit("presence.typing", peer)
}

// IsOnline reports the last known presence for peer; offline until told
// otherwise.
func (t *Tracker) IsOnline(peer string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.online[peer]
}

// IsTyping reports whether peer is currently typing.
func (t *Tracker) IsTyping(peer string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, active := t.typing[peer]
	return active
}

// Stop cancels all expiry timers. The tracker is unusable afterwards.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for peer, timer := range t.typing {
		timer.Stop()
		delete(t.typing, peer)
	}
}

func (t *Tracker) emit(kind, peer string) {
	if t.bus == nil {
		return
	}
	t.bus.Emit(kind, Change{
		Peer:     peer,
		Online:   t.IsOnline(peer),
		IsTyping: t.IsTyping(peer),
	})
}
