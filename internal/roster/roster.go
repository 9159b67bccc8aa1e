// Package roster mirrors the server-side friends list. Friend-request
// frames only signal that something changed; the authoritative list is
// re-fetched over REST, so the roster is just the client-local cache plus
// change notifications.
package roster

import (
	"sort"
	"sync"

	"github.com/pigeonchat/pigeon/internal/bus"
)

// Friend is one cached friends-list entry.
type Friend struct {
	ID       string
	Username string
	Online   bool
}

// Request is a pending incoming friend request.
type Request struct {
	FriendID string
	Username string
}

// Update is the payload published on "roster.*" events.
type Update struct {
	RequestType string
	Sender      string
}

// Roster caches the friends list for the UI.
type Roster struct {
	mu      sync.RWMutex
	friends map[string]Friend
	pending map[string]Request
	bus     *bus.Bus
}

// New creates an empty roster.
func New(b *bus.Bus) *Roster {
	return &Roster{
		friends: make(map[string]Friend),
		pending: make(map[string]Request),
		bus:     b,
	}
}

// Replace swaps the cached list for a fresh REST snapshot.
func (r *Roster) Replace(friends []Friend) {
	r.mu.Lock()
	r.friends = make(map[string]Friend, len(friends))
	for _, f := range friends {
		r.friends[f.Username] = f
	}
	r.mu.Unlock()

	r.emit("roster.changed", Update{})
}

// SetOnline updates a cached friend's presence flag. Unknown friends are
// ignored; presence for conversation peers lives in the presence tracker.
func (r *Roster) SetOnline(username string, online bool) {
	r.mu.Lock()
	f, ok := r.friends[username]
	if ok {
		f.Online = online
		r.friends[username] = f
	}
	r.mu.Unlock()

	if ok {
		r.emit("roster.changed", Update{})
	}
}

// ReplaceRequests swaps the pending incoming requests for a fresh REST
// snapshot, filling in the friend IDs realtime frames do not carry.
func (r *Roster) ReplaceRequests(reqs []Request) {
	r.mu.Lock()
	r.pending = make(map[string]Request, len(reqs))
	for _, q := range reqs {
		r.pending[q.Username] = q
	}
	r.mu.Unlock()

	r.emit("roster.changed", Update{})
}

// ApplyRequest records an inbound friend-request update and tells
// subscribers to re-fetch whichever list it invalidates. A "received"
// frame adds a placeholder entry immediately so the UI shows the
// request before the REST refresh lands; resolution removes it.
func (r *Roster) ApplyRequest(requestType, sender string) {
	r.mu.Lock()
	switch requestType {
	case "received":
		if _, ok := r.pending[sender]; !ok {
			r.pending[sender] = Request{Username: sender}
		}
	case "accepted", "rejected":
		delete(r.pending, sender)
	}
	r.mu.Unlock()

	r.emit("roster.request", Update{RequestType: requestType, Sender: sender})
}

// Pending returns the incoming requests sorted by username.
func (r *Roster) Pending() []Request {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Request, 0, len(r.pending))
	for _, q := range r.pending {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Friends returns the cached list sorted by username.
func (r *Roster) Friends() []Friend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Friend, 0, len(r.friends))
	for _, f := range r.friends {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (r *Roster) emit(kind string, u Update) {
	if r.bus != nil {
		r.bus.Emit(kind, u)
	}
}
