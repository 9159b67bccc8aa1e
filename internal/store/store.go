// Package store is the client-local source of truth for conversations,
// message history and unread counters. It is a pure in-memory structure:
// no I/O, rebuilt from hydration on every page of life. All mutations are
// idempotent and order-tolerant so interleaved hydration snapshots and
// live transport events cannot corrupt it.
package store

import (
	"sort"
	"sync"
	"time"
)

type conv struct {
	key          string
	id           string
	peerName     string
	msgs         []*Message
	unread       int
	preview      Preview
	lastActivity time.Time
}

type pendingRef struct {
	key  string
	corr string
}

// Store holds every conversation known to this session. Mutated only by
// the sync coordinator; the UI reads snapshots.
type Store struct {
	mu       sync.RWMutex
	convs    map[string]*conv
	byServer map[string]*Message
	byCorr   map[string]*Message
	pending  []pendingRef
}

// New creates an empty store.
func New() *Store {
	return &Store{
		convs:    make(map[string]*conv),
		byServer: make(map[string]*Message),
		byCorr:   make(map[string]*Message),
	}
}

// Ensure creates the conversation for key on first sight. Conversations
// are never deleted; history survives unfriending.
func (s *Store) Ensure(key, peerName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(key, peerName)
}

func (s *Store) ensureLocked(key, peerName string) *conv {
	c, ok := s.convs[key]
	if !ok {
		c = &conv{key: key}
		s.convs[key] = c
	}
	if peerName != "" {
		c.peerName = peerName
	}
	return c
}

// Hydrate merges a REST snapshot into the store. Server-issued fields
// (conversation ID, unread count, preview) are authoritative; messages
// already loaded in memory are always preserved, and snapshot messages
// are merged in by server ID so a duplicate or stale snapshot is a no-op.
func (s *Store) Hydrate(snapshot []Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sum := range snapshot {
		c := s.ensureLocked(sum.Peer, sum.PeerName)
		if sum.ID != "" {
			c.id = sum.ID
		}
		c.unread = sum.Unread
		// A snapshot can arrive after live traffic it does not include;
		// never let its preview roll back a newer one.
		if sum.Preview.Timestamp != "" {
			cur := parseStamp(c.preview.Timestamp)
			snap := parseStamp(sum.Preview.Timestamp)
			if cur.IsZero() || !snap.Before(cur) {
				c.preview = sum.Preview
			}
		}
		for i := range sum.Messages {
			s.appendLocked(c, sum.Messages[i])
		}
		if c.lastActivity.IsZero() {
			c.lastActivity = parseStamp(sum.Preview.Timestamp)
		}
	}
}

// Append inserts a message at the end of the conversation's sequence
// (insertion order is arrival order). If the message carries a correlation
// ID matching an existing pending message, or a server ID already known,
// the existing message is updated in place instead of appending a
// duplicate. Reports whether a new message was actually inserted; callers
// use this to keep unread counters and notifications idempotent, and a
// deduped delivery does not touch the preview or resurface the
// conversation.
func (s *Store) Append(key string, m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.ensureLocked(key, "")
	inserted := s.appendLocked(c, m)
	if inserted {
		c.preview = Preview{Text: m.Text, Sender: m.Sender, Timestamp: m.Timestamp}
		c.lastActivity = time.Now()
	}
	return inserted
}

// appendLocked merges m into c, reporting whether a new message was
// inserted (false when it reconciled or deduped an existing one).
func (s *Store) appendLocked(c *conv, m Message) bool {
	// Reconcile an optimistic send with its server-confirmed copy.
	if m.CorrelationID != "" {
		if existing, ok := s.byCorr[m.CorrelationID]; ok {
			if m.ServerID != "" && existing.ServerID == "" {
				existing.ServerID = m.ServerID
				s.byServer[m.ServerID] = existing
			}
			if m.Text != "" {
				existing.Text = m.Text
			}
			if m.Timestamp != "" {
				existing.Timestamp = m.Timestamp
			}
			if m.State > existing.State {
				existing.State = m.State
			}
			return false
		}
	}

	// Duplicate inbound delivery of the same server message.
	if m.ServerID != "" {
		if existing, ok := s.byServer[m.ServerID]; ok {
			if m.State > existing.State {
				existing.State = m.State
			}
			return false
		}
	}

	stored := m
	c.msgs = append(c.msgs, &stored)
	if stored.ServerID != "" {
		s.byServer[stored.ServerID] = &stored
	}
	if stored.CorrelationID != "" {
		s.byCorr[stored.CorrelationID] = &stored
	}
	if stored.FromMe && stored.State == StatePending {
		s.pending = append(s.pending, pendingRef{key: c.key, corr: stored.CorrelationID})
	}
	return true
}

// ConfirmNextSent resolves a delivery confirmation against the oldest
// unconfirmed outgoing message, assigning the server ID and advancing it
// to sent. The confirmation frame carries only the server ID, so send
// order is the correlation mechanism.
func (s *Store) ConfirmNextSent(serverID string) (key, correlationID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.pending) > 0 {
		ref := s.pending[0]
		s.pending = s.pending[1:]
		m, found := s.byCorr[ref.corr]
		if !found || m.State > StatePending {
			continue
		}
		m.ServerID = serverID
		s.byServer[serverID] = m
		m.State = StateSent
		return ref.key, ref.corr, true
	}
	return "", "", false
}

// AdvanceMessage moves the message with the given server ID forward to
// state. Backward transitions are rejected. Reports whether anything
// changed.
func (s *Store) AdvanceMessage(serverID string, state DeliveryState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byServer[serverID]
	if !ok || state <= m.State {
		return false
	}
	m.State = state
	return true
}

// MarkRead zeroes the unread counter for a conversation.
func (s *Store) MarkRead(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[key]; ok {
		c.unread = 0
	}
}

// IncrementUnread bumps the unread counter. The coordinator calls this
// only when the conversation is not the one currently open.
func (s *Store) IncrementUnread(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(key, "").unread++
}

// TotalUnread is the sum of all per-conversation unread counters. There
// is no separate total counter to drift.
func (s *Store) TotalUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, c := range s.convs {
		total += c.unread
	}
	return total
}

// UnackedPeerMessageIDs returns server IDs of peer messages in the
// conversation not yet acknowledged as read.
func (s *Store) UnackedPeerMessageIDs(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[key]
	if !ok {
		return nil
	}
	var ids []string
	for _, m := range c.msgs {
		if !m.FromMe && m.ServerID != "" && m.State < StateRead {
			ids = append(ids, m.ServerID)
		}
	}
	return ids
}

// SetConversationID attaches the server-issued conversation ID once known.
func (s *Store) SetConversationID(key, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		s.ensureLocked(key, "").id = id
	}
}

// ConversationID returns the server-issued ID for key, if known.
func (s *Store) ConversationID(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.convs[key]; ok {
		return c.id
	}
	return ""
}

// Get returns a snapshot copy of one conversation.
func (s *Store) Get(key string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[key]
	if !ok {
		return Conversation{}, false
	}
	return snapshot(c), true
}

// Conversations returns snapshot copies sorted by last activity, newest
// first.
func (s *Store) Conversations() []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, snapshot(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// Reset discards all in-memory state. Used on explicit logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs = make(map[string]*conv)
	s.byServer = make(map[string]*Message)
	s.byCorr = make(map[string]*Message)
	s.pending = nil
}

func snapshot(c *conv) Conversation {
	out := Conversation{
		Key:          c.key,
		ID:           c.id,
		PeerName:     c.peerName,
		Unread:       c.unread,
		Preview:      c.preview,
		LastActivity: c.lastActivity,
		Messages:     make([]Message, len(c.msgs)),
	}
	for i, m := range c.msgs {
		out.Messages[i] = *m
	}
	return out
}

func parseStamp(iso string) time.Time {
	if iso == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return time.Time{}
	}
	return t
}
