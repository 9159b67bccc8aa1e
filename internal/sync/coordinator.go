// Package sync ties the engine together: it is the only component that
// knows which conversation is open, translates inbound transport events
// into store and presence mutations, and turns user intents into
// outbound frames.
package sync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pigeonchat/pigeon/internal/backend"
	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/outbox"
	"github.com/pigeonchat/pigeon/internal/presence"
	"github.com/pigeonchat/pigeon/internal/roster"
	"github.com/pigeonchat/pigeon/internal/status"
	"github.com/pigeonchat/pigeon/internal/store"
	"github.com/pigeonchat/pigeon/internal/transport"
	"github.com/pigeonchat/pigeon/internal/wire"
	"go.uber.org/zap"
)

// ErrEmptyMessage is returned for messages that are empty after trimming.
// Rejected locally, before any network call.
var ErrEmptyMessage = errors.New("sync: empty message")

// Transport is the slice of the connection manager the coordinator uses.
type Transport interface {
	Connect(ctx context.Context)
	Send(ctx context.Context, frame any) error
	Close()
}

// Backend is the slice of the REST client the coordinator uses.
type Backend interface {
	RecentConversations(ctx context.Context) ([]backend.ConversationSummary, error)
	MarkRead(ctx context.Context, id string) error
	Friends(ctx context.Context) ([]backend.Friend, error)
	FriendRequests(ctx context.Context) ([]backend.FriendRequest, error)
	SearchUsers(ctx context.Context, term string) ([]backend.User, error)
	SendFriendRequest(ctx context.Context, friendID string) error
	AcceptFriendRequest(ctx context.Context, friendID string) error
	RejectFriendRequest(ctx context.Context, friendID string) error
}

// Notification is the payload published on "notify.message" when a
// message arrives for a conversation that is not open.
type Notification struct {
	Peer           string
	Preview        string
	ConversationID string
}

// Coordinator drives the session state machine and owns all store
// mutations. The UI never touches the store directly; it subscribes to
// the bus and calls the intent methods below.
type Coordinator struct {
	store     *store.Store
	presence  *presence.Tracker
	roster    *roster.Roster
	machine   *status.Machine
	transport Transport
	backend   Backend
	journal   *outbox.Journal
	bus       *bus.Bus
	logger    *zap.Logger

	mu           sync.Mutex
	self         string
	current      string
	pendingReads map[string]struct{}
	hydrated     bool
	connected    bool
	rehydrating  bool

	cancel context.CancelFunc
	unsub  func()
}

// New creates a coordinator. journal may be nil to disable the durable
// outbox.
func New(
	st *store.Store,
	tr *presence.Tracker,
	ro *roster.Roster,
	machine *status.Machine,
	tp Transport,
	be Backend,
	journal *outbox.Journal,
	b *bus.Bus,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		store:        st,
		presence:     tr,
		roster:       ro,
		machine:      machine,
		transport:    tp,
		backend:      be,
		journal:      journal,
		bus:          b,
		logger:       logger,
		pendingReads: make(map[string]struct{}),
	}
}

// SetSelf records the local user's identity, known after login.
func (c *Coordinator) SetSelf(username string) {
	c.mu.Lock()
	c.self = username
	c.mu.Unlock()
}

// Start kicks off hydration and the transport connection in parallel and
// begins consuming transport events. The session reaches ready once both
// the snapshot and the connection greeting have arrived, in either order.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.machine.Transition(status.Hydrating); err != nil {
		return err
	}

	ctx, c.cancel = context.WithCancel(ctx)
	ch, unsub := c.bus.Subscribe("transport.", 256)
	c.unsub = unsub

	go func() {
		for {
			select {
			case evt := <-ch:
				c.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()

	go c.hydrate(ctx)
	go c.transport.Connect(ctx)
	go c.refreshRoster(ctx)

	return nil
}

// Close is explicit logout: tear down the transport and discard all
// in-memory state.
func (c *Coordinator) Close() {
	if err := c.machine.Transition(status.Closed); err != nil {
		c.logger.Warn("close transition", zap.Error(err))
	}
	if c.cancel != nil {
		c.cancel()
	}
	if c.unsub != nil {
		c.unsub()
	}
	c.transport.Close()
	c.presence.Stop()
	c.store.Reset()

	c.mu.Lock()
	c.pendingReads = make(map[string]struct{})
	c.mu.Unlock()
}

// SendMessage assigns a correlation id, appends an optimistic pending
// message so the UI updates before any round-trip, journals it, and
// forwards the frame. A transport error leaves the message pending and
// is surfaced to the caller.
func (c *Coordinator) SendMessage(ctx context.Context, peer, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	corr := uuid.NewString()
	c.store.Append(peer, store.Message{
		CorrelationID: corr,
		Sender:        c.selfName(),
		Text:          text,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		FromMe:        true,
		State:         store.StatePending,
	})
	c.bus.Emit("conversation.updated", peer)

	if err := c.journal.Record(corr, peer, text); err != nil {
		c.logger.Warn("journal record failed", zap.Error(err))
	}

	if err := c.transport.Send(ctx, wire.NewMessageFrame(peer, text)); err != nil {
		_ = c.journal.Fail(corr, err.Error())
		c.bus.Emit("notify.send_failed", peer)
		return corr, err
	}
	return corr, nil
}

// SetTyping forwards this client's typing state. Debouncing is the
// caller's concern; only the receiving side needs the expiry backstop.
func (c *Coordinator) SetTyping(ctx context.Context, peer string, isTyping bool) error {
	return c.transport.Send(ctx, wire.NewTypingFrame(peer, isTyping))
}

// OpenConversation marks key as the current conversation, clears its
// unread count, and acknowledges all unread peer messages.
func (c *Coordinator) OpenConversation(ctx context.Context, key string) {
	c.mu.Lock()
	c.current = key
	c.mu.Unlock()

	c.store.MarkRead(key)
	c.ackRead(ctx, key)

	if id := c.store.ConversationID(key); id != "" {
		go func() {
			if err := c.backend.MarkRead(ctx, id); err != nil {
				c.logger.Warn("mark read failed", zap.String("conversation", id), zap.Error(err))
			}
		}()
	}
	c.bus.Emit("conversation.updated", key)
}

// CloseConversation clears the current conversation.
func (c *Coordinator) CloseConversation() {
	c.mu.Lock()
	c.current = ""
	c.mu.Unlock()
}

// Refresh re-requests a hydration snapshot, for manual recovery after a
// hydration failure.
func (c *Coordinator) Refresh(ctx context.Context) {
	c.hydrate(ctx)
}

// SearchUsers looks up users to befriend by partial username.
func (c *Coordinator) SearchUsers(ctx context.Context, term string) ([]backend.User, error) {
	return c.backend.SearchUsers(ctx, strings.TrimSpace(term))
}

// SendFriendRequest opens a friend request to the given user.
func (c *Coordinator) SendFriendRequest(ctx context.Context, friendID string) error {
	return c.backend.SendFriendRequest(ctx, friendID)
}

// AcceptFriendRequest accepts a pending request and refreshes the
// roster so the new friend appears without waiting for a frame.
func (c *Coordinator) AcceptFriendRequest(ctx context.Context, friendID, username string) error {
	if err := c.backend.AcceptFriendRequest(ctx, friendID); err != nil {
		return err
	}
	c.roster.ApplyRequest("accepted", username)
	go c.refreshRoster(ctx)
	return nil
}

// RejectFriendRequest declines a pending request.
func (c *Coordinator) RejectFriendRequest(ctx context.Context, friendID, username string) error {
	if err := c.backend.RejectFriendRequest(ctx, friendID); err != nil {
		return err
	}
	c.roster.ApplyRequest("rejected", username)
	return nil
}

// ResendUnconfirmed replays journaled sends that were never confirmed,
// keeping their original correlation ids.
func (c *Coordinator) ResendUnconfirmed(ctx context.Context) error {
	entries, err := c.journal.Unconfirmed()
	if err != nil {
		return err
	}
	for _, e := range entries {
		c.store.Append(e.Recipient, store.Message{
			CorrelationID: e.CorrelationID,
			Sender:        c.selfName(),
			Text:          e.Body,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			FromMe:        true,
			State:         store.StatePending,
		})
		if err := c.journal.Record(e.CorrelationID, e.Recipient, e.Body); err != nil {
			c.logger.Warn("journal record failed", zap.Error(err))
		}
		if err := c.transport.Send(ctx, wire.NewMessageFrame(e.Recipient, e.Body)); err != nil {
			_ = c.journal.Fail(e.CorrelationID, err.Error())
			return err
		}
		c.bus.Emit("conversation.updated", e.Recipient)
	}
	return nil
}

func (c *Coordinator) handleEvent(ctx context.Context, evt bus.Event) {
	switch p := evt.Payload.(type) {
	case transport.Status:
		c.handleStatus(ctx, p)
	case wire.ConnectionEstablishedEvent:
		if p.Username != "" {
			c.SetSelf(p.Username)
		}
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		c.maybeReady()
	case wire.MessageEvent:
		c.handleMessage(ctx, p)
	case wire.MessageSentEvent:
		key, corr, ok := c.store.ConfirmNextSent(p.MessageID)
		if !ok {
			c.logger.Warn("delivery confirmation with no pending send", zap.String("message_id", p.MessageID))
			return
		}
		if err := c.journal.Confirm(corr, p.MessageID); err != nil {
			c.logger.Warn("journal confirm failed", zap.Error(err))
		}
		c.bus.Emit("conversation.updated", key)
	case wire.TypingEvent:
		c.presence.SetTyping(p.Username, p.IsTyping)
	case wire.ReadReceiptEvent:
		c.mu.Lock()
		_, pending := c.pendingReads[p.MessageID]
		if pending {
			delete(c.pendingReads, p.MessageID)
		}
		c.mu.Unlock()
		if pending && c.store.AdvanceMessage(p.MessageID, store.StateRead) {
			c.bus.Emit("conversation.updated", "")
		}
	case wire.StatusEvent:
		c.presence.SetPresence(p.Username, p.Online)
		c.roster.SetOnline(p.Username, p.Online)
	case wire.NotificationEvent:
		if p.NotificationType != "new_message" {
			return
		}
		c.store.SetConversationID(p.Sender, p.ConversationID)
		c.bus.Emit("notify.message", Notification{
			Peer:           p.Sender,
			Preview:        p.Preview,
			ConversationID: p.ConversationID,
		})
	case wire.FriendRequestEvent:
		c.roster.ApplyRequest(p.RequestType, p.Sender)
		go c.refreshRoster(ctx)
	}
}

func (c *Coordinator) handleStatus(ctx context.Context, s transport.Status) {
	switch s {
	case transport.StatusDisconnected:
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		cur := c.machine.Current()
		if cur == status.Ready || cur == status.Hydrating {
			if err := c.machine.Transition(status.Reconnecting); err != nil {
				c.logger.Warn("reconnecting transition", zap.Error(err))
			}
		}
	case transport.StatusConnected:
		if c.machine.Current() != status.Reconnecting {
			return
		}
		c.mu.Lock()
		if c.rehydrating {
			c.mu.Unlock()
			return
		}
		c.rehydrating = true
		c.mu.Unlock()

		// The store may have missed messages during the gap; there is no
		// replay protocol, so a fresh snapshot is the only recovery.
		go func() {
			c.hydrate(ctx)
			if err := c.machine.Transition(status.Ready); err != nil {
				c.logger.Warn("ready transition", zap.Error(err))
			}
			c.mu.Lock()
			c.rehydrating = false
			c.mu.Unlock()
		}()
	}
}

func (c *Coordinator) handleMessage(ctx context.Context, p wire.MessageEvent) {
	self := c.selfName()
	if self != "" && p.Sender == self {
		// Server echo of an own message: resolve it like a delivery
		// confirmation so the optimistic copy is not duplicated.
		if p.MessageID != "" {
			if key, corr, ok := c.store.ConfirmNextSent(p.MessageID); ok {
				if err := c.journal.Confirm(corr, p.MessageID); err != nil {
					c.logger.Warn("journal confirm failed", zap.Error(err))
				}
				c.bus.Emit("conversation.updated", key)
			}
		}
		return
	}

	key := p.Sender
	inserted := c.store.Append(key, store.Message{
		ServerID:  p.MessageID,
		Sender:    p.Sender,
		Text:      p.Text,
		Timestamp: p.Timestamp,
		State:     store.StateDelivered,
	})
	if !inserted {
		// Redelivered frame; the store already holds this message and
		// acting again would double-count it.
		return
	}

	if c.currentKey() == key {
		// Conversation is on screen: no unread, acknowledge immediately.
		c.store.MarkRead(key)
		c.ackRead(ctx, key)
	} else {
		c.store.IncrementUnread(key)
		c.bus.Emit("notify.message", Notification{Peer: key, Preview: p.Text})
	}
	c.bus.Emit("conversation.updated", key)
}

// ackRead sends read receipts for every unacknowledged peer message in
// the conversation and tracks them until the server confirms.
func (c *Coordinator) ackRead(ctx context.Context, key string) {
	for _, id := range c.store.UnackedPeerMessageIDs(key) {
		c.mu.Lock()
		if _, requested := c.pendingReads[id]; requested {
			c.mu.Unlock()
			continue
		}
		c.pendingReads[id] = struct{}{}
		c.mu.Unlock()

		if err := c.transport.Send(ctx, wire.NewReadReceiptFrame(id)); err != nil {
			c.mu.Lock()
			delete(c.pendingReads, id)
			c.mu.Unlock()
			return
		}
	}
}

func (c *Coordinator) hydrate(ctx context.Context) {
	sums, err := c.backend.RecentConversations(ctx)
	if err != nil {
		c.logger.Warn("hydration failed", zap.Error(err))
		c.bus.Emit("session.hydration_failed", err.Error())
		return
	}

	snapshot := make([]store.Summary, 0, len(sums))
	for _, sum := range sums {
		entry := store.Summary{
			ID:       sum.ID,
			Peer:     sum.Peer,
			PeerName: sum.PeerName,
			Unread:   sum.UnreadCount,
			Preview: store.Preview{
				Text:      sum.LastMessage,
				Sender:    sum.LastSender,
				Timestamp: sum.LastAt,
			},
		}
		for _, m := range sum.Messages {
			state := store.StateDelivered
			if m.Read {
				state = store.StateRead
			}
			entry.Messages = append(entry.Messages, store.Message{
				ServerID:  m.ID,
				Sender:    m.Sender,
				Text:      m.Text,
				Timestamp: m.Timestamp,
				FromMe:    m.Sender != sum.Peer,
				State:     state,
			})
		}
		snapshot = append(snapshot, entry)
	}

	c.store.Hydrate(snapshot)

	c.mu.Lock()
	c.hydrated = true
	c.mu.Unlock()

	c.maybeReady()
	c.bus.Emit("conversation.updated", "")
}

func (c *Coordinator) maybeReady() {
	c.mu.Lock()
	ready := c.hydrated && c.connected
	c.mu.Unlock()

	if ready && c.machine.Current() == status.Hydrating {
		if err := c.machine.Transition(status.Ready); err != nil {
			c.logger.Warn("ready transition", zap.Error(err))
		}
	}
}

func (c *Coordinator) refreshRoster(ctx context.Context) {
	friends, err := c.backend.Friends(ctx)
	if err != nil {
		c.logger.Warn("friends fetch failed", zap.Error(err))
		return
	}
	list := make([]roster.Friend, 0, len(friends))
	for _, f := range friends {
		list = append(list, roster.Friend{
			ID:       f.ID,
			Username: f.Username,
			Online:   f.Status == "online",
		})
	}
	c.roster.Replace(list)

	reqs, err := c.backend.FriendRequests(ctx)
	if err != nil {
		c.logger.Warn("friend requests fetch failed", zap.Error(err))
		return
	}
	pending := make([]roster.Request, 0, len(reqs))
	for _, q := range reqs {
		pending = append(pending, roster.Request{FriendID: q.FriendID, Username: q.Username})
	}
	c.roster.ReplaceRequests(pending)
}

func (c *Coordinator) currentKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Coordinator) selfName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}
