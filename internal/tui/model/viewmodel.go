package model

import (
	"context"
	"sync"
	"time"

	"github.com/pigeonchat/pigeon/internal/backend"
	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/presence"
	"github.com/pigeonchat/pigeon/internal/roster"
	"github.com/pigeonchat/pigeon/internal/status"
	"github.com/pigeonchat/pigeon/internal/store"
	intsync "github.com/pigeonchat/pigeon/internal/sync"
)

// typingResendInterval throttles outbound typing indicators while the
// user keeps hitting keys.
const typingResendInterval = 700 * time.Millisecond

// ViewModel composes engine state for the views and signals refreshes
// when the bus reports a change. All reads return snapshots; the views
// never see engine internals.
type ViewModel struct {
	mu sync.Mutex

	coord    *intsync.Coordinator
	store    *store.Store
	presence *presence.Tracker
	roster   *roster.Roster
	machine  *status.Machine
	Flash    Flash

	activePeer  string
	lastTyping  time.Time
	refreshCh   chan struct{}
	unsubscribe func()
}

// NewViewModel creates a view model and subscribes it to engine events.
func NewViewModel(
	coord *intsync.Coordinator,
	st *store.Store,
	tr *presence.Tracker,
	ro *roster.Roster,
	machine *status.Machine,
	b *bus.Bus,
) *ViewModel {
	vm := &ViewModel{
		coord:     coord,
		store:     st,
		presence:  tr,
		roster:    ro,
		machine:   machine,
		refreshCh: make(chan struct{}, 1),
	}

	ch, unsub := b.Subscribe("", 128)
	vm.unsubscribe = unsub
	go func() {
		for evt := range ch {
			if n, ok := evt.Payload.(intsync.Notification); ok {
				vm.Flash.Set("New message from "+n.Peer, 4*time.Second, FlashInfo)
			}
			vm.signalRefresh()
		}
	}()

	return vm
}

// Stop unsubscribes from the bus.
func (vm *ViewModel) Stop() {
	if vm.unsubscribe != nil {
		vm.unsubscribe()
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// Conversations returns the conversation list, most recent first.
func (vm *ViewModel) Conversations() []store.Conversation {
	return vm.store.Conversations()
}

// Conversation returns the active conversation snapshot.
func (vm *ViewModel) Conversation() (store.Conversation, bool) {
	return vm.store.Get(vm.ActivePeer())
}

// ActivePeer returns the peer of the open conversation, if any.
func (vm *ViewModel) ActivePeer() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.activePeer
}

// SessionState returns the current engine lifecycle state.
func (vm *ViewModel) SessionState() status.State {
	return vm.machine.Current()
}

// TotalUnread returns the badge count across all conversations.
func (vm *ViewModel) TotalUnread() int {
	return vm.store.TotalUnread()
}

// IsOnline reports peer presence.
func (vm *ViewModel) IsOnline(peer string) bool {
	return vm.presence.IsOnline(peer)
}

// IsTyping reports whether peer is currently typing.
func (vm *ViewModel) IsTyping(peer string) bool {
	return vm.presence.IsTyping(peer)
}

// Friends returns the cached friend list.
func (vm *ViewModel) Friends() []roster.Friend {
	return vm.roster.Friends()
}

// PendingRequests returns incoming friend requests awaiting a decision.
func (vm *ViewModel) PendingRequests() []roster.Request {
	return vm.roster.Pending()
}

// SearchUsers looks up users to befriend.
func (vm *ViewModel) SearchUsers(ctx context.Context, term string) []backend.User {
	users, err := vm.coord.SearchUsers(ctx, term)
	if err != nil {
		vm.Flash.Set("Search failed: "+err.Error(), 5*time.Second, FlashError)
		return nil
	}
	return users
}

// SendFriendRequest opens a friend request to the given user.
func (vm *ViewModel) SendFriendRequest(ctx context.Context, friendID, username string) {
	if err := vm.coord.SendFriendRequest(ctx, friendID); err != nil {
		vm.Flash.Set("Request failed: "+err.Error(), 5*time.Second, FlashError)
		return
	}
	vm.Flash.Set("Friend request sent to "+username, 4*time.Second, FlashInfo)
}

// AcceptRequest accepts a pending friend request.
func (vm *ViewModel) AcceptRequest(ctx context.Context, req roster.Request) {
	if err := vm.coord.AcceptFriendRequest(ctx, req.FriendID, req.Username); err != nil {
		vm.Flash.Set("Accept failed: "+err.Error(), 5*time.Second, FlashError)
		return
	}
	vm.Flash.Set(req.Username+" is now a friend", 4*time.Second, FlashInfo)
	vm.signalRefresh()
}

// RejectRequest declines a pending friend request.
func (vm *ViewModel) RejectRequest(ctx context.Context, req roster.Request) {
	if err := vm.coord.RejectFriendRequest(ctx, req.FriendID, req.Username); err != nil {
		vm.Flash.Set("Reject failed: "+err.Error(), 5*time.Second, FlashError)
		return
	}
	vm.signalRefresh()
}

// Open makes peer the active conversation and clears its unread count.
func (vm *ViewModel) Open(ctx context.Context, peer string) {
	vm.mu.Lock()
	vm.activePeer = peer
	vm.mu.Unlock()
	vm.coord.OpenConversation(ctx, peer)
	vm.signalRefresh()
}

// CloseActive leaves the active conversation.
func (vm *ViewModel) CloseActive() {
	vm.mu.Lock()
	vm.activePeer = ""
	vm.mu.Unlock()
	vm.coord.CloseConversation()
	vm.signalRefresh()
}

// Send submits text to the active conversation.
func (vm *ViewModel) Send(ctx context.Context, text string) {
	peer := vm.ActivePeer()
	if peer == "" {
		return
	}
	vm.stopTyping(ctx, peer)
	if _, err := vm.coord.SendMessage(ctx, peer, text); err != nil {
		vm.Flash.Set("Send failed: "+err.Error(), 5*time.Second, FlashError)
	}
	vm.signalRefresh()
}

// Typing reports composer activity, throttled so a burst of keystrokes
// produces one indicator.
func (vm *ViewModel) Typing(ctx context.Context) {
	peer := vm.ActivePeer()
	if peer == "" {
		return
	}
	vm.mu.Lock()
	due := time.Since(vm.lastTyping) >= typingResendInterval
	if due {
		vm.lastTyping = time.Now()
	}
	vm.mu.Unlock()
	if due {
		_ = vm.coord.SetTyping(ctx, peer, true)
	}
}

func (vm *ViewModel) stopTyping(ctx context.Context, peer string) {
	vm.mu.Lock()
	vm.lastTyping = time.Time{}
	vm.mu.Unlock()
	_ = vm.coord.SetTyping(ctx, peer, false)
}

// Refresh asks the engine for a fresh snapshot.
func (vm *ViewModel) Refresh(ctx context.Context) {
	vm.coord.Refresh(ctx)
}
