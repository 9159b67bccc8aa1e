package roster

import (
	"testing"
	"time"

	"github.com/pigeonchat/pigeon/internal/bus"
)

func TestReplaceAndSort(t *testing.T) {
	r := New(nil)
	r.Replace([]Friend{
		{ID: "2", Username: "charlie"},
		{ID: "1", Username: "alice"},
	})

	friends := r.Friends()
	if len(friends) != 2 || friends[0].Username != "alice" {
		t.Errorf("friends = %+v", friends)
	}
}

func TestSetOnlineKnownFriend(t *testing.T) {
	r := New(nil)
	r.Replace([]Friend{{ID: "1", Username: "bob"}})

	r.SetOnline("bob", true)
	if !r.Friends()[0].Online {
		t.Error("online flag not set")
	}

	// Unknown peer is a no-op, not a new entry.
	r.SetOnline("mallory", true)
	if len(r.Friends()) != 1 {
		t.Error("unknown peer created a roster entry")
	}
}

func TestPendingRequestLifecycle(t *testing.T) {
	r := New(nil)

	r.ApplyRequest("received", "bob")
	r.ApplyRequest("received", "alice")
	pending := r.Pending()
	if len(pending) != 2 || pending[0].Username != "alice" {
		t.Fatalf("pending = %+v", pending)
	}

	// The REST snapshot carries the IDs the frames lack.
	r.ReplaceRequests([]Request{
		{FriendID: "1", Username: "alice"},
		{FriendID: "2", Username: "bob"},
	})
	if got := r.Pending(); got[0].FriendID != "1" {
		t.Errorf("pending after snapshot = %+v", got)
	}

	r.ApplyRequest("accepted", "alice")
	r.ApplyRequest("rejected", "bob")
	if got := r.Pending(); len(got) != 0 {
		t.Errorf("resolved requests still pending: %+v", got)
	}
}

func TestApplyRequestPublishes(t *testing.T) {
	b := bus.New()
	r := New(b)

	ch, unsub := b.Subscribe("roster.request", 4)
	defer unsub()

	r.ApplyRequest("accepted", "bob")

	select {
	case evt := <-ch:
		u := evt.Payload.(Update)
		if u.RequestType != "accepted" || u.Sender != "bob" {
			t.Errorf("update = %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for roster event")
	}
}
