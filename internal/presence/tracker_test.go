package presence

import (
	"testing"
	"time"

	"github.com/pigeonchat/pigeon/internal/bus"
)

func TestPresenceLastWriteWins(t *testing.T) {
	tr := NewTracker(nil, 0)

	if tr.IsOnline("bob") {
		t.Error("default presence should be offline")
	}
	tr.SetPresence("bob", true)
	tr.SetPresence("bob", false)
	tr.SetPresence("bob", true)
	if !tr.IsOnline("bob") {
		t.Error("last write should win")
	}
}

func TestTypingExpiresWithoutStopSignal(t *testing.T) {
	tr := NewTracker(nil, 50*time.Millisecond)
	defer tr.Stop()

	tr.SetTyping("bob", true)
	if !tr.IsTyping("bob") {
		t.Fatal("typing not recorded")
	}

	time.Sleep(120 * time.Millisecond)
	if tr.IsTyping("bob") {
		t.Error("typing did not expire")
	}
}

func TestTypingRefreshExtendsWindow(t *testing.T) {
	tr := NewTracker(nil, 80*time.Millisecond)
	defer tr.Stop()

	tr.SetTyping("bob", true)
	time.Sleep(50 * time.Millisecond)
	tr.SetTyping("bob", true)
	time.Sleep(50 * time.Millisecond)

	// 100ms elapsed but the second signal re-armed the timer.
	if !tr.IsTyping("bob") {
		t.Error("refresh did not extend typing window")
	}
}

func TestExplicitStopClearsImmediately(t *testing.T) {
	tr := NewTracker(nil, time.Minute)
	defer tr.Stop()

	tr.SetTyping("bob", true)
	tr.SetTyping("bob", false)
	if tr.IsTyping("bob") {
		t.Error("explicit stop ignored")
	}
}

func TestTypingTrackedPerPeer(t *testing.T) {
	tr := NewTracker(nil, time.Minute)
	defer tr.Stop()

	tr.SetTyping("bob", true)
	tr.SetTyping("alice", true)
	tr.SetTyping("bob", false)

	if tr.IsTyping("bob") {
		t.Error("bob should not be typing")
	}
	if !tr.IsTyping("alice") {
		t.Error("alice should still be typing")
	}
}

func TestExpiryPublishesChange(t *testing.T) {
	b := bus.New()
	tr := NewTracker(b, 30*time.Millisecond)
	defer tr.Stop()

	ch, unsub := b.Subscribe("presence.typing", 4)
	defer unsub()

	tr.SetTyping("bob", true)

	// Start event.
	select {
	case evt := <-ch:
		if !evt.Payload.(Change).IsTyping {
			t.Error("first event should report typing")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for typing start")
	}

	// Expiry event with no stop signal.
	select {
	case evt := <-ch:
		if evt.Payload.(Change).IsTyping {
			t.Error("expiry event should report not typing")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for typing expiry")
	}
}
