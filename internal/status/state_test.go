package status

import (
	"testing"
	"time"

	"github.com/pigeonchat/pigeon/internal/bus"
)

func TestSessionLifecycle(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Uninitialized {
		t.Fatalf("initial state = %s, want %s", m.Current(), Uninitialized)
	}

	steps := []State{Hydrating, Ready, Reconnecting, Ready, Closed}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}
}

func TestInvalidTransitions(t *testing.T) {
	cases := []struct {
		from State
		to   State
	}{
		{Uninitialized, Ready},
		{Uninitialized, Reconnecting},
		{Ready, Hydrating},
		{Reconnecting, Hydrating},
		{Closed, Hydrating},
	}
	for _, tc := range cases {
		m := &Machine{current: tc.from}
		if err := m.Transition(tc.to); err == nil {
			t.Errorf("transition %s -> %s should fail", tc.from, tc.to)
		}
		if m.Current() != tc.from {
			t.Errorf("state changed on rejected transition: %s", m.Current())
		}
	}
}

func TestClosedReachableFromEverywhere(t *testing.T) {
	for _, from := range []State{Uninitialized, Hydrating, Ready, Reconnecting} {
		m := &Machine{current: from}
		if err := m.Transition(Closed); err != nil {
			t.Errorf("transition %s -> CLOSED: %v", from, err)
		}
	}
}

func TestTransitionPublishesStateChange(t *testing.T) {
	b := bus.New()
	m := NewMachine(b)

	ch, unsub := b.Subscribe("session.", 4)
	defer unsub()

	if err := m.Transition(Hydrating); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		change, ok := evt.Payload.(StateChange)
		if !ok {
			t.Fatalf("payload type %T", evt.Payload)
		}
		if change.From != Uninitialized || change.To != Hydrating {
			t.Errorf("change = %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for state change event")
	}
}
