// Package status tracks the session lifecycle of the sync engine.
package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/pigeonchat/pigeon/internal/bus"
)

// State is a session lifecycle state.
type State string

const (
	Uninitialized State = "UNINITIALIZED"
	Hydrating     State = "HYDRATING"
	Ready         State = "READY"
	Reconnecting  State = "RECONNECTING"
	Closed        State = "CLOSED"
)

// validTransitions defines the allowed edges of the session lifecycle.
// Closed is terminal and reachable from everywhere (explicit logout).
var validTransitions = map[State][]State{
	Uninitialized: {Hydrating, Closed},
	Hydrating:     {Ready, Reconnecting, Closed},
	Ready:         {Reconnecting, Closed},
	Reconnecting:  {Ready, Closed},
	Closed:        {},
}

// Machine enforces session state transitions and announces them on the bus.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// StateChange is the payload published on "session.state_changed".
type StateChange struct {
	From State
	To   State
}

// NewMachine creates a machine starting in Uninitialized.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{current: Uninitialized, bus: b}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition moves to a new state, or returns an error for an invalid edge.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	if !slices.Contains(validTransitions[m.current], to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	from := m.current
	m.current = to
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Emit("session.state_changed", StateChange{From: from, To: to})
	}
	return nil
}
