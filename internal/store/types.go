package store

import "time"

// DeliveryState is the lifecycle stage of a message. Transitions are
// monotonic; a message never moves backwards.
type DeliveryState int

const (
	StatePending DeliveryState = iota
	StateSent
	StateDelivered
	StateRead
)

func (s DeliveryState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSent:
		return "sent"
	case StateDelivered:
		return "delivered"
	case StateRead:
		return "read"
	default:
		return "unknown"
	}
}

// Message is a single chat message. Messages this client originates carry a
// CorrelationID from birth and gain a ServerID once the server confirms;
// peer messages arrive with a ServerID and no CorrelationID.
type Message struct {
	CorrelationID string
	ServerID      string
	Sender        string
	Text          string
	Timestamp     string // server-supplied, ISO-8601
	FromMe        bool
	State         DeliveryState
}

// Preview is the last-message summary shown in the conversation list.
type Preview struct {
	Text      string
	Sender    string
	Timestamp string
}

// Conversation is the per-peer message history and metadata. Keyed by peer
// username; the server-issued conversation ID is attached once known.
type Conversation struct {
	Key          string
	ID           string
	PeerName     string
	Messages     []Message
	Unread       int
	Preview      Preview
	LastActivity time.Time
}

// Summary is one element of a hydration snapshot.
type Summary struct {
	ID       string
	Peer     string
	PeerName string
	Unread   int
	Preview  Preview
	Messages []Message
}
