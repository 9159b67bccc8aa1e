// Package wire defines the JSON frame protocol spoken over the realtime
// transport and the decoded event types handed to the rest of the client.
package wire

// Inbound event types, produced by ParseInbound. Each corresponds to one
// value of the frame's "type" discriminant.

// MessageEvent is an inbound chat message.
type MessageEvent struct {
	Text      string
	Timestamp string
	Sender    string
	MessageID string
	Recipient string
}

// MessageSentEvent confirms delivery of a message this client originated.
type MessageSentEvent struct {
	MessageID string
}

// TypingEvent signals a peer started or stopped typing.
type TypingEvent struct {
	Username string
	IsTyping bool
}

// ReadReceiptEvent signals a message was read.
type ReadReceiptEvent struct {
	MessageID string
}

// StatusEvent signals a peer went online or offline.
type StatusEvent struct {
	Username string
	Online   bool
}

// ConnectionEstablishedEvent is the server's post-auth greeting.
type ConnectionEstablishedEvent struct {
	Username string
}

// NotificationEvent carries a server-side notification, currently only
// new-message previews for conversations that are not open.
type NotificationEvent struct {
	NotificationType string
	ConversationID   string
	Sender           string
	Preview          string
}

// FriendRequestEvent signals a change in friend-request state.
// RequestType is one of "sent", "received", "accepted", "rejected".
type FriendRequestEvent struct {
	RequestType string
	Sender      string
}

// Outbound frames. Marshalled as-is with encoding/json.

// MessageFrame sends a chat message to a peer.
type MessageFrame struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Recipient string `json:"recipient"`
}

// TypingFrame signals this client's typing state to a peer.
type TypingFrame struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
	IsTyping  bool   `json:"is_typing"`
}

// ReadReceiptFrame acknowledges that a message was read.
type ReadReceiptFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
}

// NewMessageFrame builds an outbound message frame.
func NewMessageFrame(recipient, text string) MessageFrame {
	return MessageFrame{Type: "message", Text: text, Recipient: recipient}
}

// NewTypingFrame builds an outbound typing indicator frame.
func NewTypingFrame(recipient string, isTyping bool) TypingFrame {
	return TypingFrame{Type: "typing_indicator", Recipient: recipient, IsTyping: isTyping}
}

// NewReadReceiptFrame builds an outbound read receipt frame.
func NewReadReceiptFrame(messageID string) ReadReceiptFrame {
	return ReadReceiptFrame{Type: "read_receipt", MessageID: messageID}
}
