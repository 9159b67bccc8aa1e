package wire

import (
	"encoding/json"
	"fmt"
)

// rawFrame is the superset of all inbound frame fields. Frames are flat
// JSON objects discriminated by "type"; unknown fields are ignored.
type rawFrame struct {
	Type              string `json:"type"`
	MessageText       string `json:"message_text"`
	Timestamp         string `json:"timestamp"`
	SenderUsername    string `json:"sender_username"`
	MessageID         string `json:"message_id"`
	RecipientUsername string `json:"recipient_username"`
	Username          string `json:"username"`
	IsTyping          bool   `json:"is_typing"`
	Status            string `json:"status"`
	NotificationType  string `json:"notification_type"`
	ConversationID    string `json:"conversation_id"`
	MessagePreview    string `json:"message_preview"`
	RequestType       string `json:"request_type"`
}

// ParseInbound decodes a raw transport frame into a typed event.
// Returns an error for malformed JSON or an unknown discriminant; callers
// log and drop such frames.
func ParseInbound(data []byte) (any, error) {
	var f rawFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch f.Type {
	case "message":
		return MessageEvent{
			Text:      f.MessageText,
			Timestamp: f.Timestamp,
			Sender:    f.SenderUsername,
			MessageID: f.MessageID,
			Recipient: f.RecipientUsername,
		}, nil
	case "message_sent":
		return MessageSentEvent{MessageID: f.MessageID}, nil
	case "typing_indicator":
		// Some server builds send "username", others "sender_username".
		name := f.Username
		if name == "" {
			name = f.SenderUsername
		}
		return TypingEvent{Username: name, IsTyping: f.IsTyping}, nil
	case "read_receipt":
		return ReadReceiptEvent{MessageID: f.MessageID}, nil
	case "user_status_update":
		return StatusEvent{Username: f.Username, Online: f.Status == "online"}, nil
	case "connection_established":
		return ConnectionEstablishedEvent{Username: f.Username}, nil
	case "notification_update":
		return NotificationEvent{
			NotificationType: f.NotificationType,
			ConversationID:   f.ConversationID,
			Sender:           f.SenderUsername,
			Preview:          f.MessagePreview,
		}, nil
	case "friend_request_update":
		return FriendRequestEvent{RequestType: f.RequestType, Sender: f.SenderUsername}, nil
	case "":
		return nil, fmt.Errorf("frame missing type discriminant")
	default:
		return nil, fmt.Errorf("unknown frame type %q", f.Type)
	}
}
