package domain

import "fmt"

// Message is one chat message in a room's ordered log. Messages are append-only;
// only IsRead ever flips after creation.
type Message struct {
	ID         int64  `json:"id"`
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"` // ISO-8601
	IsRead     bool   `json:"is_read"`
	ChatID     string `json:"chat_id"`
}

// RoomKey derives the canonical room for a two-party conversation. Both sides
// compute the same key regardless of who initiates: smaller id first.
func RoomKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}

// Inbound and outbound WebSocket envelope types.
const (
	EventMessage     = "message"      // client -> server: send a message
	EventMessageSent = "message_sent" // server -> sender: persisted ack
	EventNewMessage  = "new_message"  // server -> room members: fan-out
)

// InboundEvent is the envelope a connected client sends.
type InboundEvent struct {
	Type       string `json:"type"`
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}

// OutboundEvent is the envelope the hub pushes to connections.
type OutboundEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
}
