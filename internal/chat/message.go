// ABOUTME: Domain types shared across the client: users, messages, conversation keys
// ABOUTME: JSON field names match the backend wire format exactly

package chat

import (
	"time"

	"github.com/google/uuid"
)

// User is a roster entry. Immutable from this package's perspective
// except ProfilePhoto, which the authenticated-identity owner may
// refresh out-of-band.
type User struct {
	ID           string `json:"_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`
}

// Message is one entry in a conversation. Messages carry no
// server-assigned identity; display identity is positional (arrival
// order) and no deduplication key exists. ClientID is a locally
// generated correlation ID attached at construction so a future
// acknowledgment path could match local echoes against server copies —
// nothing consumes it today.
type Message struct {
	ClientID  string    `json:"client_id,omitempty"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Content   string    `json:"content"`
	FileURL   string    `json:"fileUrl,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage builds a locally originated message with a fresh
// correlation ID and the current time as its timestamp.
func NewMessage(sender, receiver, content, fileURL string) Message {
	return Message{
		ClientID:  uuid.New().String(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		FileURL:   fileURL,
		Timestamp: time.Now(),
	}
}

// ConversationKey is the unordered pair of user IDs identifying a
// two-party conversation.
type ConversationKey struct {
	A string
	B string
}

// Matches reports whether the message belongs to this conversation:
// its (sender, receiver) pair equals the key in either order.
func (k ConversationKey) Matches(m Message) bool {
	return (m.Sender == k.A && m.Receiver == k.B) ||
		(m.Sender == k.B && m.Receiver == k.A)
}
