package models

import (
	"time"
)

// MetaRemoteMessageID is the message metadata key carrying the remote
// message id. The unique index on (session_id, metadata.remote_message_id)
// is the source of truth for reconciliation idempotence.
const MetaRemoteMessageID = "remote_message_id"

// Message roles. Thread messages are user or assistant only; instructions
// reach the engine through run options, not as a message role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a locally durable copy of one conversation message.
// Messages are never mutated after creation; session deletion removes them.
// Collection: chat_messages
type ChatMessage struct {
	ID         string         `bson:"_id" json:"id"`
	SessionID  string         `bson:"session_id" json:"session_id"`
	Role       string         `bson:"role" json:"role"`
	Content    string         `bson:"content" json:"content"`
	TokensUsed int            `bson:"tokens_used" json:"tokens_used"`
	Metadata   map[string]any `bson:"metadata" json:"metadata"`
	CreatedAt  time.Time      `bson:"created_at" json:"created_at"`
}

// RemoteMessageID returns the remote message id, empty if the message has
// not been reconciled from the engine.
func (m *ChatMessage) RemoteMessageID() string {
	if m == nil || m.Metadata == nil {
		return ""
	}
	v, _ := m.Metadata[MetaRemoteMessageID].(string)
	return v
}
