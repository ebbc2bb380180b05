package models

import (
	"time"
)

// MetaThreadID is the session metadata key carrying the remote thread id.
const MetaThreadID = "thread_id"

// ChatSession represents one conversation owned by an embedding site's
// end user, mapped 1:1 to a remote engine thread.
// Collection: chat_sessions
type ChatSession struct {
	ID           string         `bson:"_id" json:"id"`
	AssistantID  string         `bson:"assistant_id" json:"assistant_id"`
	Fingerprint  string         `bson:"fingerprint" json:"fingerprint"`
	Metadata     map[string]any `bson:"metadata" json:"metadata"`
	CreatedAt    time.Time      `bson:"created_at" json:"created_at"`
	LastActiveAt time.Time      `bson:"last_active_at" json:"last_active_at"`
}

// ThreadID returns the remote thread id stored in session metadata.
func (s *ChatSession) ThreadID() string {
	if s == nil || s.Metadata == nil {
		return ""
	}
	v, _ := s.Metadata[MetaThreadID].(string)
	return v
}
