package models

import (
	"time"
)

// Assistant is the local registry record for a remote engine assistant.
// The remote assistant itself is configured out-of-band; this record maps
// the ids the API exposes to the id the engine expects.
// Collection: assistants
type Assistant struct {
	ID                string         `bson:"_id" json:"id"`
	RemoteAssistantID string         `bson:"remote_assistant_id" json:"remote_assistant_id"`
	Name              string         `bson:"name" json:"name"`
	Model             string         `bson:"model" json:"model"`
	Instructions      string         `bson:"instructions" json:"instructions"`
	Tools             []map[string]any `bson:"tools" json:"tools"`
	Metadata          map[string]any `bson:"metadata" json:"metadata"`
	CreatedAt         time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `bson:"updated_at" json:"updated_at"`
}
