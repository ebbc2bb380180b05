package models

import (
	"time"
)

// FollowUpSuggestion is a generated follow-up question for a session.
// Collection: suggestions
type FollowUpSuggestion struct {
	ID         string    `bson:"_id" json:"id"`
	SessionID  string    `bson:"session_id" json:"session_id"`
	Suggestion string    `bson:"suggestion" json:"suggestion"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
