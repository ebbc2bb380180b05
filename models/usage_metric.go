package models

import (
	"time"
)

// UsageMetric records one completed (or failed) assistant run for analytics.
// Collection: usage_metrics
type UsageMetric struct {
	ID          string    `bson:"_id" json:"id"`
	SessionID   string    `bson:"session_id" json:"session_id"`
	AssistantID string    `bson:"assistant_id" json:"assistant_id"`
	Fingerprint string    `bson:"fingerprint" json:"fingerprint"`
	RunID       string    `bson:"run_id" json:"run_id"`
	TokensUsed  int       `bson:"tokens_used" json:"tokens_used"`
	DurationMs  int64     `bson:"duration_ms" json:"duration_ms"`
	Failed      bool      `bson:"failed" json:"failed"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
