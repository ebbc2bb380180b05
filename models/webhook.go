package models

import (
	"time"
)

// Webhook endpoint statuses.
const (
	WebhookStatusActive = "active"
	WebhookStatusFailed = "failed"
)

// MaxWebhookFailures is the consecutive delivery failure count after which
// an endpoint is marked failed and no longer receives events.
const MaxWebhookFailures = 5

// WebhookEndpoint is a registered receiver for conversation lifecycle events.
// Collection: webhooks
type WebhookEndpoint struct {
	ID             string         `bson:"_id" json:"id"`
	URL            string         `bson:"url" json:"url"`
	Secret         string         `bson:"secret" json:"-"`
	Events         []string       `bson:"events" json:"events"`
	Status         string         `bson:"status" json:"status"`
	Active         bool           `bson:"active" json:"active"`
	FailureCount   int            `bson:"failure_count" json:"failure_count"`
	LastDeliveryAt *time.Time     `bson:"last_delivery_at,omitempty" json:"last_delivery_at,omitempty"`
	Metadata       map[string]any `bson:"metadata" json:"metadata"`
	CreatedAt      time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `bson:"updated_at" json:"updated_at"`
}
