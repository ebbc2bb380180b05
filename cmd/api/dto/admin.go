package dto

import (
	"time"

	"chat-layer/models"
	"chat-layer/repositories"
)

// AdminLoginRequestDTO exchanges the operator API key for a JWT.
type AdminLoginRequestDTO struct {
	APIKey string `json:"api_key" binding:"required"`
}

// AdminLoginResponseDTO carries the signed access token.
type AdminLoginResponseDTO struct {
	AccessToken string `json:"access_token"`
}

// AssistantRequestDTO creates or updates an assistant registration.
type AssistantRequestDTO struct {
	RemoteAssistantID string           `json:"remote_assistant_id" binding:"required"`
	Name              string           `json:"name" binding:"required"`
	Model             string           `json:"model,omitempty"`
	Instructions      string           `json:"instructions,omitempty"`
	Tools             []map[string]any `json:"tools,omitempty"`
	Metadata          map[string]any   `json:"metadata,omitempty"`
}

// AssistantDTO is the outward view of an assistant registration.
type AssistantDTO struct {
	ID                string           `json:"id"`
	RemoteAssistantID string           `json:"remote_assistant_id"`
	Name              string           `json:"name"`
	Model             string           `json:"model,omitempty"`
	Instructions      string           `json:"instructions,omitempty"`
	Tools             []map[string]any `json:"tools,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func AssistantFromModel(a *models.Assistant) AssistantDTO {
	return AssistantDTO{
		ID:                a.ID,
		RemoteAssistantID: a.RemoteAssistantID,
		Name:              a.Name,
		Model:             a.Model,
		Instructions:      a.Instructions,
		Tools:             a.Tools,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// WebhookRequestDTO registers a webhook endpoint.
type WebhookRequestDTO struct {
	URL    string   `json:"url" binding:"required"`
	Events []string `json:"events" binding:"required"`
}

// WebhookDTO is the outward view of a webhook endpoint. The signing secret
// is only disclosed once, in the creation response.
type WebhookDTO struct {
	ID             string     `json:"id"`
	URL            string     `json:"url"`
	Events         []string   `json:"events"`
	Status         string     `json:"status"`
	Active         bool       `json:"active"`
	FailureCount   int        `json:"failure_count"`
	LastDeliveryAt *time.Time `json:"last_delivery_at,omitempty"`
	Secret         string     `json:"secret,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func WebhookFromModel(w *models.WebhookEndpoint) WebhookDTO {
	return WebhookDTO{
		ID:             w.ID,
		URL:            w.URL,
		Events:         w.Events,
		Status:         w.Status,
		Active:         w.Active,
		FailureCount:   w.FailureCount,
		LastDeliveryAt: w.LastDeliveryAt,
		CreatedAt:      w.CreatedAt,
	}
}

// UsageSummaryDTO is the analytics rollup for one assistant and window.
type UsageSummaryDTO struct {
	AssistantID   string                    `json:"assistant_id"`
	From          time.Time                 `json:"from"`
	To            time.Time                 `json:"to"`
	TotalRuns     int64                     `json:"total_runs"`
	FailedRuns    int64                     `json:"failed_runs"`
	TotalTokens   int64                     `json:"total_tokens"`
	AvgDurationMs float64                   `json:"avg_duration_ms"`
	Daily         []repositories.DailyUsage `json:"daily"`
}
