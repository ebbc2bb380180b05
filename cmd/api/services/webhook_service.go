package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"

	"chat-layer/cmd/api/dto"
	"chat-layer/eventbus"
	"chat-layer/models"
	"chat-layer/repositories"
)

// WebhookService manages webhook endpoint registrations. Actual delivery
// happens in the webhook worker; this service only owns the records.
type WebhookService struct {
	repo *repositories.WebhookRepository
}

func NewWebhookService(repo *repositories.WebhookRepository) *WebhookService {
	return &WebhookService{repo: repo}
}

var knownEventTypes = map[string]bool{
	eventbus.ConversationStarted:      true,
	eventbus.ConversationRunCompleted: true,
	eventbus.ConversationRunFailed:    true,
	eventbus.ConversationDeleted:      true,
}

// Create registers an endpoint and generates its signing secret. The
// secret is returned exactly once, in the creation response.
func (s *WebhookService) Create(ctx context.Context, req dto.WebhookRequestDTO) (*models.WebhookEndpoint, string, error) {
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, "", fmt.Errorf("invalid webhook url")
	}
	if len(req.Events) == 0 {
		return nil, "", fmt.Errorf("at least one event type is required")
	}
	for _, ev := range req.Events {
		if !knownEventTypes[ev] {
			return nil, "", fmt.Errorf("unknown event type %q", ev)
		}
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, "", err
	}

	created, err := s.repo.Insert(ctx, &models.WebhookEndpoint{
		URL:    req.URL,
		Secret: secret,
		Events: req.Events,
		Status: models.WebhookStatusActive,
		Active: true,
	})
	if err != nil {
		return nil, "", err
	}
	return created, secret, nil
}

func (s *WebhookService) Get(ctx context.Context, id string) (*models.WebhookEndpoint, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *WebhookService) List(ctx context.Context) ([]models.WebhookEndpoint, error) {
	return s.repo.List(ctx)
}

func (s *WebhookService) Delete(ctx context.Context, id string) (bool, error) {
	return s.repo.Delete(ctx, id)
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("secret generation failed: %w", err)
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}
