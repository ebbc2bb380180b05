package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"chat-layer/cmd/api/dto"
	"chat-layer/models"
	"chat-layer/repositories"
)

// AssistantService manages assistant registrations: local records binding a
// remote assistant id to the name, instructions and tools a site embeds.
type AssistantService struct {
	repo *repositories.AssistantRepository
}

func NewAssistantService(repo *repositories.AssistantRepository) *AssistantService {
	return &AssistantService{repo: repo}
}

func (s *AssistantService) Create(ctx context.Context, req dto.AssistantRequestDTO) (*models.Assistant, error) {
	return s.repo.Insert(ctx, &models.Assistant{
		RemoteAssistantID: req.RemoteAssistantID,
		Name:              req.Name,
		Model:             req.Model,
		Instructions:      req.Instructions,
		Tools:             req.Tools,
		Metadata:          req.Metadata,
	})
}

func (s *AssistantService) Get(ctx context.Context, id string) (*models.Assistant, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *AssistantService) List(ctx context.Context, page, pageSize int) ([]models.Assistant, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.List(ctx, pageSize, (page-1)*pageSize)
}

func (s *AssistantService) Update(ctx context.Context, id string, req dto.AssistantRequestDTO) (*models.Assistant, error) {
	set := bson.M{
		"remote_assistant_id": req.RemoteAssistantID,
		"name":                req.Name,
		"model":               req.Model,
		"instructions":        req.Instructions,
		"tools":               req.Tools,
		"updated_at":          time.Now().UTC(),
	}
	if req.Metadata != nil {
		set["metadata"] = req.Metadata
	}
	return s.repo.Update(ctx, id, set)
}

func (s *AssistantService) Delete(ctx context.Context, id string) (bool, error) {
	return s.repo.Delete(ctx, id)
}
