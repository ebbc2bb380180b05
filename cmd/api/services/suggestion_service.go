package services

import (
	"context"
	"fmt"

	"chat-layer/models"
	"chat-layer/repositories"
	"chat-layer/suggestions"
)

// SuggestionService generates and stores follow-up questions for a
// session. Generation is synchronous; the widget calls it after a run
// finishes, when the transcript tail is fresh.
type SuggestionService struct {
	sessions *repositories.ChatSessionRepository
	messages *repositories.ChatMessageRepository
	repo     *repositories.SuggestionRepository
}

func NewSuggestionService(
	sessions *repositories.ChatSessionRepository,
	messages *repositories.ChatMessageRepository,
	repo *repositories.SuggestionRepository,
) *SuggestionService {
	return &SuggestionService{sessions: sessions, messages: messages, repo: repo}
}

// Generate derives follow-up questions from the session's recent messages,
// replaces the stored set and returns it. Returns nil when the session does
// not belong to fingerprint.
func (s *SuggestionService) Generate(ctx context.Context, sessionID, fingerprint string) ([]models.FollowUpSuggestion, error) {
	session, err := s.sessions.FindByIDAndFingerprint(ctx, sessionID, fingerprint)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	msgs, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := suggestions.GenerateFromMessages(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("suggestion generation: %w", err)
	}
	if result.IsFailure || len(result.Suggestions) == 0 {
		return []models.FollowUpSuggestion{}, nil
	}

	// 이전 제안은 최신 대화 흐름과 어긋나므로 교체한다.
	if err := s.repo.DeleteBySession(ctx, sessionID); err != nil {
		return nil, err
	}
	if err := s.repo.InsertMany(ctx, sessionID, result.Suggestions); err != nil {
		return nil, err
	}
	return s.repo.ListBySession(ctx, sessionID, len(result.Suggestions))
}

// List returns the stored suggestions for an owned session.
func (s *SuggestionService) List(ctx context.Context, sessionID, fingerprint string, limit int) ([]models.FollowUpSuggestion, error) {
	session, err := s.sessions.FindByIDAndFingerprint(ctx, sessionID, fingerprint)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	items, err := s.repo.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		// nil means "no session" to callers; an owned session with no
		// suggestions is an empty list
		items = []models.FollowUpSuggestion{}
	}
	return items, nil
}
