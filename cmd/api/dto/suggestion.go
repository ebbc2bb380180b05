package dto

import (
	"time"

	"chat-layer/models"
)

// SuggestionDTO is one stored follow-up question.
type SuggestionDTO struct {
	ID         string    `json:"id"`
	Suggestion string    `json:"suggestion"`
	CreatedAt  time.Time `json:"created_at"`
}

func SuggestionFromModel(s *models.FollowUpSuggestion) SuggestionDTO {
	return SuggestionDTO{
		ID:         s.ID,
		Suggestion: s.Suggestion,
		CreatedAt:  s.CreatedAt,
	}
}

// SuggestionListDTO is the response for suggestion listing/generation.
type SuggestionListDTO struct {
	Items []SuggestionDTO `json:"items"`
}
