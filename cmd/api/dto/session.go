package dto

import (
	"time"

	"chat-layer/models"
)

// SessionDTO is the outward view of a chat session.
type SessionDTO struct {
	ID           string    `json:"id"`
	AssistantID  string    `json:"assistant_id"`
	ThreadID     string    `json:"thread_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

func SessionFromModel(s *models.ChatSession) SessionDTO {
	return SessionDTO{
		ID:           s.ID,
		AssistantID:  s.AssistantID,
		ThreadID:     s.ThreadID(),
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
	}
}

// SessionListDTO is a paginated session listing.
type SessionListDTO struct {
	Items    []SessionDTO `json:"items"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// SessionDetailDTO is one session with its full message history.
type SessionDetailDTO struct {
	Session  SessionDTO   `json:"session"`
	Messages []MessageDTO `json:"messages"`
}

func MessageFromModel(m *models.ChatMessage) MessageDTO {
	return MessageDTO{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
