package dto

import (
	"time"

	"chat-layer/engine"
)

// NewMessageDTO is one initial message for a new conversation.
type NewMessageDTO struct {
	Role    string `json:"role" example:"user"`
	Content string `json:"content" example:"What plans do you offer?"`
}

// StartThreadRequestDTO starts a conversation against an assistant.
type StartThreadRequestDTO struct {
	AssistantID  string          `json:"assistant_id" binding:"required"`
	Messages     []NewMessageDTO `json:"messages" binding:"required"`
	Instructions string          `json:"instructions,omitempty"`
}

// RunRequestDTO launches one run on an existing thread.
type RunRequestDTO struct {
	AssistantID  string `json:"assistant_id" binding:"required"`
	Instructions string `json:"instructions,omitempty"`
}

// AddMessageRequestDTO appends a user message to a thread.
type AddMessageRequestDTO struct {
	AssistantID string `json:"assistant_id" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

// ToolOutputDTO is one resolved tool call.
type ToolOutputDTO struct {
	ToolCallID string `json:"tool_call_id" binding:"required"`
	Output     string `json:"output"`
}

// SubmitToolOutputsRequestDTO resumes a suspended run.
type SubmitToolOutputsRequestDTO struct {
	AssistantID string          `json:"assistant_id" binding:"required"`
	ToolOutputs []ToolOutputDTO `json:"tool_outputs" binding:"required"`
}

// MessageDTO is one locally stored conversation message.
type MessageDTO struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RunOutcomeDTO is the non-streaming view of a finished (or suspended) run:
// everything the event stream would have delivered, folded into one object.
type RunOutcomeDTO struct {
	ThreadID  string            `json:"thread_id"`
	SessionID string            `json:"session_id"`
	RunID     string            `json:"run_id,omitempty"`
	Status    string            `json:"status"`
	Messages  []MessageDTO      `json:"messages,omitempty"`
	ToolCalls []engine.ToolCall `json:"tool_calls,omitempty"`
	Error     string            `json:"error,omitempty"`
}
