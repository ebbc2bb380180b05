package engine

import "fmt"

// RunStatus is the remote engine's run state. The set is closed; anything
// else coming off the wire is passed through but treated as non-terminal.
type RunStatus string

const (
	RunStatusCreated        RunStatus = "created"
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
)

// Terminal reports whether the run can make no further progress.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

// Active reports whether the run occupies its thread. requires_action runs
// count: a new run cannot start until they resolve or expire.
func (s RunStatus) Active() bool {
	switch s {
	case RunStatusCreated, RunStatusQueued, RunStatusInProgress, RunStatusRequiresAction:
		return true
	}
	return false
}

// Thread is a remote conversation container.
type Thread struct {
	ID        string         `json:"id"`
	CreatedAt int64          `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
}

// TextContent is the inner value of a text content part.
type TextContent struct {
	Value string `json:"value"`
}

// ContentPart is one piece of message content. Only text parts carry data
// this system consumes; other types (images etc.) are preserved on the wire
// but dropped during reconciliation.
type ContentPart struct {
	Type string       `json:"type"`
	Text *TextContent `json:"text,omitempty"`
}

// Message is a remote thread message.
type Message struct {
	ID        string        `json:"id"`
	ThreadID  string        `json:"thread_id"`
	Role      string        `json:"role"`
	Content   []ContentPart `json:"content"`
	CreatedAt int64         `json:"created_at"`
}

// PlainText concatenates all text-typed content parts. Non-text parts are
// skipped without error.
func (m *Message) PlainText() string {
	var out string
	for _, part := range m.Content {
		if part.Type == "text" && part.Text != nil {
			out += part.Text.Value
		}
	}
	return out
}

// FunctionCall is the callable a tool call targets.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is one pending tool invocation inside a requires_action run.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// SubmitToolOutputsAction lists the tool calls a run is blocked on.
type SubmitToolOutputsAction struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// RequiredAction describes why a run is suspended in requires_action.
type RequiredAction struct {
	Type              string                   `json:"type"`
	SubmitToolOutputs *SubmitToolOutputsAction `json:"submit_tool_outputs,omitempty"`
}

// LastError is the failure detail attached to failed runs.
type LastError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Usage is the token accounting attached to finished runs.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Run is one execution of an assistant against a thread.
type Run struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id"`
	AssistantID    string          `json:"assistant_id"`
	Status         RunStatus       `json:"status"`
	CreatedAt      int64           `json:"created_at"`
	StartedAt      *int64          `json:"started_at,omitempty"`
	CompletedAt    *int64          `json:"completed_at,omitempty"`
	LastError      *LastError      `json:"last_error,omitempty"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	Usage          *Usage          `json:"usage,omitempty"`
}

// ToolCalls returns the pending tool calls, empty when the run is not
// blocked on submit_tool_outputs.
func (r *Run) ToolCalls() []ToolCall {
	if r == nil || r.RequiredAction == nil || r.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}
	return r.RequiredAction.SubmitToolOutputs.ToolCalls
}

// NewMessage is the caller-supplied shape for seeding threads.
type NewMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	FileIDs []string `json:"file_ids,omitempty"`
}

// ToolOutput is one resolved tool call handed back to the engine.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// Error is the single failure variant for all engine calls. The client
// never swallows failures; every non-2xx response or transport error
// becomes an *Error.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("engine: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("engine: %s", e.Message)
}
