package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-layer/assistant"
	"chat-layer/engine"
)

func feed(events ...assistant.ServerEvent) <-chan assistant.ServerEvent {
	ch := make(chan assistant.ServerEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestCollectOutcomeFoldsCompletedRun(t *testing.T) {
	startedAt := int64(100)
	completedAt := int64(103)
	run := &engine.Run{
		ID:          "run_1",
		Status:      engine.RunStatusCompleted,
		StartedAt:   &startedAt,
		CompletedAt: &completedAt,
	}
	msg := &engine.Message{
		ID:        "msg_1",
		Role:      "assistant",
		CreatedAt: 102,
		Content: []engine.ContentPart{
			{Type: "text", Text: &engine.TextContent{Value: "hello"}},
		},
	}

	events := feed(
		assistant.ServerEvent{Event: assistant.EventThreadCreated, Data: &engine.Thread{ID: "thread_1"}},
		assistant.ServerEvent{Event: "thread.run.queued", Data: &engine.Run{ID: "run_1", Status: engine.RunStatusQueued}},
		assistant.ServerEvent{Event: assistant.EventMessageCreated, Data: msg},
		assistant.ServerEvent{Event: assistant.EventMessageCompleted, Data: msg},
		assistant.ServerEvent{Event: "thread.run.completed", Data: run},
	)

	cancelled := false
	outcome := collectOutcome(events, func() { cancelled = true }, "", "sess_1")

	assert.Equal(t, "thread_1", outcome.ThreadID)
	assert.Equal(t, "sess_1", outcome.SessionID)
	assert.Equal(t, "run_1", outcome.RunID)
	assert.Equal(t, "completed", outcome.Status)
	require.Len(t, outcome.Messages, 1)
	assert.Equal(t, "hello", outcome.Messages[0].Content)
	assert.Empty(t, outcome.Error)
	assert.False(t, cancelled)
}

func TestCollectOutcomeStopsPollingOnToolCalls(t *testing.T) {
	run := &engine.Run{
		ID:     "run_2",
		Status: engine.RunStatusRequiresAction,
		RequiredAction: &engine.RequiredAction{
			Type: "submit_tool_outputs",
			SubmitToolOutputs: &engine.SubmitToolOutputsAction{
				ToolCalls: []engine.ToolCall{{ID: "call_1", Type: "function"}},
			},
		},
	}

	events := feed(
		assistant.ServerEvent{Event: "thread.run.in_progress", Data: &engine.Run{ID: "run_2", Status: engine.RunStatusInProgress}},
		assistant.ServerEvent{Event: "thread.run.requires_action", Data: run},
	)

	cancelled := false
	outcome := collectOutcome(events, func() { cancelled = true }, "thread_2", "sess_2")

	assert.True(t, cancelled, "requires_action must stop the poll loop")
	assert.Equal(t, "requires_action", outcome.Status)
	require.Len(t, outcome.ToolCalls, 1)
	assert.Equal(t, "call_1", outcome.ToolCalls[0].ID)
}

func TestCollectOutcomeCapturesError(t *testing.T) {
	events := feed(
		assistant.ServerEvent{Event: "thread.run.queued", Data: &engine.Run{ID: "run_3", Status: engine.RunStatusQueued}},
		assistant.ServerEvent{Event: assistant.EventError, Data: assistant.ErrorPayload{Error: "engine error (not_found): no thread"}},
	)

	outcome := collectOutcome(events, func() {}, "thread_3", "sess_3")

	assert.Equal(t, "engine error (not_found): no thread", outcome.Error)
	assert.Equal(t, "queued", outcome.Status)
}
