package assistant

import (
	"chat-layer/engine"
)

// RunEventKind tags the internal event variants produced by the run machine.
type RunEventKind string

const (
	// KindRunStatus reports a run status transition observed by the poll loop.
	KindRunStatus RunEventKind = "run_status"
	// KindMessageSeen reports a remote message observed during a run.
	KindMessageSeen RunEventKind = "message_seen"
	// KindToolAction reports a run suspended on pending tool calls.
	KindToolAction RunEventKind = "tool_action_required"
	// KindError terminates a sequence after any engine failure.
	KindError RunEventKind = "error"
)

// RunEvent is one element of the finite event sequence produced by a single
// run machine invocation. Exactly one field besides Kind is set, matching
// the kind.
type RunEvent struct {
	Kind    RunEventKind
	Run     *engine.Run
	Message *engine.Message
	Err     error
}

// Server-sent event names. The vocabulary is closed: run statuses map to
// "thread.run.<status>", everything else is listed here.
const (
	EventThreadCreated    = "thread.created"
	EventMessageCreated   = "thread.message.created"
	EventMessageDelta     = "thread.message.delta"
	EventMessageCompleted = "thread.message.completed"
	EventError            = "error"
)

// RunStatusEventName returns the wire event name for a run status.
func RunStatusEventName(status engine.RunStatus) string {
	return "thread.run." + string(status)
}

// ServerEvent is one typed server-sent event delivered to the caller.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// messageDelta is the payload of thread.message.delta events. The engine
// does not stream sub-message tokens, so each reconciled message becomes a
// single delta chunk.
type messageDelta struct {
	ID     string            `json:"id"`
	Object string            `json:"object"`
	Delta  messageDeltaInner `json:"delta"`
}

type messageDeltaInner struct {
	Content []engine.ContentPart `json:"content"`
}

func newMessageDelta(m *engine.Message) messageDelta {
	return messageDelta{
		ID:     m.ID,
		Object: "thread.message.delta",
		Delta:  messageDeltaInner{Content: m.Content},
	}
}

// ErrorPayload is the payload of the terminal error event.
type ErrorPayload struct {
	Error string `json:"error"`
}
