package assistant

import (
	"context"

	"chat-layer/engine"
	"chat-layer/logger"
	"chat-layer/trace"
)

// Translator turns the run machine's internal events into the server-sent
// event vocabulary clients consume. Messages are persisted through the
// reconciler before any message event goes out; a message that turns out to
// be already recorded produces no events at all.
type Translator struct {
	reconciler *Reconciler
}

func NewTranslator(rec *Reconciler) *Translator {
	return &Translator{reconciler: rec}
}

// Translate consumes in until it closes and produces the outward event
// stream for sessionID. After a terminal error event the remaining input is
// drained silently so the producer never blocks.
func (t *Translator) Translate(ctx context.Context, sessionID string, in <-chan RunEvent) <-chan ServerEvent {
	out := make(chan ServerEvent)
	go func() {
		defer close(out)
		failed := false
		for ev := range in {
			if failed {
				continue
			}
			if !t.translateOne(ctx, out, sessionID, ev) {
				failed = true
			}
		}
	}()
	return out
}

// translateOne handles a single event; returns false once the outward
// sequence is finished (error emitted or context gone).
func (t *Translator) translateOne(ctx context.Context, out chan<- ServerEvent, sessionID string, ev RunEvent) bool {
	switch ev.Kind {
	case KindRunStatus:
		return send(ctx, out, ServerEvent{
			Event: RunStatusEventName(ev.Run.Status),
			Data:  ev.Run,
		})

	case KindToolAction:
		return send(ctx, out, ServerEvent{
			Event: RunStatusEventName(engine.RunStatusRequiresAction),
			Data:  ev.Run,
		})

	case KindMessageSeen:
		created, err := t.reconciler.Reconcile(ctx, sessionID, ev.Message)
		if err != nil {
			logger.ErrorWithFields("메시지 저장 실패", logger.Fields{
				"request_id": trace.RequestIDFromContext(ctx),
				"session_id": sessionID,
				"message_id": ev.Message.ID,
				"error":      err.Error(),
			})
			send(ctx, out, ServerEvent{Event: EventError, Data: ErrorPayload{Error: err.Error()}})
			return false
		}
		if created == nil {
			// already recorded, nothing to emit
			return true
		}
		if !send(ctx, out, ServerEvent{Event: EventMessageCreated, Data: ev.Message}) {
			return false
		}
		if !send(ctx, out, ServerEvent{Event: EventMessageDelta, Data: newMessageDelta(ev.Message)}) {
			return false
		}
		return send(ctx, out, ServerEvent{Event: EventMessageCompleted, Data: ev.Message})

	case KindError:
		send(ctx, out, ServerEvent{Event: EventError, Data: ErrorPayload{Error: ev.Err.Error()}})
		return false
	}
	return true
}

func send(ctx context.Context, out chan<- ServerEvent, ev ServerEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
