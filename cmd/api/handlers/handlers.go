package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"chat-layer/assistant"
	"chat-layer/cmd/api/dto"
	"chat-layer/engine"
)

// streamEvents writes the event channel to the response as server-sent
// events until the channel closes or the client disconnects.
func streamEvents(c *gin.Context, events <-chan assistant.ServerEvent) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.Flush()

	for ev := range events {
		c.SSEvent(ev.Event, ev.Data)
		c.Writer.Flush()
	}
}

// collectOutcome folds a full event stream into one response object for
// the non-streaming endpoints. When the run suspends on tool calls, cancel
// stops the underlying poll loop so the request can return.
func collectOutcome(events <-chan assistant.ServerEvent, cancel context.CancelFunc, threadID, sessionID string) dto.RunOutcomeDTO {
	outcome := dto.RunOutcomeDTO{ThreadID: threadID, SessionID: sessionID}
	for ev := range events {
		switch {
		case ev.Event == assistant.EventThreadCreated:
			if thread, ok := ev.Data.(*engine.Thread); ok {
				outcome.ThreadID = thread.ID
			}

		case ev.Event == assistant.EventMessageCompleted:
			if msg, ok := ev.Data.(*engine.Message); ok {
				outcome.Messages = append(outcome.Messages, dto.MessageDTO{
					ID:        msg.ID,
					Role:      msg.Role,
					Content:   msg.PlainText(),
					CreatedAt: time.Unix(msg.CreatedAt, 0).UTC(),
				})
			}

		case ev.Event == assistant.EventError:
			if p, ok := ev.Data.(assistant.ErrorPayload); ok {
				outcome.Error = p.Error
			}

		case strings.HasPrefix(ev.Event, "thread.run."):
			run, ok := ev.Data.(*engine.Run)
			if !ok {
				continue
			}
			outcome.RunID = run.ID
			outcome.Status = string(run.Status)
			if run.Status == engine.RunStatusRequiresAction {
				outcome.ToolCalls = run.ToolCalls()
				// the run stays suspended remotely; outputs arrive via a
				// separate submit call
				cancel()
			}
		}
	}
	return outcome
}

// respondOutcome maps a folded outcome to an HTTP response.
func respondOutcome(c *gin.Context, outcome dto.RunOutcomeDTO) {
	if outcome.Error != "" {
		status := http.StatusBadGateway
		if strings.Contains(outcome.Error, "not_found") {
			status = http.StatusNotFound
		}
		c.JSON(status, outcome)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// abortWithConversationError maps orchestrator sentinel errors to statuses.
func abortWithConversationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, assistant.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: err.Error()})
	case errors.Is(err, assistant.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: err.Error()})
	case errors.Is(err, assistant.ErrInvalidState):
		c.JSON(http.StatusConflict, dto.ErrorResponseDTO{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: err.Error()})
	}
}
