package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chat-layer/assistant"
	"chat-layer/cmd/api/dto"
	"chat-layer/cmd/api/middleware"
	"chat-layer/cmd/api/services"
	"chat-layer/engine"
)

// syncRunTimeout bounds the non-streaming endpoints; a run that outlives
// it ends the response with whatever was observed so far.
const syncRunTimeout = 120 * time.Second

func seedMessages(in []dto.NewMessageDTO) []engine.NewMessage {
	out := make([]engine.NewMessage, len(in))
	for i, m := range in {
		out[i] = engine.NewMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// StartThreadStreamHandler godoc
// @Summary      Start a conversation (SSE)
// @Description  Creates a thread seeded with the given messages, runs the assistant and streams events
// @Tags         threads
// @Accept       json
// @Produce      text/event-stream
// @Param        body  body      dto.StartThreadRequestDTO  true  "start request"
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Router       /threads/stream [post]
func StartThreadStreamHandler(convSvc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.StartThreadRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request"})
			return
		}

		res, err := convSvc.Start(c.Request.Context(), req.AssistantID, middleware.FingerprintFrom(c),
			seedMessages(req.Messages), assistant.RunOptions{AssistantID: req.AssistantID, Instructions: req.Instructions})
		if err != nil {
			abortWithConversationError(c, err)
			return
		}
		streamEvents(c, res.Events)
	}
}

// StartThreadHandler godoc
// @Summary      Start a conversation
// @Description  Creates a thread, runs the assistant to completion and returns the folded outcome
// @Tags         threads
// @Accept       json
// @Produce      json
// @Param        body  body      dto.StartThreadRequestDTO  true  "start request"
// @Success      200   {object}  dto.RunOutcomeDTO
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Router       /threads [post]
func StartThreadHandler(convSvc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.StartThreadRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), syncRunTimeout)
		defer cancel()

		res, err := convSvc.Start(ctx, req.AssistantID, middleware.FingerprintFrom(c),
			seedMessages(req.Messages), assistant.RunOptions{AssistantID: req.AssistantID, Instructions: req.Instructions})
		if err != nil {
			abortWithConversationError(c, err)
			return
		}
		outcome := collectOutcome(res.Events, cancel, "", res.Session.ID)
		respondOutcome(c, outcome)
	}
}

// CreateRunStreamHandler godoc
// @Summary      Run the assistant on a thread (SSE)
// @Description  Launches one run (or attaches to a surviving one) and streams events
// @Tags         threads
// @Accept       json
// @Produce      text/event-stream
// @Param        thread_id  path  string             true  "thread id"
// @Param        body       body  dto.RunRequestDTO  true  "run request"
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Router       /threads/{thread_id}/runs/stream [post]
func CreateRunStreamHandler(convSvc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.RunRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request"})
			return
		}

		res, err := convSvc.Continue(c.Request.Context(), c.Param("thread_id"), req.AssistantID,
			middleware.FingerprintFrom(c), assistant.RunOptions{Instructions: req.Instructions})
		if err != nil {
			abortWithConversationError(c, err)
			return
		}
		streamEvents(c, res.Events)
	}
}

// CreateRunHandler godoc
// @Summary      Run the assistant on a thread
// @Tags         threads
// @Accept       json
// @Produce      json
// @Param        thread_id  path  string             true  "thread id"
// @Param        body       body  dto.RunRequestDTO  true  "run request"
// @Success      200   {object}  dto.RunOutcomeDTO
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Router       /threads/{thread_id}/runs [post]
func CreateRunHandler(convSvc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.RunRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), syncRunTimeout)
		defer cancel()

		threadID := c.Param("thread_id")
		res, err := convSvc.Continue(ctx, threadID, req.AssistantID,
			middleware.FingerprintFrom(c), assistant.RunOptions{Instructions: req.Instructions})
		if err != nil {
			abortWithConversationError(c, err)
			return
		}
		outcome := collectOutcome(res.Events, cancel, threadID, res.Session.ID)
		respondOutcome(c, outcome)
	}
}

// AddMessageHandler godoc
// @Summary      Append a user message to a thread
// @Tags         threads
// @Accept       json
// @Produce      json
// @Param        thread_id  path  string                    true  "thread id"
// @Param        body       body  dto.AddMessageRequestDTO  true  "message"
// @Success      201   {object}  dto.MessageDTO
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Router       /threads/{thread_id}/messages [post]
func AddMessageHandler(convSvc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.AddMessageRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request"})
			return
		}

		msg, err := convSvc.AddMessage(c.Request.Context(), c.Param("thread_id"), req.AssistantID,
			middleware.FingerprintFrom(c), req.Content)
		if err != nil {
			abortWithConversationError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dto.MessageFromModel(msg))
	}
}

// SubmitToolOutputsStreamHandler godoc
// @Summary      Submit tool outputs (SSE)
// @Description  Resolves a requires_action run and streams the rest of it
// @Tags         threads
// @Accept       json
// @Produce      text/event-stream
// @Param        thread_id  path  string                           true  "thread id"
// @Param        run_id     path  string                           true  "run id"
// @Param        body       body  dto.SubmitToolOutputsRequestDTO  true  "tool outputs"
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Failure      409   {object}  dto.ErrorResponseDTO
// @Router       /threads/{thread_id}/runs/{run_id}/submit/stream [post]
func SubmitToolOutputsStreamHandler(convSvc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.SubmitToolOutputsRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request"})
			return
		}

		res, err := convSvc.SubmitToolOutputs(c.Request.Context(), c.Param("thread_id"), c.Param("run_id"),
			req.AssistantID, middleware.FingerprintFrom(c), toolOutputs(req.ToolOutputs))
		if err != nil {
			abortWithConversationError(c, err)
			return
		}
		streamEvents(c, res.Events)
	}
}

// SubmitToolOutputsHandler godoc
// @Summary      Submit tool outputs
// @Tags         threads
// @Accept       json
// @Produce      json
// @Param        thread_id  path  string                           true  "thread id"
// @Param        run_id     path  string                           true  "run id"
// @Param        body       body  dto.SubmitToolOutputsRequestDTO  true  "tool outputs"
// @Success      200   {object}  dto.RunOutcomeDTO
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Failure      409   {object}  dto.ErrorResponseDTO
// @Router       /threads/{thread_id}/runs/{run_id}/submit [post]
func SubmitToolOutputsHandler(convSvc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.SubmitToolOutputsRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), syncRunTimeout)
		defer cancel()

		threadID := c.Param("thread_id")
		res, err := convSvc.SubmitToolOutputs(ctx, threadID, c.Param("run_id"),
			req.AssistantID, middleware.FingerprintFrom(c), toolOutputs(req.ToolOutputs))
		if err != nil {
			abortWithConversationError(c, err)
			return
		}
		outcome := collectOutcome(res.Events, cancel, threadID, res.Session.ID)
		respondOutcome(c, outcome)
	}
}

func toolOutputs(in []dto.ToolOutputDTO) []engine.ToolOutput {
	out := make([]engine.ToolOutput, len(in))
	for i, o := range in {
		out[i] = engine.ToolOutput{ToolCallID: o.ToolCallID, Output: o.Output}
	}
	return out
}
