package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chat-layer/assistant"
	"chat-layer/engine"
	"chat-layer/eventbus"
	"chat-layer/logger"
	"chat-layer/models"
	"chat-layer/repositories"
)

// ConversationService wraps the orchestrator with the side concerns a run
// brings along: usage metrics and lifecycle events on the bus. The event
// stream itself passes through untouched.
type ConversationService struct {
	orch     *assistant.Orchestrator
	sessions *repositories.ChatSessionRepository
	messages *repositories.ChatMessageRepository
	metrics  *repositories.UsageMetricRepository
	bus      eventbus.EventBus // nil when Kafka is not configured
}

func NewConversationService(
	orch *assistant.Orchestrator,
	sessions *repositories.ChatSessionRepository,
	messages *repositories.ChatMessageRepository,
	metrics *repositories.UsageMetricRepository,
	bus eventbus.EventBus,
) *ConversationService {
	return &ConversationService{
		orch:     orch,
		sessions: sessions,
		messages: messages,
		metrics:  metrics,
		bus:      bus,
	}
}

// Start begins a conversation and launches its first run.
func (s *ConversationService) Start(ctx context.Context, assistantID, fingerprint string, messages []engine.NewMessage, opts assistant.RunOptions) (*assistant.StartResult, error) {
	res, err := s.orch.StartConversation(ctx, assistantID, fingerprint, messages, opts)
	if err != nil {
		return nil, err
	}
	s.publishEvent(eventbus.ConversationEvent{
		Type:        eventbus.ConversationStarted,
		SessionID:   res.Session.ID,
		AssistantID: res.Session.AssistantID,
		ThreadID:    res.Session.ThreadID(),
		Fingerprint: fingerprint,
		OccurredAt:  time.Now().UTC(),
	})
	res.Events = s.observe(ctx, res.Session, res.Events)
	return res, nil
}

// Continue runs the assistant once more on an existing thread.
func (s *ConversationService) Continue(ctx context.Context, threadID, assistantID, fingerprint string, opts assistant.RunOptions) (*assistant.RunResult, error) {
	res, err := s.orch.ContinueRun(ctx, threadID, assistantID, fingerprint, opts)
	if err != nil {
		return nil, err
	}
	res.Events = s.observe(ctx, res.Session, res.Events)
	return res, nil
}

// SubmitToolOutputs resumes a run suspended on tool calls.
func (s *ConversationService) SubmitToolOutputs(ctx context.Context, threadID, runID, assistantID, fingerprint string, outputs []engine.ToolOutput) (*assistant.RunResult, error) {
	res, err := s.orch.SubmitToolOutputs(ctx, threadID, runID, assistantID, fingerprint, outputs)
	if err != nil {
		return nil, err
	}
	res.Events = s.observe(ctx, res.Session, res.Events)
	return res, nil
}

// AddMessage appends a user message to a thread.
func (s *ConversationService) AddMessage(ctx context.Context, threadID, assistantID, fingerprint, content string) (*models.ChatMessage, error) {
	return s.orch.AddUserMessage(ctx, threadID, assistantID, fingerprint, content)
}

// Delete removes a conversation and its metrics, then announces it.
func (s *ConversationService) Delete(ctx context.Context, sessionID, fingerprint string) error {
	session, err := s.sessions.FindByIDAndFingerprint(ctx, sessionID, fingerprint)
	if err != nil {
		return err
	}
	if err := s.orch.DeleteConversation(ctx, sessionID, fingerprint); err != nil {
		return err
	}
	if err := s.metrics.DeleteBySession(ctx, sessionID); err != nil {
		logger.Log.Warnf("사용량 지표 삭제 실패 session=%s: %v", sessionID, err)
	}
	if session != nil {
		s.publishEvent(eventbus.ConversationEvent{
			Type:        eventbus.ConversationDeleted,
			SessionID:   session.ID,
			AssistantID: session.AssistantID,
			ThreadID:    session.ThreadID(),
			Fingerprint: fingerprint,
			OccurredAt:  time.Now().UTC(),
		})
	}
	return nil
}

// ListSessions returns the caller's sessions, most recently active first.
func (s *ConversationService) ListSessions(ctx context.Context, fingerprint string, page, pageSize int) ([]models.ChatSession, int64, error) {
	return s.sessions.ListByFingerprint(ctx, fingerprint, page, pageSize)
}

// GetSession returns one owned session with its message history.
func (s *ConversationService) GetSession(ctx context.Context, sessionID, fingerprint string) (*models.ChatSession, []models.ChatMessage, error) {
	session, err := s.sessions.FindByIDAndFingerprint(ctx, sessionID, fingerprint)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, nil
	}
	msgs, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return session, msgs, nil
}

// observe tees the event stream: events flow to the caller unchanged, and
// when the stream ends with a terminal run the service records usage and
// publishes the lifecycle event. Recording happens after the stream closes
// so it never delays event delivery.
func (s *ConversationService) observe(ctx context.Context, session *models.ChatSession, in <-chan assistant.ServerEvent) <-chan assistant.ServerEvent {
	out := make(chan assistant.ServerEvent)
	go func() {
		defer close(out)
		var terminalRun *engine.Run
		streamFailed := false
		for ev := range in {
			if run, ok := ev.Data.(*engine.Run); ok && run.Status.Terminal() {
				terminalRun = run
			}
			if ev.Event == assistant.EventError {
				streamFailed = true
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				// reader is gone; the upstream chain shuts down on the
				// same context, keep draining so it can finish
			}
		}
		if terminalRun != nil {
			s.recordRun(session, terminalRun, streamFailed)
		}
	}()
	return out
}

// recordRun persists the usage metric and announces the run outcome. Runs
// detached from the request context: the client may be long gone.
func (s *ConversationService) recordRun(session *models.ChatSession, run *engine.Run, streamFailed bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	failed := streamFailed || run.Status != engine.RunStatusCompleted
	tokens := 0
	if run.Usage != nil {
		tokens = run.Usage.TotalTokens
	}
	var durationMs int64
	if run.StartedAt != nil && run.CompletedAt != nil && *run.CompletedAt >= *run.StartedAt {
		durationMs = (*run.CompletedAt - *run.StartedAt) * 1000
	}

	if _, err := s.metrics.Insert(ctx, &models.UsageMetric{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		AssistantID: session.AssistantID,
		Fingerprint: session.Fingerprint,
		RunID:       run.ID,
		TokensUsed:  tokens,
		DurationMs:  durationMs,
		Failed:      failed,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		logger.Log.Errorf("사용량 지표 기록 실패 session=%s run=%s: %v", session.ID, run.ID, err)
	}

	eventType := eventbus.ConversationRunCompleted
	if failed {
		eventType = eventbus.ConversationRunFailed
	}
	s.publishEvent(eventbus.ConversationEvent{
		Type:        eventType,
		SessionID:   session.ID,
		AssistantID: session.AssistantID,
		ThreadID:    session.ThreadID(),
		RunID:       run.ID,
		Fingerprint: session.Fingerprint,
		TokensUsed:  tokens,
		OccurredAt:  time.Now().UTC(),
	})
}

// publishEvent fires a conversation lifecycle event, best effort.
func (s *ConversationService) publishEvent(payload eventbus.ConversationEvent) {
	if s.bus == nil {
		return
	}
	evt, err := eventbus.NewJSONEvent("", payload, 0)
	if err != nil {
		logger.Log.Errorf("수명주기 이벤트 인코딩 실패: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.bus.Publish(ctx, eventbus.TopicConversationEvents.Base(), evt); err != nil {
		logger.Log.Errorf("수명주기 이벤트 발행 실패 (%s): %v", payload.Type, err)
	}
}
