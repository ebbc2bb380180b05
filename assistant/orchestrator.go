package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chat-layer/engine"
	"chat-layer/logger"
	"chat-layer/models"
	"chat-layer/trace"
)

// SessionStore is the session persistence slice the orchestrator depends
// on. *repositories.ChatSessionRepository satisfies it.
type SessionStore interface {
	GetOrCreateByThread(ctx context.Context, assistantID, threadID, fingerprint string) (*models.ChatSession, error)
	FindByIDAndFingerprint(ctx context.Context, id, fingerprint string) (*models.ChatSession, error)
	TouchLastActive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// Config wires an Orchestrator.
type Config struct {
	Engine   EngineClient
	Sessions SessionStore
	Messages MessageStore

	// PollInterval is the fixed run polling interval (default 1s).
	PollInterval time.Duration
	// ToolWaitTimeout caps how long a requires_action run may wait for
	// outputs before being cancelled. Zero means wait until the engine
	// expires the run.
	ToolWaitTimeout time.Duration
	// Clock defaults to SystemClock.
	Clock Clock
}

// Orchestrator owns conversation lifecycles: it composes the remote engine,
// the run machine, the reconciler and the translator behind the public
// operations handlers call.
type Orchestrator struct {
	engine     EngineClient
	sessions   SessionStore
	messages   MessageStore
	machine    *RunMachine
	translator *Translator
	reconciler *Reconciler
}

func New(cfg Config) *Orchestrator {
	rec := NewReconciler(cfg.Messages)
	return &Orchestrator{
		engine:     cfg.Engine,
		sessions:   cfg.Sessions,
		messages:   cfg.Messages,
		machine:    NewRunMachine(cfg.Engine, cfg.Clock, cfg.PollInterval, cfg.ToolWaitTimeout),
		translator: NewTranslator(rec),
		reconciler: rec,
	}
}

// StartResult is what StartConversation hands back before any event flows.
type StartResult struct {
	Session *models.ChatSession
	Thread  *engine.Thread
	Events  <-chan ServerEvent
}

// RunResult is what ContinueRun and SubmitToolOutputs hand back.
type RunResult struct {
	Session *models.ChatSession
	Events  <-chan ServerEvent
}

// StartConversation creates a remote thread seeded with messages, binds a
// local session to it and launches the first run. Validation failures are
// returned synchronously; nothing has been created remotely at that point.
// The event stream begins with thread.created.
func (o *Orchestrator) StartConversation(ctx context.Context, assistantID, fingerprint string, messages []engine.NewMessage, opts RunOptions) (*StartResult, error) {
	if assistantID == "" {
		return nil, fmt.Errorf("%w: assistant id is required", ErrValidation)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: at least one initial message is required", ErrValidation)
	}
	seed := make([]engine.NewMessage, len(messages))
	for i, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			return nil, fmt.Errorf("%w: message content must not be empty", ErrValidation)
		}
		if m.Role == "" {
			m.Role = models.RoleUser
		}
		if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
			return nil, fmt.Errorf("%w: unsupported message role %q", ErrValidation, m.Role)
		}
		seed[i] = m
	}

	thread, err := o.engine.CreateThread(ctx, seed)
	if err != nil {
		return nil, err
	}
	session, err := o.sessions.GetOrCreateByThread(ctx, assistantID, thread.ID, fingerprint)
	if err != nil {
		return nil, err
	}
	logger.InfoWithFields("대화 시작", logger.Fields{
		"request_id": trace.RequestIDFromContext(ctx),
		"session_id": session.ID,
		"thread_id":  thread.ID,
	})

	if err := o.reconcileSeed(ctx, session.ID, thread.ID, len(seed)); err != nil {
		return nil, err
	}

	out := make(chan ServerEvent)
	go func() {
		defer close(out)
		if !send(ctx, out, ServerEvent{Event: EventThreadCreated, Data: thread}) {
			return
		}
		for ev := range o.translator.Translate(ctx, session.ID, o.machine.Advance(ctx, thread.ID, opts)) {
			if !send(ctx, out, ev) {
				return
			}
		}
	}()

	return &StartResult{Session: session, Thread: thread, Events: out}, nil
}

// reconcileSeed persists the thread's seeded messages so the local history
// starts complete. The engine lists newest first; walk the slice backwards
// to keep creation order.
func (o *Orchestrator) reconcileSeed(ctx context.Context, sessionID, threadID string, n int) error {
	remote, err := o.engine.ListMessages(ctx, threadID, "desc", n)
	if err != nil {
		return err
	}
	for i := len(remote) - 1; i >= 0; i-- {
		if _, err := o.reconciler.Reconcile(ctx, sessionID, &remote[i]); err != nil {
			return err
		}
	}
	return nil
}

// AddUserMessage appends a user message to the thread and records it
// locally, so the run that follows never re-emits it.
func (o *Orchestrator) AddUserMessage(ctx context.Context, threadID, assistantID, fingerprint, content string) (*models.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content must not be empty", ErrValidation)
	}
	session, err := o.sessions.GetOrCreateByThread(ctx, assistantID, threadID, fingerprint)
	if err != nil {
		return nil, err
	}
	remote, err := o.engine.AddMessage(ctx, threadID, models.RoleUser, content, nil)
	if err != nil {
		return nil, err
	}
	stored, err := o.reconciler.Reconcile(ctx, session.ID, remote)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		stored, err = o.messages.FindBySessionAndRemoteID(ctx, session.ID, remote.ID)
		if err != nil {
			return nil, err
		}
	}
	return stored, nil
}

// ContinueRun runs the assistant once on threadID. Session resolution is
// get-or-create so a widget holding only a thread id keeps working after
// the backing store was rebuilt.
func (o *Orchestrator) ContinueRun(ctx context.Context, threadID, assistantID, fingerprint string, opts RunOptions) (*RunResult, error) {
	if threadID == "" {
		return nil, fmt.Errorf("%w: thread id is required", ErrValidation)
	}
	if assistantID == "" {
		return nil, fmt.Errorf("%w: assistant id is required", ErrValidation)
	}
	opts.AssistantID = assistantID

	session, err := o.sessions.GetOrCreateByThread(ctx, assistantID, threadID, fingerprint)
	if err != nil {
		return nil, err
	}
	if err := o.sessions.TouchLastActive(ctx, session.ID); err != nil {
		logger.WarnWithFields("세션 활동 시각 갱신 실패", logger.Fields{
			"request_id": trace.RequestIDFromContext(ctx),
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}

	events := o.translator.Translate(ctx, session.ID, o.machine.Advance(ctx, threadID, opts))
	return &RunResult{Session: session, Events: events}, nil
}

// SubmitToolOutputs resumes a run suspended on tool calls. The run must
// exist and be in requires_action, otherwise the call fails synchronously
// with ErrInvalidState.
func (o *Orchestrator) SubmitToolOutputs(ctx context.Context, threadID, runID, assistantID, fingerprint string, outputs []engine.ToolOutput) (*RunResult, error) {
	if threadID == "" || runID == "" {
		return nil, fmt.Errorf("%w: thread id and run id are required", ErrValidation)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: at least one tool output is required", ErrValidation)
	}
	for _, out := range outputs {
		if out.ToolCallID == "" {
			return nil, fmt.Errorf("%w: tool_call_id must not be empty", ErrValidation)
		}
	}

	run, err := o.engine.GetRun(ctx, threadID, runID)
	if err != nil {
		var engErr *engine.Error
		if errors.As(err, &engErr) {
			return nil, fmt.Errorf("%w: run %s: %s", ErrInvalidState, runID, engErr.Message)
		}
		return nil, err
	}
	if run.Status != engine.RunStatusRequiresAction {
		return nil, fmt.Errorf("%w: run %s is %s, not requires_action", ErrInvalidState, runID, run.Status)
	}

	session, err := o.sessions.GetOrCreateByThread(ctx, assistantID, threadID, fingerprint)
	if err != nil {
		return nil, err
	}

	events := o.translator.Translate(ctx, session.ID, o.machine.Resume(ctx, threadID, runID, outputs))
	return &RunResult{Session: session, Events: events}, nil
}

// DeleteConversation removes the session, its messages and, best effort,
// the remote thread. Only the owning fingerprint may delete.
func (o *Orchestrator) DeleteConversation(ctx context.Context, sessionID, fingerprint string) error {
	session, err := o.sessions.FindByIDAndFingerprint(ctx, sessionID, fingerprint)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	if _, err := o.messages.DeleteBySession(ctx, sessionID); err != nil {
		return err
	}
	if err := o.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	if threadID := session.ThreadID(); threadID != "" {
		// 원격 스레드 삭제는 베스트에포트: 실패해도 로컬 삭제는 유지된다.
		if err := o.engine.DeleteThread(ctx, threadID); err != nil {
			logger.WarnWithFields("원격 스레드 삭제 실패", logger.Fields{
				"request_id": trace.RequestIDFromContext(ctx),
				"session_id": sessionID,
				"thread_id":  threadID,
				"error":      err.Error(),
			})
		}
	}
	return nil
}
