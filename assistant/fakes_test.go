package assistant_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chat-layer/engine"
	"chat-layer/models"
	"chat-layer/repositories"

	"github.com/google/uuid"
)

// runStep is one scripted GetRun observation. A non-nil message is appended
// to the thread before the snapshot is returned, mimicking the engine
// producing output between polls.
type runStep struct {
	status         engine.RunStatus
	message        *engine.Message
	requiredAction *engine.RequiredAction
}

// fakeEngine is a scriptable in-memory engine. Each created run consumes
// createScript: the first step is the CreateRun response, the rest are
// consumed one per GetRun, then the last snapshot repeats.
type fakeEngine struct {
	mu        sync.Mutex
	threadSeq int
	msgSeq    int
	runSeq    int

	messages map[string][]engine.Message
	runs     map[string]*engine.Run
	byThread map[string][]string
	scripts  map[string][]runStep
	deleted  map[string]bool

	createScript []runStep
	submitScript []runStep

	createRunCalls int

	// afterListRuns, when set, runs after every ListRuns returns (lock not
	// held). Tests use it to hold invocations at a chosen point.
	afterListRuns func()
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		messages: map[string][]engine.Message{},
		runs:     map[string]*engine.Run{},
		byThread: map[string][]string{},
		scripts:  map[string][]runStep{},
		deleted:  map[string]bool{},
	}
}

func (f *fakeEngine) notFound(threadID string) error {
	return &engine.Error{Code: "not_found", Message: fmt.Sprintf("no thread found with id %q", threadID)}
}

func (f *fakeEngine) appendMessage(threadID, role, content string) engine.Message {
	f.msgSeq++
	m := engine.Message{
		ID:       fmt.Sprintf("msg_%03d", f.msgSeq),
		ThreadID: threadID,
		Role:     role,
		Content: []engine.ContentPart{
			{Type: "text", Text: &engine.TextContent{Value: content}},
		},
		CreatedAt: int64(f.msgSeq),
	}
	f.messages[threadID] = append(f.messages[threadID], m)
	return m
}

func (f *fakeEngine) CreateThread(ctx context.Context, messages []engine.NewMessage) (*engine.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadSeq++
	id := fmt.Sprintf("thread_%03d", f.threadSeq)
	f.messages[id] = nil
	for _, m := range messages {
		f.appendMessage(id, m.Role, m.Content)
	}
	return &engine.Thread{ID: id, CreatedAt: time.Now().Unix()}, nil
}

func (f *fakeEngine) AddMessage(ctx context.Context, threadID, role, content string, fileIDs []string) (*engine.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleted[threadID] {
		return nil, f.notFound(threadID)
	}
	m := f.appendMessage(threadID, role, content)
	return &m, nil
}

func (f *fakeEngine) ListMessages(ctx context.Context, threadID, order string, limit int) ([]engine.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleted[threadID] {
		return nil, f.notFound(threadID)
	}
	msgs := f.messages[threadID]
	out := make([]engine.Message, 0, len(msgs))
	if order == "desc" {
		for i := len(msgs) - 1; i >= 0; i-- {
			out = append(out, msgs[i])
		}
	} else {
		out = append(out, msgs...)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// applyStep mutates the run snapshot with one script step.
func (f *fakeEngine) applyStep(run *engine.Run, step runStep) {
	if step.message != nil {
		f.appendMessage(run.ThreadID, step.message.Role, step.message.PlainText())
	}
	run.Status = step.status
	run.RequiredAction = step.requiredAction
}

func (f *fakeEngine) CreateRun(ctx context.Context, threadID, assistantID, instructions string, tools []map[string]any) (*engine.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createRunCalls++
	if f.deleted[threadID] {
		return nil, f.notFound(threadID)
	}
	for _, id := range f.byThread[threadID] {
		if f.runs[id].Status.Active() {
			return nil, &engine.Error{Code: "invalid_request", Message: "thread already has an active run"}
		}
	}
	f.runSeq++
	run := &engine.Run{
		ID:          fmt.Sprintf("run_%03d", f.runSeq),
		ThreadID:    threadID,
		AssistantID: assistantID,
		Status:      engine.RunStatusQueued,
		CreatedAt:   int64(f.runSeq),
	}
	script := f.createScript
	if len(script) > 0 {
		f.applyStep(run, script[0])
		f.scripts[run.ID] = script[1:]
	}
	f.runs[run.ID] = run
	f.byThread[threadID] = append(f.byThread[threadID], run.ID)
	snapshot := *run
	return &snapshot, nil
}

func (f *fakeEngine) GetRun(ctx context.Context, threadID, runID string) (*engine.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok || run.ThreadID != threadID {
		return nil, f.notFound(threadID)
	}
	if steps := f.scripts[runID]; len(steps) > 0 {
		f.applyStep(run, steps[0])
		f.scripts[runID] = steps[1:]
	}
	snapshot := *run
	return &snapshot, nil
}

func (f *fakeEngine) ListRuns(ctx context.Context, threadID string) ([]engine.Run, error) {
	f.mu.Lock()
	if f.deleted[threadID] {
		f.mu.Unlock()
		return nil, f.notFound(threadID)
	}
	ids := f.byThread[threadID]
	out := make([]engine.Run, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, *f.runs[ids[i]])
	}
	hook := f.afterListRuns
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeEngine) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []engine.ToolOutput) (*engine.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok || run.ThreadID != threadID {
		return nil, f.notFound(threadID)
	}
	if run.Status != engine.RunStatusRequiresAction {
		return nil, &engine.Error{Code: "invalid_state", Message: "run is not waiting for tool outputs"}
	}
	script := f.submitScript
	if len(script) == 0 {
		script = []runStep{{status: engine.RunStatusQueued}}
	}
	f.applyStep(run, script[0])
	f.scripts[runID] = script[1:]
	snapshot := *run
	return &snapshot, nil
}

func (f *fakeEngine) CancelRun(ctx context.Context, threadID, runID string) (*engine.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok || run.ThreadID != threadID {
		return nil, f.notFound(threadID)
	}
	run.Status = engine.RunStatusCancelled
	snapshot := *run
	return &snapshot, nil
}

func (f *fakeEngine) DeleteThread(ctx context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleted[threadID] {
		return f.notFound(threadID)
	}
	f.deleted[threadID] = true
	return nil
}

// fakeClock advances instantly on Sleep so poll loops run to completion
// without real delays.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps++
	c.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// memSessionStore mirrors the upsert semantics of the Mongo repository.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.ChatSession
	byThread map[string]string
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		sessions: map[string]*models.ChatSession{},
		byThread: map[string]string{},
	}
}

func threadKey(assistantID, threadID string) string {
	return assistantID + "|" + threadID
}

func (s *memSessionStore) GetOrCreateByThread(ctx context.Context, assistantID, threadID, fingerprint string) (*models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if id, ok := s.byThread[threadKey(assistantID, threadID)]; ok {
		sess := s.sessions[id]
		sess.LastActiveAt = now
		copied := *sess
		return &copied, nil
	}
	sess := &models.ChatSession{
		ID:           uuid.NewString(),
		AssistantID:  assistantID,
		Fingerprint:  fingerprint,
		Metadata:     map[string]any{models.MetaThreadID: threadID},
		CreatedAt:    now,
		LastActiveAt: now,
	}
	s.sessions[sess.ID] = sess
	s.byThread[threadKey(assistantID, threadID)] = sess.ID
	copied := *sess
	return &copied, nil
}

func (s *memSessionStore) FindByIDAndFingerprint(ctx context.Context, id, fingerprint string) (*models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Fingerprint != fingerprint {
		return nil, nil
	}
	copied := *sess
	return &copied, nil
}

func (s *memSessionStore) TouchLastActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.LastActiveAt = time.Now().UTC()
	}
	return nil
}

func (s *memSessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.byThread, threadKey(sess.AssistantID, sess.ThreadID()))
		delete(s.sessions, id)
	}
	return nil
}

// memMessageStore enforces the same uniqueness the Mongo partial index
// does: one row per (session_id, remote_message_id).
type memMessageStore struct {
	mu        sync.Mutex
	messages  map[string][]models.ChatMessage
	remoteIdx map[string]bool

	// dupOnInsert forces the next Insert to lose the race even though the
	// pre-check saw nothing, exercising the duplicate-key path.
	dupOnInsert bool
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{
		messages:  map[string][]models.ChatMessage{},
		remoteIdx: map[string]bool{},
	}
}

func remoteKey(sessionID, remoteID string) string {
	return sessionID + "|" + remoteID
}

func (s *memMessageStore) Insert(ctx context.Context, m *models.ChatMessage) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dupOnInsert {
		s.dupOnInsert = false
		return nil, repositories.ErrDuplicateMessage
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if remoteID := m.RemoteMessageID(); remoteID != "" {
		key := remoteKey(m.SessionID, remoteID)
		if s.remoteIdx[key] {
			return nil, repositories.ErrDuplicateMessage
		}
		s.remoteIdx[key] = true
	}
	s.messages[m.SessionID] = append(s.messages[m.SessionID], *m)
	copied := *m
	return &copied, nil
}

func (s *memMessageStore) FindBySessionAndRemoteID(ctx context.Context, sessionID, remoteID string) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages[sessionID] {
		if m.RemoteMessageID() == remoteID {
			copied := m
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memMessageStore) ListBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages[sessionID]))
	copy(out, s.messages[sessionID])
	return out, nil
}

func (s *memMessageStore) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.messages[sessionID]))
	for _, m := range s.messages[sessionID] {
		delete(s.remoteIdx, remoteKey(sessionID, m.RemoteMessageID()))
	}
	delete(s.messages, sessionID)
	return n, nil
}
