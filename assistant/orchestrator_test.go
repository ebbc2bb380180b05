package assistant_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chat-layer/assistant"
	"chat-layer/engine"
	"chat-layer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	eng      *fakeEngine
	sessions *memSessionStore
	messages *memMessageStore
	clock    *fakeClock
	orch     *assistant.Orchestrator
}

func newFixture(toolWait time.Duration) *fixture {
	f := &fixture{
		eng:      newFakeEngine(),
		sessions: newMemSessionStore(),
		messages: newMemMessageStore(),
		clock:    newFakeClock(),
	}
	f.orch = assistant.New(assistant.Config{
		Engine:          f.eng,
		Sessions:        f.sessions,
		Messages:        f.messages,
		PollInterval:    time.Second,
		ToolWaitTimeout: toolWait,
		Clock:           f.clock,
	})
	return f
}

// collect drains an event channel with a safety timeout so a wedged stream
// fails the test instead of hanging it.
func collect(t *testing.T, events <-chan assistant.ServerEvent) []assistant.ServerEvent {
	t.Helper()
	var out []assistant.ServerEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("event stream did not finish, got %d events so far", len(out))
		}
	}
}

func eventNames(events []assistant.ServerEvent) []string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Event
	}
	return names
}

func TestStartConversationHappyPath(t *testing.T) {
	f := newFixture(0)
	f.eng.createScript = []runStep{
		{status: engine.RunStatusQueued},
		{status: engine.RunStatusInProgress},
		{status: engine.RunStatusInProgress, message: assistantMessage("Hi there")},
		{status: engine.RunStatusCompleted},
	}

	res, err := f.orch.StartConversation(context.Background(), "asst_001", "fp_001",
		[]engine.NewMessage{{Role: models.RoleUser, Content: "Hello"}}, assistant.RunOptions{AssistantID: "asst_001"})
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, res.Thread.ID, res.Session.ThreadID())

	events := collect(t, res.Events)
	assert.Equal(t, []string{
		"thread.created",
		"thread.run.queued",
		"thread.run.in_progress",
		"thread.message.created",
		"thread.message.delta",
		"thread.message.completed",
		"thread.run.completed",
	}, eventNames(events))

	// seed message plus one assistant message, each exactly once
	stored, err := f.messages.ListBySession(context.Background(), res.Session.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, models.RoleUser, stored[0].Role)
	assert.Equal(t, "Hello", stored[0].Content)
	assert.Equal(t, models.RoleAssistant, stored[1].Role)
	assert.Equal(t, "Hi there", stored[1].Content)
	assert.NotEmpty(t, stored[1].RemoteMessageID())
}

func assistantMessage(text string) *engine.Message {
	return &engine.Message{
		Role: models.RoleAssistant,
		Content: []engine.ContentPart{
			{Type: "text", Text: &engine.TextContent{Value: text}},
		},
	}
}

func TestStartConversationValidation(t *testing.T) {
	f := newFixture(0)

	_, err := f.orch.StartConversation(context.Background(), "asst_001", "fp_001", nil, assistant.RunOptions{})
	assert.ErrorIs(t, err, assistant.ErrValidation)

	_, err = f.orch.StartConversation(context.Background(), "asst_001", "fp_001",
		[]engine.NewMessage{{Content: "   "}}, assistant.RunOptions{})
	assert.ErrorIs(t, err, assistant.ErrValidation)

	_, err = f.orch.StartConversation(context.Background(), "asst_001", "fp_001",
		[]engine.NewMessage{{Role: "tool", Content: "x"}}, assistant.RunOptions{})
	assert.ErrorIs(t, err, assistant.ErrValidation)

	// instructions go through run options; a system seed role is rejected
	// like any other unknown role
	_, err = f.orch.StartConversation(context.Background(), "asst_001", "fp_001",
		[]engine.NewMessage{{Role: "system", Content: "be terse"}}, assistant.RunOptions{})
	assert.ErrorIs(t, err, assistant.ErrValidation)

	_, err = f.orch.StartConversation(context.Background(), "", "fp_001",
		[]engine.NewMessage{{Content: "hi"}}, assistant.RunOptions{})
	assert.ErrorIs(t, err, assistant.ErrValidation)

	// nothing was created remotely
	assert.Equal(t, 0, f.eng.threadSeq)
}

func TestContinueRunReusesSession(t *testing.T) {
	f := newFixture(0)
	f.eng.createScript = []runStep{
		{status: engine.RunStatusQueued},
		{status: engine.RunStatusCompleted},
	}

	res, err := f.orch.StartConversation(context.Background(), "asst_001", "fp_001",
		[]engine.NewMessage{{Content: "first"}}, assistant.RunOptions{AssistantID: "asst_001"})
	require.NoError(t, err)
	collect(t, res.Events)

	cont, err := f.orch.ContinueRun(context.Background(), res.Thread.ID, "asst_001", "fp_001", assistant.RunOptions{})
	require.NoError(t, err)
	collect(t, cont.Events)

	assert.Equal(t, res.Session.ID, cont.Session.ID)
	assert.Equal(t, 2, f.eng.createRunCalls)
}

func TestContinueRunObservesSurvivingRun(t *testing.T) {
	f := newFixture(0)
	f.eng.createScript = []runStep{
		{status: engine.RunStatusQueued},
		{status: engine.RunStatusInProgress},
		{status: engine.RunStatusInProgress, message: assistantMessage("late answer")},
		{status: engine.RunStatusCompleted},
	}

	ctx1, cancel := context.WithCancel(context.Background())
	res, err := f.orch.StartConversation(ctx1, "asst_001", "fp_001",
		[]engine.NewMessage{{Content: "question"}}, assistant.RunOptions{AssistantID: "asst_001"})
	require.NoError(t, err)

	// client disconnects right after the run is underway
	<-res.Events // thread.created
	<-res.Events // thread.run.queued
	cancel()

	// a reconnecting client attaches to the surviving run instead of
	// starting a second one
	cont, err := f.orch.ContinueRun(context.Background(), res.Thread.ID, "asst_001", "fp_001", assistant.RunOptions{})
	require.NoError(t, err)
	events := collect(t, cont.Events)

	assert.Equal(t, 1, f.eng.createRunCalls)
	names := eventNames(events)
	require.NotEmpty(t, names)
	assert.Equal(t, "thread.run.completed", names[len(names)-1])
	assert.Contains(t, names, "thread.message.completed")

	stored, err := f.messages.ListBySession(context.Background(), cont.Session.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestConcurrentContinueRunsShareOneRun(t *testing.T) {
	f := newFixture(0)
	f.eng.createScript = []runStep{
		{status: engine.RunStatusQueued},
		{status: engine.RunStatusInProgress, message: assistantMessage("the answer")},
		{status: engine.RunStatusCompleted},
	}

	thread, err := f.eng.CreateThread(context.Background(), []engine.NewMessage{
		{Role: models.RoleUser, Content: "question"},
	})
	require.NoError(t, err)

	// hold both invocations right after they saw the thread idle, so each
	// decides to create a run before either has done so. The third listing
	// is the loser re-checking the thread after its create was rejected;
	// events are not drained until then, which keeps the winner's run
	// pinned before its first poll.
	gate := make(chan struct{})
	attached := make(chan struct{})
	var gateMu sync.Mutex
	listed := 0
	f.eng.afterListRuns = func() {
		gateMu.Lock()
		listed++
		switch listed {
		case 2:
			close(gate)
		case 3:
			close(attached)
		}
		gateMu.Unlock()
		<-gate
	}

	res1, err := f.orch.ContinueRun(context.Background(), thread.ID, "asst_001", "fp_001", assistant.RunOptions{})
	require.NoError(t, err)
	res2, err := f.orch.ContinueRun(context.Background(), thread.ID, "asst_001", "fp_001", assistant.RunOptions{})
	require.NoError(t, err)

	select {
	case <-attached:
	case <-time.After(5 * time.Second):
		t.Fatal("losing invocation never re-checked the thread")
	}

	streams := make([][]assistant.ServerEvent, 2)
	var wg sync.WaitGroup
	for i, events := range []<-chan assistant.ServerEvent{res1.Events, res2.Events} {
		wg.Add(1)
		go func(i int, events <-chan assistant.ServerEvent) {
			defer wg.Done()
			for ev := range events {
				streams[i] = append(streams[i], ev)
			}
		}(i, events)
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent event streams did not finish")
	}

	// both attempted the create, but exactly one run exists on the thread
	assert.Equal(t, 2, f.eng.createRunCalls)
	f.eng.mu.Lock()
	created := len(f.eng.runs)
	f.eng.mu.Unlock()
	assert.Equal(t, 1, created)

	// the loser attached to the winner's run; both observed the same
	// terminal outcome rather than one of them erroring out
	for i, events := range streams {
		names := eventNames(events)
		require.NotEmptyf(t, names, "stream %d emitted nothing", i)
		assert.Equalf(t, "thread.run.completed", names[len(names)-1], "stream %d: %v", i, names)
		assert.NotContainsf(t, names, "error", "stream %d: %v", i, names)
	}

	require.NotNil(t, res2.Session)
	assert.Equal(t, res1.Session.ID, res2.Session.ID)

	// the assistant message was persisted once even though two invocations
	// observed it
	stored, err := f.messages.ListBySession(context.Background(), res1.Session.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestToolCallRoundTrip(t *testing.T) {
	f := newFixture(0)
	action := &engine.RequiredAction{
		Type: "submit_tool_outputs",
		SubmitToolOutputs: &engine.SubmitToolOutputsAction{
			ToolCalls: []engine.ToolCall{{
				ID:   "call_001",
				Type: "function",
				Function: engine.FunctionCall{
					Name:      "lookup_order",
					Arguments: `{"order_id":"ord_42"}`,
				},
			}},
		},
	}
	f.eng.createScript = []runStep{
		{status: engine.RunStatusQueued},
		{status: engine.RunStatusRequiresAction, requiredAction: action},
	}
	f.eng.submitScript = []runStep{
		{status: engine.RunStatusQueued},
		{status: engine.RunStatusInProgress, message: assistantMessage("Order ord_42 ships tomorrow")},
		{status: engine.RunStatusCompleted},
	}

	ctx1, cancel := context.WithCancel(context.Background())
	defer cancel()
	res, err := f.orch.StartConversation(ctx1, "asst_001", "fp_001",
		[]engine.NewMessage{{Content: "where is my order?"}}, assistant.RunOptions{AssistantID: "asst_001"})
	require.NoError(t, err)

	var runID string
	for ev := range res.Events {
		if ev.Event == "thread.run.requires_action" {
			run, ok := ev.Data.(*engine.Run)
			require.True(t, ok)
			require.Len(t, run.ToolCalls(), 1)
			assert.Equal(t, "lookup_order", run.ToolCalls()[0].Function.Name)
			runID = run.ID
			cancel()
		}
	}
	require.NotEmpty(t, runID)

	// outputs for an unknown run are rejected up front
	_, err = f.orch.SubmitToolOutputs(context.Background(), res.Thread.ID, "run_999", "asst_001", "fp_001",
		[]engine.ToolOutput{{ToolCallID: "call_001", Output: "{}"}})
	assert.ErrorIs(t, err, assistant.ErrInvalidState)

	sub, err := f.orch.SubmitToolOutputs(context.Background(), res.Thread.ID, runID, "asst_001", "fp_001",
		[]engine.ToolOutput{{ToolCallID: "call_001", Output: `{"eta":"tomorrow"}`}})
	require.NoError(t, err)
	events := collect(t, sub.Events)

	assert.Equal(t, []string{
		"thread.run.queued",
		"thread.run.in_progress",
		"thread.message.created",
		"thread.message.delta",
		"thread.message.completed",
		"thread.run.completed",
	}, eventNames(events))
	assert.Equal(t, 1, f.eng.createRunCalls)
}

func TestSubmitToolOutputsInvalidState(t *testing.T) {
	f := newFixture(0)
	f.eng.createScript = []runStep{
		{status: engine.RunStatusQueued},
		{status: engine.RunStatusCompleted},
	}

	res, err := f.orch.StartConversation(context.Background(), "asst_001", "fp_001",
		[]engine.NewMessage{{Content: "hi"}}, assistant.RunOptions{AssistantID: "asst_001"})
	require.NoError(t, err)
	collect(t, res.Events)

	_, err = f.orch.SubmitToolOutputs(context.Background(), res.Thread.ID, "run_001", "asst_001", "fp_001",
		[]engine.ToolOutput{{ToolCallID: "call_001", Output: "{}"}})
	assert.ErrorIs(t, err, assistant.ErrInvalidState)

	_, err = f.orch.SubmitToolOutputs(context.Background(), res.Thread.ID, "run_001", "asst_001", "fp_001", nil)
	assert.ErrorIs(t, err, assistant.ErrValidation)
}

func TestToolWaitTimeoutCancelsRun(t *testing.T) {
	f := newFixture(2 * time.Second)
	f.eng.createScript = []runStep{
		{status: engine.RunStatusQueued},
		{status: engine.RunStatusRequiresAction, requiredAction: &engine.RequiredAction{Type: "submit_tool_outputs"}},
	}

	res, err := f.orch.StartConversation(context.Background(), "asst_001", "fp_001",
		[]engine.NewMessage{{Content: "hi"}}, assistant.RunOptions{AssistantID: "asst_001"})
	require.NoError(t, err)
	events := collect(t, res.Events)

	names := eventNames(events)
	assert.Equal(t, []string{
		"thread.created",
		"thread.run.queued",
		"thread.run.requires_action",
		"thread.run.cancelled",
	}, names)
}

func TestDeleteConversation(t *testing.T) {
	f := newFixture(0)
	f.eng.createScript = []runStep{
		{status: engine.RunStatusQueued},
		{status: engine.RunStatusInProgress, message: assistantMessage("bye")},
		{status: engine.RunStatusCompleted},
	}

	res, err := f.orch.StartConversation(context.Background(), "asst_001", "fp_001",
		[]engine.NewMessage{{Content: "hello"}}, assistant.RunOptions{AssistantID: "asst_001"})
	require.NoError(t, err)
	collect(t, res.Events)

	// only the owning fingerprint may delete
	err = f.orch.DeleteConversation(context.Background(), res.Session.ID, "fp_other")
	assert.ErrorIs(t, err, assistant.ErrNotFound)

	require.NoError(t, f.orch.DeleteConversation(context.Background(), res.Session.ID, "fp_001"))
	assert.True(t, f.eng.deleted[res.Thread.ID])

	stored, err := f.messages.ListBySession(context.Background(), res.Session.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)

	// second delete finds nothing
	err = f.orch.DeleteConversation(context.Background(), res.Session.ID, "fp_001")
	assert.ErrorIs(t, err, assistant.ErrNotFound)
}

func TestContinueRunAfterThreadDeleted(t *testing.T) {
	f := newFixture(0)
	f.eng.createScript = []runStep{
		{status: engine.RunStatusQueued},
		{status: engine.RunStatusCompleted},
	}

	res, err := f.orch.StartConversation(context.Background(), "asst_001", "fp_001",
		[]engine.NewMessage{{Content: "hello"}}, assistant.RunOptions{AssistantID: "asst_001"})
	require.NoError(t, err)
	collect(t, res.Events)
	require.NoError(t, f.orch.DeleteConversation(context.Background(), res.Session.ID, "fp_001"))

	cont, err := f.orch.ContinueRun(context.Background(), res.Thread.ID, "asst_001", "fp_001", assistant.RunOptions{})
	require.NoError(t, err)
	events := collect(t, cont.Events)

	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Event)
}

func TestAddUserMessagePersistsOnce(t *testing.T) {
	f := newFixture(0)
	f.eng.createScript = []runStep{
		{status: engine.RunStatusQueued},
		{status: engine.RunStatusInProgress},
		{status: engine.RunStatusCompleted},
	}

	res, err := f.orch.StartConversation(context.Background(), "asst_001", "fp_001",
		[]engine.NewMessage{{Content: "hello"}}, assistant.RunOptions{AssistantID: "asst_001"})
	require.NoError(t, err)
	collect(t, res.Events)

	stored, err := f.orch.AddUserMessage(context.Background(), res.Thread.ID, "asst_001", "fp_001", "follow-up")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.RoleUser, stored.Role)

	_, err = f.orch.AddUserMessage(context.Background(), res.Thread.ID, "asst_001", "fp_001", "  ")
	assert.ErrorIs(t, err, assistant.ErrValidation)

	all, err := f.messages.ListBySession(context.Background(), res.Session.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRunFailureEmitsSingleTerminalEvent(t *testing.T) {
	f := newFixture(0)
	f.eng.createScript = []runStep{
		{status: engine.RunStatusQueued},
		{status: engine.RunStatusFailed},
	}

	res, err := f.orch.StartConversation(context.Background(), "asst_001", "fp_001",
		[]engine.NewMessage{{Content: "hello"}}, assistant.RunOptions{AssistantID: "asst_001"})
	require.NoError(t, err)
	events := collect(t, res.Events)

	names := eventNames(events)
	assert.Equal(t, "thread.run.failed", names[len(names)-1])

	terminal := 0
	for _, n := range names {
		switch n {
		case "thread.run.completed", "thread.run.failed", "thread.run.cancelled", "thread.run.expired", "error":
			terminal++
		}
	}
	assert.Equal(t, 1, terminal)
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(assistant.ErrValidation, assistant.ErrNotFound))
	assert.False(t, errors.Is(assistant.ErrNotFound, assistant.ErrInvalidState))
}
