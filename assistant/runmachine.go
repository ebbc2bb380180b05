package assistant

import (
	"context"
	"time"

	"chat-layer/engine"
	"chat-layer/logger"

	"chat-layer/trace"
)

// EngineClient is the slice of the remote engine the orchestration layer
// depends on. *engine.Client satisfies it.
type EngineClient interface {
	CreateThread(ctx context.Context, messages []engine.NewMessage) (*engine.Thread, error)
	AddMessage(ctx context.Context, threadID, role, content string, fileIDs []string) (*engine.Message, error)
	ListMessages(ctx context.Context, threadID, order string, limit int) ([]engine.Message, error)
	CreateRun(ctx context.Context, threadID, assistantID, instructions string, tools []map[string]any) (*engine.Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*engine.Run, error)
	ListRuns(ctx context.Context, threadID string) ([]engine.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []engine.ToolOutput) (*engine.Run, error)
	CancelRun(ctx context.Context, threadID, runID string) (*engine.Run, error)
	DeleteThread(ctx context.Context, threadID string) error
}

// RunOptions parametrize one run creation.
type RunOptions struct {
	AssistantID  string
	Instructions string
	Tools        []map[string]any
}

// RunMachine drives a single remote run to a terminal state by polling at a
// fixed interval, translating what it observes into a finite RunEvent
// sequence. At most one non-terminal run may occupy a thread at a time; the
// machine enforces this by never creating a run while another is active.
type RunMachine struct {
	engine       EngineClient
	clock        Clock
	pollInterval time.Duration
	toolWait     time.Duration
}

// NewRunMachine creates a machine. pollInterval must be positive; toolWait
// of zero leaves requires_action runs waiting until the engine expires them.
func NewRunMachine(ec EngineClient, clock Clock, pollInterval, toolWait time.Duration) *RunMachine {
	if clock == nil {
		clock = SystemClock
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &RunMachine{
		engine:       ec,
		clock:        clock,
		pollInterval: pollInterval,
		toolWait:     toolWait,
	}
}

// Advance runs the assistant once on threadID and returns the event channel
// for that invocation. If a non-terminal run already occupies the thread,
// the invocation attaches to it and observes it to its terminal state
// instead of creating a second run; a caller that disconnected mid-run can
// therefore pick the same run back up. A create rejected because another
// invocation won the race is handled the same way: the loser attaches to the
// run that won. The channel closes after exactly one terminal event (a
// terminal run status or an error).
func (m *RunMachine) Advance(ctx context.Context, threadID string, opts RunOptions) <-chan RunEvent {
	out := make(chan RunEvent)
	go func() {
		defer close(out)

		runs, err := m.engine.ListRuns(ctx, threadID)
		if err != nil {
			m.emitError(ctx, out, err)
			return
		}
		prev := latestRun(runs)
		if prev != nil && prev.Status.Active() {
			m.observe(ctx, out, threadID, prev)
			return
		}

		run, err := m.engine.CreateRun(ctx, threadID, opts.AssistantID, opts.Instructions, opts.Tools)
		if err != nil {
			// 두 요청이 동시에 빈 스레드를 보면 둘 다 생성을 시도한다.
			// 엔진이 두 번째 생성을 거부했을 때 그 사이에 실행이 생겼다면
			// 생성 실패는 경합 패배이므로 그 실행을 관찰한다.
			if surviving := m.survivorAfterConflict(ctx, threadID, prev); surviving != nil {
				m.observe(ctx, out, threadID, surviving)
				return
			}
			m.emitError(ctx, out, err)
			return
		}
		m.pollToTerminal(ctx, out, threadID, run)
	}()
	return out
}

// observe attaches to a run some other invocation created and follows it to
// its terminal state without creating one of its own.
func (m *RunMachine) observe(ctx context.Context, out chan<- RunEvent, threadID string, run *engine.Run) {
	logger.InfoWithFields("기존 실행 관찰 모드로 전환", logger.Fields{
		"request_id": trace.RequestIDFromContext(ctx),
		"thread_id":  threadID,
		"run_id":     run.ID,
		"status":     string(run.Status),
	})
	m.pollToTerminal(ctx, out, threadID, run)
}

// survivorAfterConflict re-lists the thread after a failed create and returns
// the run that explains the conflict: one that is still active, or one that
// appeared after the pre-create listing (it may already be terminal by the
// time we look). Returns nil when no concurrent run explains the failure.
func (m *RunMachine) survivorAfterConflict(ctx context.Context, threadID string, prev *engine.Run) *engine.Run {
	runs, err := m.engine.ListRuns(ctx, threadID)
	if err != nil {
		return nil
	}
	latest := latestRun(runs)
	if latest == nil {
		return nil
	}
	if latest.Status.Active() {
		return latest
	}
	if prev == nil || latest.ID != prev.ID {
		return latest
	}
	return nil
}

// Resume hands tool outputs back to a suspended run and observes it to its
// terminal state. The caller is responsible for checking that the run is
// actually waiting on tool outputs.
func (m *RunMachine) Resume(ctx context.Context, threadID, runID string, outputs []engine.ToolOutput) <-chan RunEvent {
	out := make(chan RunEvent)
	go func() {
		defer close(out)

		run, err := m.engine.SubmitToolOutputs(ctx, threadID, runID, outputs)
		if err != nil {
			m.emitError(ctx, out, err)
			return
		}
		m.pollToTerminal(ctx, out, threadID, run)
	}()
	return out
}

// pollToTerminal emits status transitions, observed messages and the single
// terminal event for run. Status transitions precede the messages observed
// under them, except the terminal completed event which always follows the
// final message so clients can render the answer before closing.
func (m *RunMachine) pollToTerminal(ctx context.Context, out chan<- RunEvent, threadID string, run *engine.Run) {
	seen := map[string]bool{}
	var last engine.RunStatus
	var toolSince time.Time

	for {
		changed := run.Status != last
		if changed && !run.Status.Terminal() {
			ev := RunEvent{Kind: KindRunStatus, Run: run}
			if run.Status == engine.RunStatusRequiresAction {
				ev.Kind = KindToolAction
				toolSince = m.clock.Now()
			}
			if !emit(ctx, out, ev) {
				return
			}
		}

		if run.Status == engine.RunStatusInProgress || run.Status == engine.RunStatusCompleted {
			if !m.emitNewMessages(ctx, out, threadID, seen) {
				return
			}
		}

		if changed && run.Status.Terminal() {
			if !emit(ctx, out, RunEvent{Kind: KindRunStatus, Run: run}) {
				return
			}
		}
		last = run.Status

		if run.Status.Terminal() {
			return
		}

		if run.Status == engine.RunStatusRequiresAction && m.toolWait > 0 &&
			m.clock.Now().Sub(toolSince) >= m.toolWait {
			// 도구 응답이 기한 내에 오지 않으면 실행을 취소해 스레드를 비운다.
			cancelled, err := m.engine.CancelRun(ctx, threadID, run.ID)
			if err != nil {
				m.emitError(ctx, out, err)
				return
			}
			run = cancelled
			continue
		}

		if err := m.clock.Sleep(ctx, m.pollInterval); err != nil {
			return
		}

		next, err := m.engine.GetRun(ctx, threadID, run.ID)
		if err != nil {
			m.emitError(ctx, out, err)
			return
		}
		run = next
	}
}

// emitNewMessages fetches the newest thread message and emits it once per
// invocation. Returns false when the sequence must end.
func (m *RunMachine) emitNewMessages(ctx context.Context, out chan<- RunEvent, threadID string, seen map[string]bool) bool {
	msgs, err := m.engine.ListMessages(ctx, threadID, "desc", 1)
	if err != nil {
		m.emitError(ctx, out, err)
		return false
	}
	for i := range msgs {
		msg := msgs[i]
		if seen[msg.ID] {
			continue
		}
		seen[msg.ID] = true
		if !emit(ctx, out, RunEvent{Kind: KindMessageSeen, Message: &msg}) {
			return false
		}
	}
	return true
}

func (m *RunMachine) emitError(ctx context.Context, out chan<- RunEvent, err error) {
	emit(ctx, out, RunEvent{Kind: KindError, Err: err})
}

func emit(ctx context.Context, out chan<- RunEvent, ev RunEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// latestRun picks the most recently created run from an engine listing.
func latestRun(runs []engine.Run) *engine.Run {
	var latest *engine.Run
	for i := range runs {
		if latest == nil || runs[i].CreatedAt > latest.CreatedAt {
			latest = &runs[i]
		}
	}
	return latest
}
