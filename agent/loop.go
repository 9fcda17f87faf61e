package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/gpagent/gpagent/core"
	"github.com/gpagent/gpagent/logging"
	"github.com/gpagent/gpagent/model"
	"github.com/gpagent/gpagent/session"
	"github.com/gpagent/gpagent/store"
	"github.com/gpagent/gpagent/tool"
)

// DefaultMaxRounds bounds tool-invocation rounds per incoming user turn when
// no explicit limit is configured. The value is a tunable policy knob, not a
// protocol constant.
const DefaultMaxRounds = 8

var (
	// ErrAwaitingTool is returned when Step is called while the session is
	// suspended on a long-running tool; the pending call must be resumed first.
	ErrAwaitingTool = errors.New("session awaiting tool result")
	// ErrNoPendingCall is returned when Resume names a call that is not the
	// session's pending long-running invocation.
	ErrNoPendingCall = errors.New("no matching pending tool call")
)

// Options configures a Loop.
type Options struct {
	// MaxRounds caps decide→act cycles per Step. Defaults to DefaultMaxRounds.
	MaxRounds int
	// Instructions is the system prompt forwarded to the decision function.
	Instructions string
	// Logger receives step lifecycle events.
	Logger logging.Logger
}

// Loop mediates between user turns and tool invocations for one process. It
// holds no per-session state of its own; all session mutation happens through
// the exclusive handle passed into Step and Resume, and every record is
// durably appended before it becomes visible as session state.
type Loop struct {
	decider      model.Decider
	registry     *tool.Registry
	transcripts  store.TranscriptStore
	execLog      store.ExecutionLog
	maxRounds    int
	instructions string
	logger       logging.Logger
}

// NewLoop constructs the agent loop around a decision function, a tool
// registry and the two durable stores.
func NewLoop(
	decider model.Decider,
	registry *tool.Registry,
	transcripts store.TranscriptStore,
	execLog store.ExecutionLog,
	optFns ...func(o *Options),
) *Loop {
	opts := Options{MaxRounds: DefaultMaxRounds, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	return &Loop{
		decider:      decider,
		registry:     registry,
		transcripts:  transcripts,
		execLog:      execLog,
		maxRounds:    opts.MaxRounds,
		instructions: opts.Instructions,
		logger:       opts.Logger,
	}
}

// Step appends the user input and drives decide→act rounds until the decision
// function answers, a long-running tool suspends the session, the round
// budget is exhausted, or a fault occurs. Must be called with the session's
// exclusive handle held.
func (l *Loop) Step(ctx context.Context, h *session.Handle, userInput string) (StepOutcome, error) {
	sess := h.Session()

	if sess.Closed() {
		err := fmt.Errorf("step session %s: %w", sess.ID, core.ErrSessionClosed)
		return Failure{Kind: FailureSession, Detail: err.Error()}, err
	}
	if sess.CurrentStatus() == core.StatusAwaitingTool {
		err := fmt.Errorf("step session %s: %w", sess.ID, ErrAwaitingTool)
		return Failure{Kind: FailureSession, Detail: err.Error()}, err
	}

	if err := l.appendTurn(sess, core.NewUserTurn(sess.NextIndex(), userInput)); err != nil {
		return Failure{Kind: FailureStore, Detail: err.Error()}, err
	}

	l.logger.Debug("agent.step.start", "session_id", sess.ID, "turn", sess.Len()-1)
	return l.run(ctx, sess)
}

// Resume completes a long-running tool invocation previously surfaced as a
// ToolInvocation outcome, feeding the result back into the decide loop. Must
// be called with the session's exclusive handle held.
func (l *Loop) Resume(ctx context.Context, h *session.Handle, callID string, response any, invokeErr error) (StepOutcome, error) {
	sess := h.Session()

	if sess.Closed() {
		err := fmt.Errorf("resume session %s: %w", sess.ID, core.ErrSessionClosed)
		return Failure{Kind: FailureSession, Detail: err.Error()}, err
	}
	pending := sess.PendingCall()
	if pending == nil || pending.ID != callID {
		err := fmt.Errorf("resume session %s: %w: %s", sess.ID, ErrNoPendingCall, callID)
		return Failure{Kind: FailureSession, Detail: err.Error()}, err
	}

	var result core.ToolResult
	if invokeErr != nil {
		result = core.NewToolErrorResult(*pending, invokeErr, 0)
	} else {
		result = core.NewToolResult(*pending, response, 0)
	}
	if err := l.recordResult(sess, result); err != nil {
		return Failure{Kind: FailureStore, Detail: err.Error()}, err
	}
	sess.SetStatus(core.StatusActive)

	l.logger.Debug("agent.resume", "session_id", sess.ID, "call_id", callID, "error", result.Failed())
	return l.run(ctx, sess)
}

// run executes decide→act rounds against the session's current history.
func (l *Loop) run(ctx context.Context, sess *core.Session) (StepOutcome, error) {
	for round := 0; round < l.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return Failure{Kind: FailureCancelled, Detail: err.Error()}, err
		}

		action, err := l.decider.Decide(ctx, model.Request{
			Instructions: l.instructions,
			History:      sess.History(),
			Tools:        l.registry.Definitions(),
		})
		if err != nil {
			if ctx.Err() != nil {
				return Failure{Kind: FailureCancelled, Detail: err.Error()}, ctx.Err()
			}
			return l.fail(sess, FailureDecider, fmt.Errorf("decision function: %w", err))
		}

		switch act := action.(type) {
		case model.Answer:
			if err := l.appendTurn(sess, core.NewAgentTurn(sess.NextIndex(), act.Text)); err != nil {
				return Failure{Kind: FailureStore, Detail: err.Error()}, err
			}
			sess.SetStatus(core.StatusComplete)
			l.logger.Info("agent.step.answer", "session_id", sess.ID, "rounds", round)
			return FinalAnswer{Text: act.Text}, nil

		case model.Call:
			outcome, done, err := l.toolRound(ctx, sess, act)
			if done {
				return outcome, err
			}

		default:
			return l.fail(sess, FailureDecider, fmt.Errorf("decision function returned unsupported action %T", action))
		}
	}

	// Round budget exhausted; answer with a truncation notice.
	notice := fmt.Sprintf("Stopping after %d tool rounds without reaching a final answer.", l.maxRounds)
	if err := l.appendTurn(sess, core.NewAgentTurn(sess.NextIndex(), notice)); err != nil {
		return Failure{Kind: FailureStore, Detail: err.Error()}, err
	}
	sess.SetStatus(core.StatusComplete)
	l.logger.Warn("agent.step.truncated", "session_id", sess.ID, "max_rounds", l.maxRounds)
	return FinalAnswer{Text: notice, Truncated: true}, nil
}

// toolRound persists and executes one requested tool call. done=false means
// the result was fed back into history and the decide loop continues.
func (l *Loop) toolRound(ctx context.Context, sess *core.Session, act model.Call) (outcome StepOutcome, done bool, err error) {
	call := core.NewToolCall(act.Name, act.Arguments, sess.NextIndex())

	if err := l.appendTurn(sess, core.NewToolCallTurn(call.TurnIndex, call)); err != nil {
		return Failure{Kind: FailureStore, Detail: err.Error()}, true, err
	}
	if err := l.execLog.Append(sess.ID, store.NewCallRecord(call)); err != nil {
		err = fmt.Errorf("record tool call %s: %w", call.ID, err)
		return Failure{Kind: FailureStore, Detail: err.Error()}, true, err
	}

	// Long-running tools suspend the session instead of blocking the step;
	// the result arrives later via Resume.
	if t, lookupErr := l.registry.Lookup(call.Name); lookupErr == nil && t.LongRunning() {
		sess.SetStatus(core.StatusAwaitingTool)
		l.logger.Info("agent.step.awaiting_tool", "session_id", sess.ID, "tool", call.Name, "call_id", call.ID)
		return ToolInvocation{Pending: call}, true, nil
	}

	// Invoke never propagates tool faults; unknown names, invalid arguments,
	// execution errors and panics all come back as error results.
	result := l.registry.Invoke(ctx, call)

	if ctxErr := ctx.Err(); ctxErr != nil {
		// Cancelled mid-invocation: the appended ToolCall must still be
		// paired before the handle is released.
		cancelled := core.NewCancelledToolResult(call)
		if recErr := l.recordResult(sess, cancelled); recErr != nil {
			return Failure{Kind: FailureStore, Detail: recErr.Error()}, true, recErr
		}
		l.logger.Warn("agent.step.cancelled", "session_id", sess.ID, "call_id", call.ID)
		return Failure{Kind: FailureCancelled, Detail: "step cancelled during tool invocation"}, true, ctxErr
	}

	if err := l.recordResult(sess, result); err != nil {
		return Failure{Kind: FailureStore, Detail: err.Error()}, true, err
	}
	return nil, false, nil
}

// appendTurn durably records a turn, then makes it visible as session state.
// The in-memory append happens only after the store confirms the write.
func (l *Loop) appendTurn(sess *core.Session, t core.Turn) error {
	if err := l.transcripts.Append(sess.ID, t); err != nil {
		return fmt.Errorf("record turn %d for session %s: %w", t.Index, sess.ID, err)
	}
	return sess.Append(t)
}

// recordResult logs the result and appends the synthetic tool turn feeding it
// back into history.
func (l *Loop) recordResult(sess *core.Session, result core.ToolResult) error {
	if err := l.execLog.Append(sess.ID, store.NewResultRecord(result)); err != nil {
		return fmt.Errorf("record tool result %s: %w", result.CallID, err)
	}
	return l.appendTurn(sess, core.NewToolResultTurn(sess.NextIndex(), result))
}

// fail marks the session FAILED after an unrecoverable fault. The error
// record is written best effort: the FAILED transition must stick even when
// the transcript store is the thing that is down.
func (l *Loop) fail(sess *core.Session, kind FailureKind, cause error) (StepOutcome, error) {
	record := core.NewAgentErrorTurn(sess.NextIndex(), cause.Error())
	if err := l.transcripts.Append(sess.ID, record); err != nil {
		l.logger.Error("agent.step.error_record_lost", "session_id", sess.ID, "error", err.Error())
	} else if err := sess.Append(record); err != nil {
		l.logger.Error("agent.step.error_record_lost", "session_id", sess.ID, "error", err.Error())
	}
	sess.SetStatus(core.StatusFailed)
	l.logger.Error("agent.step.failed", "session_id", sess.ID, "cause", cause.Error())
	return Failure{Kind: kind, Detail: cause.Error()}, cause
}

// MaxRounds reports the configured round budget.
func (l *Loop) MaxRounds() int { return l.maxRounds }
