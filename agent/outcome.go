package agent

import "github.com/gpagent/gpagent/core"

// StepOutcome is the result of one Step or Resume invocation. The variant set
// is closed: FinalAnswer, ToolInvocation or Failure.
type StepOutcome interface{ isOutcome() }

// FinalAnswer carries the agent's final response text for the step. Truncated
// is set when the answer is a round-limit truncation notice rather than a
// decision-function answer.
type FinalAnswer struct {
	Text      string
	Truncated bool
}

func (FinalAnswer) isOutcome() {}

// ToolInvocation reports that the step suspended on a long-running tool. The
// session is AWAITING_TOOL until the result arrives via Resume.
type ToolInvocation struct {
	Pending core.ToolCall
}

func (ToolInvocation) isOutcome() {}

// FailureKind classifies step failures.
type FailureKind string

const (
	// FailureStore marks a durable-write fault; the session is left in its
	// last-confirmed state and accepts retries.
	FailureStore FailureKind = "store"
	// FailureCancelled marks caller cancellation of an in-flight step.
	FailureCancelled FailureKind = "cancelled"
	// FailureDecider marks an unrecoverable decision-function fault; the
	// session is marked FAILED.
	FailureDecider FailureKind = "decider"
	// FailureSession marks a step against a closed or mis-stated session.
	FailureSession FailureKind = "session"
)

// Failure reports a step that could not produce an answer.
type Failure struct {
	Kind   FailureKind
	Detail string
}

func (Failure) isOutcome() {}
