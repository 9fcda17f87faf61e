package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a Turn.
type Role string

const (
	// RoleUser marks turns carrying caller input.
	RoleUser Role = "user"
	// RoleAgent marks turns authored by the agent: final answers, truncation
	// notices, tool-call markers and unrecoverable error records.
	RoleAgent Role = "agent"
	// RoleTool marks synthetic turns carrying a tool's result back into history.
	RoleTool Role = "tool"
)

// Turn is one atomic contribution to a session transcript. Turns are
// immutable once appended and carry a sequence index that is strictly
// increasing with no gaps within a session.
//
// Exactly one payload field is populated:
//   - user turns carry Text
//   - agent turns carry Text (an answer), Call (a tool-call marker) or
//     Error (an unrecoverable error record)
//   - tool turns carry Result
type Turn struct {
	Role      Role        `json:"role"`
	Index     int         `json:"index"`
	Timestamp time.Time   `json:"timestamp"`
	Text      string      `json:"text,omitempty"`
	Error     string      `json:"error,omitempty"`
	Call      *ToolCall   `json:"call,omitempty"`
	Result    *ToolResult `json:"result,omitempty"`
}

// NewUserTurn creates a user input turn at the given sequence index.
func NewUserTurn(index int, text string) Turn {
	return Turn{Role: RoleUser, Index: index, Timestamp: time.Now().UTC(), Text: text}
}

// NewAgentTurn creates an agent-authored answer turn.
func NewAgentTurn(index int, text string) Turn {
	return Turn{Role: RoleAgent, Index: index, Timestamp: time.Now().UTC(), Text: text}
}

// NewAgentErrorTurn creates an agent-authored unrecoverable error record.
// Appending one of these is what moves a session to StatusFailed.
func NewAgentErrorTurn(index int, detail string) Turn {
	return Turn{Role: RoleAgent, Index: index, Timestamp: time.Now().UTC(), Error: detail}
}

// NewToolCallTurn creates the agent-authored marker turn recording that a
// tool invocation was requested.
func NewToolCallTurn(index int, call ToolCall) Turn {
	return Turn{Role: RoleAgent, Index: index, Timestamp: time.Now().UTC(), Call: &call}
}

// NewToolResultTurn creates the synthetic tool turn that feeds a result back
// into the conversation history.
func NewToolResultTurn(index int, result ToolResult) Turn {
	return Turn{Role: RoleTool, Index: index, Timestamp: time.Now().UTC(), Result: &result}
}

// IsAnswer reports whether the turn is an agent-authored final answer
// (as opposed to a tool-call marker or error record).
func (t Turn) IsAnswer() bool {
	return t.Role == RoleAgent && t.Call == nil && t.Error == ""
}

// IsErrorRecord reports whether the turn is an agent-authored unrecoverable
// error record.
func (t Turn) IsErrorRecord() bool {
	return t.Role == RoleAgent && t.Error != ""
}

// NewID generates a unique correlation identifier for tool calls.
func NewID() string { return uuid.NewString() }
