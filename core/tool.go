package core

import (
	"encoding/json"
	"time"
)

// ToolCall records a request to invoke a named tool. It is immutable once
// appended; the ID correlates the call with exactly one ToolResult.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	TurnIndex int             `json:"turn_index"`
}

// NewToolCall creates a ToolCall with a fresh correlation ID originating at
// the given turn index.
func NewToolCall(name string, args json.RawMessage, turnIndex int) ToolCall {
	return ToolCall{ID: NewID(), Name: name, Arguments: args, TurnIndex: turnIndex}
}

// ToolResult records the outcome of a ToolCall: a successful response, an
// error descriptor, or a cancellation marker. Immutable once appended.
// Every ToolCall is eventually paired with exactly one ToolResult, including
// under cancellation.
type ToolResult struct {
	CallID    string        `json:"call_id"`
	Name      string        `json:"name"`
	Response  any           `json:"response,omitempty"`
	Error     string        `json:"error,omitempty"`
	Cancelled bool          `json:"cancelled,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewToolResult creates a successful result for the given call.
func NewToolResult(call ToolCall, response any, duration time.Duration) ToolResult {
	return ToolResult{
		CallID:    call.ID,
		Name:      call.Name,
		Response:  response,
		Duration:  duration,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolErrorResult creates an error-descriptor result for the given call.
// Tool failures are always recorded this way rather than surfaced as faults
// of the loop itself.
func NewToolErrorResult(call ToolCall, err error, duration time.Duration) ToolResult {
	return ToolResult{
		CallID:    call.ID,
		Name:      call.Name,
		Error:     err.Error(),
		Duration:  duration,
		Timestamp: time.Now().UTC(),
	}
}

// NewCancelledToolResult creates the result appended when a step is cancelled
// after its ToolCall was recorded but before the tool completed.
func NewCancelledToolResult(call ToolCall) ToolResult {
	return ToolResult{
		CallID:    call.ID,
		Name:      call.Name,
		Error:     "invocation cancelled",
		Cancelled: true,
		Timestamp: time.Now().UTC(),
	}
}

// Failed reports whether the result carries an error descriptor.
func (r ToolResult) Failed() bool { return r.Error != "" }
