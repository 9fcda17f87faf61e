package testutil

import (
	"encoding/json"

	"github.com/gpagent/gpagent/core"
)

// TranscriptBuilder helps construct valid transcripts with fluent chaining
// for tests: sequence indices are assigned automatically and tool exchanges
// are emitted as correctly paired marker and result turns.
// Example:
//
//	turns := NewTranscriptBuilder().User("hi").Answer("hello").Build()
type TranscriptBuilder struct {
	turns []core.Turn
}

// NewTranscriptBuilder creates an empty builder. Use chainable methods
// (User, Answer, ToolExchange, ...) then call Build.
func NewTranscriptBuilder() *TranscriptBuilder {
	return &TranscriptBuilder{}
}

// User appends a user input turn (chainable).
func (b *TranscriptBuilder) User(text string) *TranscriptBuilder {
	b.turns = append(b.turns, core.NewUserTurn(len(b.turns), text))
	return b
}

// Answer appends an agent-authored answer turn (chainable).
func (b *TranscriptBuilder) Answer(text string) *TranscriptBuilder {
	b.turns = append(b.turns, core.NewAgentTurn(len(b.turns), text))
	return b
}

// ErrorRecord appends an agent-authored unrecoverable error record (chainable).
func (b *TranscriptBuilder) ErrorRecord(detail string) *TranscriptBuilder {
	b.turns = append(b.turns, core.NewAgentErrorTurn(len(b.turns), detail))
	return b
}

// ToolExchange appends a paired tool-call marker turn and result turn
// (chainable).
func (b *TranscriptBuilder) ToolExchange(name string, args json.RawMessage, response any) *TranscriptBuilder {
	call := core.NewToolCall(name, args, len(b.turns))
	b.turns = append(b.turns, core.NewToolCallTurn(call.TurnIndex, call))
	result := core.NewToolResult(call, response, 0)
	b.turns = append(b.turns, core.NewToolResultTurn(len(b.turns), result))
	return b
}

// PendingCall appends a tool-call marker turn without its result, leaving the
// transcript suspended on the returned call (chainable).
func (b *TranscriptBuilder) PendingCall(name string, args json.RawMessage) (*TranscriptBuilder, core.ToolCall) {
	call := core.NewToolCall(name, args, len(b.turns))
	b.turns = append(b.turns, core.NewToolCallTurn(call.TurnIndex, call))
	return b, call
}

// Build returns the ordered turn sequence.
func (b *TranscriptBuilder) Build() []core.Turn {
	turns := make([]core.Turn, len(b.turns))
	copy(turns, b.turns)
	return turns
}
