package model

import (
	"context"
	"encoding/json"

	"github.com/gpagent/gpagent/core"
)

// Action is the decision function's chosen next step. The variant set is
// closed: Answer or Call.
type Action interface{ isAction() }

// Answer terminates the current step with final response text.
type Answer struct {
	Text string
}

func (Answer) isAction() {}

// Call requests invocation of a named tool with a raw JSON argument payload.
type Call struct {
	Name      string
	Arguments json.RawMessage
}

func (Call) isAction() {}

// Definition declaratively exposes a callable tool to the decision function.
// Parameters is a JSON Schema object (minimal subset).
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized decider input produced by the agent loop.
type Request struct {
	Instructions string       `json:"instructions,omitempty"`
	History      []core.Turn  `json:"history"`
	Tools        []Definition `json:"tools,omitempty"`
}

// Decider is the black-box model backend driving the agent loop. Implementors
// must be safe for concurrent use across sessions.
type Decider interface {
	Decide(ctx context.Context, req Request) (Action, error)
}

// Info contains metadata about a decider implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}
