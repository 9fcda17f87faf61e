// Package store provides the two durable append-only stores behind a session:
// the transcript store (conversation turns, the core-data location) and the
// execution log (tool calls and their outcomes, the core-logs location).
//
// Both stores share the same contract: Append never overwrites, a record is
// committed only once Append returns nil, and ReadAll returns the full
// ordered record sequence and is idempotent between appends. Durable-write
// failures are reported wrapped in ErrStoreIO.
package store

import (
	"errors"
	"time"

	"github.com/gpagent/gpagent/core"
)

// ErrStoreIO wraps any durable-write or read failure. A step that cannot
// record a turn or execution record fails with this error and the session is
// left in its last-confirmed state.
var ErrStoreIO = errors.New("store io failure")

// RecordKind distinguishes execution log entries.
type RecordKind string

const (
	// RecordCall logs that a tool invocation was requested.
	RecordCall RecordKind = "call"
	// RecordResult logs a tool invocation's outcome.
	RecordResult RecordKind = "result"
)

// Record is one execution log entry: a tool call or its paired result.
type Record struct {
	Kind      RecordKind       `json:"kind"`
	Timestamp time.Time        `json:"timestamp"`
	Call      *core.ToolCall   `json:"call,omitempty"`
	Result    *core.ToolResult `json:"result,omitempty"`
}

// NewCallRecord creates the log entry appended before a tool is invoked.
func NewCallRecord(call core.ToolCall) Record {
	return Record{Kind: RecordCall, Timestamp: time.Now().UTC(), Call: &call}
}

// NewResultRecord creates the log entry appended once an invocation settles.
func NewResultRecord(result core.ToolResult) Record {
	return Record{Kind: RecordResult, Timestamp: time.Now().UTC(), Result: &result}
}

// TranscriptStore persists conversation turns per session.
type TranscriptStore interface {
	Append(sessionID string, turn core.Turn) error
	ReadAll(sessionID string) ([]core.Turn, error)
}

// ExecutionLog persists tool invocation records per session.
type ExecutionLog interface {
	Append(sessionID string, rec Record) error
	ReadAll(sessionID string) ([]Record, error)
}
