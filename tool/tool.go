// Package tool implements the tool-calling subsystem that lets the agent loop
// invoke structured capabilities (APIs, computations, side effects) with
// schema validated arguments and consistent error handling. Tools are
// registered once at process start into a Registry that is immutable for the
// rest of the process lifetime.
package tool

import (
	"context"
	"fmt"

	"github.com/gpagent/gpagent/internal/util"
)

// Tool defines a capability the decision function may request by name.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be safe for concurrent use across sessions
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the decision function to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected input format,
	// used for argument validation and for advertising the tool to backends.
	Parameters() map[string]any

	// LongRunning reports whether invocation completes out of band. The agent
	// loop suspends the session (AWAITING_TOOL) instead of blocking on these
	// and expects the result to arrive via resume.
	LongRunning() bool

	// Call executes the tool with parsed arguments. The context carries the
	// step's cancellation signal.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ValidationError reports arguments that do not conform to a tool's schema.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
