package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/gpagent/gpagent/core"
	"github.com/gpagent/gpagent/logging"
	"github.com/gpagent/gpagent/model"
)

// Sentinel errors for the registry.
var (
	// ErrUnknownTool is returned when a lookup or invocation names a tool
	// that was never registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrDuplicateTool is returned when a registration reuses an existing name.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrInvalidArguments is returned when an argument payload cannot be
	// parsed or does not conform to the tool's schema.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Registry maps tool names to capabilities. It is populated at process start
// and lookup-only afterwards. Invoke converts every tool-level failure
// (unknown name, malformed arguments, execution error, panic) into a
// core.ToolResult error descriptor: a misbehaving tool must never abort an
// otherwise-healthy session.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithLogger attaches a structured logger to the registry.
func WithLogger(logger logging.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry constructs an empty registry.
func NewRegistry(optFns ...RegistryOption) *Registry {
	r := &Registry{tools: make(map[string]Tool), logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(r)
	}
	return r
}

// Register adds a tool. It fails with ErrDuplicateTool if the name is taken.
func (r *Registry) Register(t Tool) error {
	if t.Name() == "" {
		return fmt.Errorf("register tool: empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// MustRegister registers a tool and panics on failure. Intended for process
// startup wiring where a duplicate name is a programming error.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the tool registered under name, or ErrUnknownTool.
func (r *Registry) Lookup(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// Definitions returns the registered tools as decision-function definitions,
// ordered by name for deterministic requests.
func (r *Registry) Definitions() []model.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]model.Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, model.Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Invoke executes the call and always returns a paired core.ToolResult. The
// result carries an error descriptor for unknown tools, malformed or invalid
// arguments, execution errors and recovered panics.
func (r *Registry) Invoke(ctx context.Context, call core.ToolCall) core.ToolResult {
	start := time.Now()

	t, err := r.Lookup(call.Name)
	if err != nil {
		r.logger.Warn("tool.invoke.unknown", "tool", call.Name, "call_id", call.ID)
		return core.NewToolErrorResult(call, err, time.Since(start))
	}

	args, err := parseArguments(call.Arguments)
	if err != nil {
		r.logger.Warn("tool.invoke.bad_arguments", "tool", call.Name, "call_id", call.ID, "error", err.Error())
		return core.NewToolErrorResult(call, err, time.Since(start))
	}

	var result any
	func() { // panic safety
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("tool.invoke.panic", "tool", call.Name, "call_id", call.ID, "recover", rec, "stack", string(debug.Stack()))
				err = fmt.Errorf("tool %s panicked: %v", call.Name, rec)
			}
		}()
		result, err = t.Call(ctx, args)
	}()
	dur := time.Since(start)

	if err != nil {
		r.logger.Error("tool.invoke.error", "tool", call.Name, "call_id", call.ID, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return core.NewToolErrorResult(call, err, dur)
	}

	r.logger.Info("tool.invoke.success", "tool", call.Name, "call_id", call.ID, "duration_ms", dur.Milliseconds())
	return core.NewToolResult(call, result, dur)
}

// parseArguments decodes a raw JSON payload into the map shape tools consume.
// An empty payload yields an empty map so tools without parameters work.
func parseArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return args, nil
}
