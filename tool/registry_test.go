package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpagent/gpagent/core"
)

func echoTool() *FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
		},
		"required": []string{"message"},
	}
	return NewFunctionTool("echo", "Echo the message back", params, func(_ context.Context, args map[string]any) (any, error) {
		return args["message"], nil
	})
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))

	got, err := r.Lookup("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", got.Name())

	_, err = r.Lookup("missing")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))

	err := r.Register(echoTool())
	assert.ErrorIs(t, err, ErrDuplicateTool)
}

func TestRegistry_Definitions(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))
	require.NoError(t, r.Register(NewFunctionTool("add", "Add numbers",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) { return nil, nil },
	)))

	defs := r.Definitions()
	require.Len(t, defs, 2)
	// Sorted by name for deterministic requests
	assert.Equal(t, "add", defs[0].Name)
	assert.Equal(t, "echo", defs[1].Name)
	assert.Equal(t, "Echo the message back", defs[1].Description)
}

func TestRegistry_InvokeSuccess(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))

	call := core.NewToolCall("echo", json.RawMessage(`{"message":"hi"}`), 1)
	result := r.Invoke(context.Background(), call)

	assert.False(t, result.Failed())
	assert.Equal(t, call.ID, result.CallID)
	assert.Equal(t, "hi", result.Response)
}

func TestRegistry_InvokeUnknownTool(t *testing.T) {
	r := NewRegistry()

	call := core.NewToolCall("weather", json.RawMessage(`{"city":"Paris"}`), 1)
	result := r.Invoke(context.Background(), call)

	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "unknown tool")
	assert.Equal(t, call.ID, result.CallID)
}

func TestRegistry_InvokeMalformedArguments(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))

	call := core.NewToolCall("echo", json.RawMessage(`{"message":`), 1)
	result := r.Invoke(context.Background(), call)

	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "invalid tool arguments")
}

func TestRegistry_InvokeValidationFailure(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))

	call := core.NewToolCall("echo", json.RawMessage(`{}`), 1)
	result := r.Invoke(context.Background(), call)

	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "VALIDATION_ERROR")
}

func TestRegistry_InvokeRecoversPanic(t *testing.T) {
	r := NewRegistry()
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	require.NoError(t, r.Register(NewFunctionTool("explode", "Panics", params,
		func(_ context.Context, _ map[string]any) (any, error) { panic("kaboom") },
	)))

	call := core.NewToolCall("explode", nil, 1)
	result := r.Invoke(context.Background(), call)

	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "panicked")
}

func TestRegistry_InvokeEmptyArguments(t *testing.T) {
	r := NewRegistry()
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	require.NoError(t, r.Register(NewFunctionTool("ping", "Ping", params,
		func(_ context.Context, _ map[string]any) (any, error) { return "pong", nil },
	)))

	result := r.Invoke(context.Background(), core.NewToolCall("ping", nil, 0))
	assert.False(t, result.Failed())
	assert.Equal(t, "pong", result.Response)
}
