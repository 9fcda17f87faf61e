package gpagent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpagent/gpagent/config"
	"github.com/gpagent/gpagent/model"
	"github.com/gpagent/gpagent/tool"
)

func TestAgent_Chat(t *testing.T) {
	decider := model.NewMockDecider()
	decider.AddResponse("what is 2+2", "4")

	agent := New(decider)

	answer, err := agent.Chat(context.Background(), "s1", "what is 2+2")
	require.NoError(t, err)
	assert.Equal(t, "4", answer)
}

func TestAgent_ChatWithTool(t *testing.T) {
	decider := model.NewMockDecider()
	decider.Enqueue(
		model.Call{Name: "get_weather", Arguments: json.RawMessage(`{"city":"Paris"}`)},
		model.Answer{Text: "Sunny in Paris"},
	)

	agent := New(decider)
	agent.RegisterTool(tool.NewFunctionTool(
		"get_weather",
		"Get the current weather for a city",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
			"required": []string{"city"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return "sunny", nil
		},
	))

	answer, err := agent.Chat(context.Background(), "s1", "weather in Paris?")
	require.NoError(t, err)
	assert.Equal(t, "Sunny in Paris", answer)

	records, err := agent.Runner().ExecutionRecords("s1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestAgent_ChatReportsSuspension(t *testing.T) {
	decider := model.NewMockDecider()
	decider.Enqueue(model.Call{Name: "report", Arguments: json.RawMessage(`{}`)})

	agent := New(decider)
	agent.RegisterTool(tool.NewFunctionTool(
		"report",
		"Out-of-band report build",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) { return nil, nil },
		tool.WithLongRunning(),
	))

	_, err := agent.Chat(context.Background(), "s1", "build a report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "long-running tool")
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Agent.MaxToolRounds = 2
	cfg.Log.Level = "error"

	decider := model.NewMockDecider()
	decider.AddResponse("hello", "hi")

	agent, err := NewFromConfig(cfg, decider)
	require.NoError(t, err)

	answer, err := agent.Chat(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", answer)
}
