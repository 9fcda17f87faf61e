package model

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpagent/gpagent/core"
)

func TestMockDecider_Script(t *testing.T) {
	d := NewMockDecider()
	d.Enqueue(
		Call{Name: "weather", Arguments: json.RawMessage(`{"city":"Paris"}`)},
		Answer{Text: "It is sunny."},
	)

	history := []core.Turn{core.NewUserTurn(0, "weather?")}

	action, err := d.Decide(context.Background(), Request{History: history})
	require.NoError(t, err)
	call, ok := action.(Call)
	require.True(t, ok)
	assert.Equal(t, "weather", call.Name)

	action, err = d.Decide(context.Background(), Request{History: history})
	require.NoError(t, err)
	answer, ok := action.(Answer)
	require.True(t, ok)
	assert.Equal(t, "It is sunny.", answer.Text)
}

func TestMockDecider_CannedResponse(t *testing.T) {
	d := NewMockDecider()
	d.AddResponse("what is 2+2", "4")

	action, err := d.Decide(context.Background(), Request{
		History: []core.Turn{core.NewUserTurn(0, "what is 2+2")},
	})
	require.NoError(t, err)
	answer, ok := action.(Answer)
	require.True(t, ok)
	assert.Equal(t, "4", answer.Text)
}

func TestMockDecider_FallbackEcho(t *testing.T) {
	d := NewMockDecider()

	action, err := d.Decide(context.Background(), Request{
		History: []core.Turn{core.NewUserTurn(0, "hello")},
	})
	require.NoError(t, err)
	answer, ok := action.(Answer)
	require.True(t, ok)
	assert.Contains(t, answer.Text, "hello")
}

func TestMockDecider_CancelledContext(t *testing.T) {
	d := NewMockDecider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Decide(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
