package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewToolCall(t *testing.T) {
	call := NewToolCall("weather", json.RawMessage(`{"city":"Paris"}`), 4)
	assert.NotEmpty(t, call.ID)
	assert.Equal(t, "weather", call.Name)
	assert.Equal(t, 4, call.TurnIndex)

	other := NewToolCall("weather", nil, 4)
	assert.NotEqual(t, call.ID, other.ID)
}

func TestToolResult_Constructors(t *testing.T) {
	call := NewToolCall("weather", nil, 1)

	ok := NewToolResult(call, "sunny", 25*time.Millisecond)
	assert.Equal(t, call.ID, ok.CallID)
	assert.False(t, ok.Failed())
	assert.Equal(t, "sunny", ok.Response)

	failed := NewToolErrorResult(call, errors.New("upstream timeout"), time.Second)
	assert.True(t, failed.Failed())
	assert.Equal(t, "upstream timeout", failed.Error)
	assert.False(t, failed.Cancelled)

	cancelled := NewCancelledToolResult(call)
	assert.True(t, cancelled.Failed())
	assert.True(t, cancelled.Cancelled)
	assert.Equal(t, call.ID, cancelled.CallID)
}
