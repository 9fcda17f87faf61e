package runner

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpagent/gpagent/agent"
	"github.com/gpagent/gpagent/config"
	"github.com/gpagent/gpagent/core"
	"github.com/gpagent/gpagent/model"
	"github.com/gpagent/gpagent/session"
	"github.com/gpagent/gpagent/tool"
)

func TestRunner_SubmitTurn(t *testing.T) {
	decider := model.NewMockDecider()
	decider.AddResponse("what is 2+2", "4")

	r := New(decider, tool.NewRegistry())

	outcome, err := r.SubmitTurn(context.Background(), "s1", "what is 2+2")
	require.NoError(t, err)

	answer, ok := outcome.(agent.FinalAnswer)
	require.True(t, ok, "expected FinalAnswer, got %T", outcome)
	assert.Equal(t, "4", answer.Text)

	history, err := r.History("s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, "4", history[1].Text)
}

func TestRunner_ConcurrentSameSessionFailsFast(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	slow := tool.NewFunctionTool(
		"slow",
		"Block until released",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) {
			close(started)
			<-release
			return "done", nil
		},
	)
	registry := tool.NewRegistry()
	registry.MustRegister(slow)

	decider := model.NewMockDecider()
	decider.Enqueue(
		model.Call{Name: "slow", Arguments: json.RawMessage(`{}`)},
		model.Answer{Text: "finished"},
	)

	r := New(decider, registry)

	done := make(chan error, 1)
	go func() {
		_, err := r.SubmitTurn(context.Background(), "s1", "go slow")
		done <- err
	}()
	<-started

	_, err := r.SubmitTurn(context.Background(), "s1", "me too")
	assert.ErrorIs(t, err, session.ErrSessionBusy)

	close(release)
	require.NoError(t, <-done)
}

func TestRunner_CancelPairsPendingCall(t *testing.T) {
	started := make(chan struct{})

	blocking := tool.NewFunctionTool(
		"blocking",
		"Block until the step is cancelled",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, _ map[string]any) (any, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	)
	registry := tool.NewRegistry()
	registry.MustRegister(blocking)

	decider := model.NewMockDecider()
	decider.Enqueue(model.Call{Name: "blocking", Arguments: json.RawMessage(`{}`)})

	r := New(decider, registry)

	done := make(chan error, 1)
	go func() {
		_, err := r.SubmitTurn(context.Background(), "s1", "hang")
		done <- err
	}()
	<-started

	require.NoError(t, r.Cancel("s1"))
	assert.ErrorIs(t, <-done, context.Canceled)

	// The appended ToolCall was paired with a cancelled result before the
	// handle was released.
	history, err := r.History("s1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.NotNil(t, history[2].Result)
	assert.True(t, history[2].Result.Cancelled)

	records, err := r.ExecutionRecords("s1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRunner_CancelWithoutInFlightStep(t *testing.T) {
	r := New(model.NewMockDecider(), tool.NewRegistry())
	assert.Error(t, r.Cancel("s1"))
}

func TestRunner_ResumeTool(t *testing.T) {
	report := tool.NewFunctionTool(
		"generate_report",
		"Out-of-band report build",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) { return nil, nil },
		tool.WithLongRunning(),
	)
	registry := tool.NewRegistry()
	registry.MustRegister(report)

	decider := model.NewMockDecider()
	decider.Enqueue(
		model.Call{Name: "generate_report", Arguments: json.RawMessage(`{}`)},
		model.Answer{Text: "Your report is ready"},
	)

	r := New(decider, registry)

	outcome, err := r.SubmitTurn(context.Background(), "s1", "build a report")
	require.NoError(t, err)
	invocation, ok := outcome.(agent.ToolInvocation)
	require.True(t, ok, "expected ToolInvocation, got %T", outcome)

	outcome, err = r.ResumeTool(context.Background(), "s1", invocation.Pending.ID, "s3://reports/1", nil)
	require.NoError(t, err)
	answer, ok := outcome.(agent.FinalAnswer)
	require.True(t, ok, "expected FinalAnswer, got %T", outcome)
	assert.Equal(t, "Your report is ready", answer.Text)
}

func TestRunner_NewFromConfigPersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DataDir = dir + "/core-data"
	cfg.Storage.LogDir = dir + "/core-logs"
	cfg.Log.Level = "error"

	decider := model.NewMockDecider()
	decider.AddResponse("hello", "hi there")

	r, err := NewFromConfig(cfg, decider, tool.NewRegistry())
	require.NoError(t, err)
	_, err = r.SubmitTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)

	// A second runner over the same directories sees the same transcript.
	r2, err := NewFromConfig(cfg, model.NewMockDecider(), tool.NewRegistry())
	require.NoError(t, err)
	history, err := r2.History("s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi there", history[1].Text)
}

func TestRunner_SweeperEvictsIdleSessions(t *testing.T) {
	decider := model.NewMockDecider()
	r := New(decider, tool.NewRegistry())

	_, err := r.SubmitTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartSweeper(ctx, config.SessionConfig{
		IdleExpiry:    time.Nanosecond,
		SweepInterval: 5 * time.Millisecond,
	})

	// Eviction only drops the in-memory entry; the transcript survives.
	assert.Eventually(t, func() bool {
		history, err := r.History("s1")
		return err == nil && len(history) == 2
	}, time.Second, 10*time.Millisecond)
}
