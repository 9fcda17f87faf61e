package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpagent/gpagent/core"
	"github.com/gpagent/gpagent/internal/testutil"
	"github.com/gpagent/gpagent/store"
)

func TestManager_AcquireCreatesFreshSession(t *testing.T) {
	m := NewManager(store.NewInMemoryTranscripts())

	h, err := m.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	defer m.Release(h)

	assert.Equal(t, "s1", h.Session().ID)
	assert.Equal(t, core.StatusActive, h.Session().CurrentStatus())
	assert.Equal(t, 0, h.Session().Len())
}

func TestManager_FailFastContention(t *testing.T) {
	m := NewManager(store.NewInMemoryTranscripts())

	h, err := m.Acquire(context.Background(), "s1")
	require.NoError(t, err)

	_, err = m.Acquire(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSessionBusy)

	// Other sessions are unaffected by the held handle.
	other, err := m.Acquire(context.Background(), "s2")
	require.NoError(t, err)
	m.Release(other)

	m.Release(h)
	h2, err := m.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	m.Release(h2)
}

func TestManager_BlockPolicyWaitsForRelease(t *testing.T) {
	m := NewManager(store.NewInMemoryTranscripts(), func(o *Options) { o.Policy = Block })

	h, err := m.Acquire(context.Background(), "s1")
	require.NoError(t, err)

	acquired := make(chan *Handle)
	go func() {
		h2, err := m.Acquire(context.Background(), "s1")
		require.NoError(t, err)
		acquired <- h2
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while handle was held")
	case <-time.After(50 * time.Millisecond):
	}

	m.Release(h)

	select {
	case h2 := <-acquired:
		m.Release(h2)
	case <-time.After(time.Second):
		t.Fatal("second acquire did not proceed after release")
	}
}

func TestManager_BlockPolicyHonorsContext(t *testing.T) {
	m := NewManager(store.NewInMemoryTranscripts(), func(o *Options) { o.Policy = Block })

	h, err := m.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	defer m.Release(h)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = m.Acquire(ctx, "s1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManager_ExactlyOneWinnerUnderContention(t *testing.T) {
	m := NewManager(store.NewInMemoryTranscripts())

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		h, err := m.Acquire(context.Background(), "s1")
		require.NoError(t, err)
		close(held)
		<-release
		m.Release(h)
	}()
	<-held

	const callers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	busy := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Acquire(context.Background(), "s1"); err != nil {
				mu.Lock()
				busy++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(release)

	assert.Equal(t, callers, busy)
}

func TestManager_LazyHydrationAfterRestart(t *testing.T) {
	transcripts := store.NewInMemoryTranscripts()
	turns := testutil.NewTranscriptBuilder().User("what is 2+2").Answer("4").Build()
	for _, turn := range turns {
		require.NoError(t, transcripts.Append("s1", turn))
	}

	// A fresh manager simulates a restarted process.
	m := NewManager(transcripts)
	h, err := m.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	defer m.Release(h)

	history := h.Session().History()
	require.Len(t, history, 2)
	assert.Equal(t, "what is 2+2", history[0].Text)
	assert.Equal(t, "4", history[1].Text)
	assert.Equal(t, core.StatusComplete, h.Session().CurrentStatus())
}

func TestManager_HydrationDerivesSuspendedStatus(t *testing.T) {
	builder := testutil.NewTranscriptBuilder().
		User("check the weather then build a report")
	builder.ToolExchange("weather", []byte(`{"city":"Paris"}`), "sunny")
	builder, pending := builder.PendingCall("generate_report", []byte(`{}`))

	transcripts := store.NewInMemoryTranscripts()
	for _, turn := range builder.Build() {
		require.NoError(t, transcripts.Append("s1", turn))
	}

	m := NewManager(transcripts)
	h, err := m.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	defer m.Release(h)

	assert.Equal(t, core.StatusAwaitingTool, h.Session().CurrentStatus())
	require.NotNil(t, h.Session().PendingCall())
	assert.Equal(t, pending.ID, h.Session().PendingCall().ID)
}

func TestManager_HydrationFailureReleasesToken(t *testing.T) {
	transcripts := store.NewInMemoryTranscripts()
	// Index gap makes the persisted transcript invalid.
	require.NoError(t, transcripts.Append("s1", core.NewUserTurn(3, "gap")))

	m := NewManager(transcripts)
	_, err := m.Acquire(context.Background(), "s1")
	require.Error(t, err)

	// The token must be returned so the session is not wedged forever.
	_, err = m.Acquire(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionBusy)
}

func TestManager_ReleaseTwiceIsNoOp(t *testing.T) {
	m := NewManager(store.NewInMemoryTranscripts())
	h, err := m.Acquire(context.Background(), "s1")
	require.NoError(t, err)

	m.Release(h)
	m.Release(h)

	h2, err := m.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	m.Release(h2)
}

func TestManager_ExpireIdle(t *testing.T) {
	m := NewManager(store.NewInMemoryTranscripts())

	h, err := m.Acquire(context.Background(), "stale")
	require.NoError(t, err)
	require.NoError(t, h.Session().Append(core.NewUserTurn(0, "hi")))
	m.Release(h)

	held, err := m.Acquire(context.Background(), "held")
	require.NoError(t, err)
	defer m.Release(held)

	time.Sleep(10 * time.Millisecond)

	// Idle entries past the cutoff are evicted; held ones are skipped.
	expired := m.ExpireIdle(time.Nanosecond)
	assert.Equal(t, 1, expired)

	// Evicted sessions rehydrate from the transcript store on next access.
	h2, err := m.Acquire(context.Background(), "stale")
	require.NoError(t, err)
	defer m.Release(h2)
	assert.Equal(t, 1, h2.Session().Len())
}
