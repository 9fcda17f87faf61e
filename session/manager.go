package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gpagent/gpagent/core"
	"github.com/gpagent/gpagent/logging"
	"github.com/gpagent/gpagent/store"
)

// ErrSessionBusy is returned under the FailFast policy when another caller
// already holds the session's handle. The condition is recoverable; callers
// retry after the holder releases.
var ErrSessionBusy = errors.New("session busy")

// AcquirePolicy selects the contention behavior of Acquire.
type AcquirePolicy int

const (
	// FailFast returns ErrSessionBusy immediately when the handle is held.
	FailFast AcquirePolicy = iota
	// Block waits for the holder to release, honoring context cancellation.
	Block
)

// String returns the policy's configuration name.
func (p AcquirePolicy) String() string {
	if p == Block {
		return "block"
	}
	return "fail_fast"
}

// ParsePolicy maps a configuration string to an AcquirePolicy, defaulting to
// FailFast.
func ParsePolicy(s string) AcquirePolicy {
	if s == "block" {
		return Block
	}
	return FailFast
}

// Handle grants exclusive mutation rights over one session until released.
type Handle struct {
	sess     *core.Session
	entry    *entry
	released bool
}

// Session returns the session this handle guards.
func (h *Handle) Session() *core.Session { return h.sess }

// entry pairs a session with its exclusive-access token. The token channel
// has capacity one; holding the token is holding the handle.
type entry struct {
	token    chan struct{}
	sess     *core.Session // nil until hydrated under the token
	hydrated bool
}

// Options configures a Manager.
type Options struct {
	// Policy selects blocking vs fail-fast contention handling.
	Policy AcquirePolicy
	// Logger receives lifecycle events.
	Logger logging.Logger
}

// Manager is the arena mapping session identifiers to session state plus a
// per-entry exclusive-access token. It is the only shared mutable state in
// the system besides the tool registry, and its table is append/lookup-only.
type Manager struct {
	mu          sync.Mutex
	table       map[string]*entry
	transcripts store.TranscriptStore
	policy      AcquirePolicy
	logger      logging.Logger
}

// NewManager constructs a Manager hydrating sessions from transcripts.
func NewManager(transcripts store.TranscriptStore, optFns ...func(o *Options)) *Manager {
	opts := Options{Policy: FailFast, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		table:       make(map[string]*entry),
		transcripts: transcripts,
		policy:      opts.Policy,
		logger:      opts.Logger,
	}
}

// Acquire resolves or creates the session and returns its exclusive handle.
// Sessions unseen since process start are hydrated lazily from the transcript
// store; identifiers absent from the store yield fresh ACTIVE sessions.
func (m *Manager) Acquire(ctx context.Context, sessionID string) (*Handle, error) {
	e := m.entryFor(sessionID)

	switch m.policy {
	case Block:
		select {
		case <-e.token:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	default:
		select {
		case <-e.token:
		default:
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionBusy)
		}
	}

	// Hydration happens at most once per table entry, under the token.
	if !e.hydrated {
		sess, err := m.hydrate(sessionID)
		if err != nil {
			e.token <- struct{}{}
			return nil, err
		}
		e.sess = sess
		e.hydrated = true
	}

	m.logger.Debug("session.acquired", "session_id", sessionID, "turns", e.sess.Len())
	return &Handle{sess: e.sess, entry: e}, nil
}

// Release returns the handle and makes the session available again. Calling
// Release twice on the same handle is a no-op.
func (m *Manager) Release(h *Handle) {
	if h == nil || h.released {
		return
	}
	h.released = true
	h.entry.token <- struct{}{}
	m.logger.Debug("session.released", "session_id", h.sess.ID)
}

// entryFor returns the table entry for id, creating it with an available
// token on first sight.
func (m *Manager) entryFor(sessionID string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.table[sessionID]
	if !ok {
		e = &entry{token: make(chan struct{}, 1)}
		e.token <- struct{}{}
		m.table[sessionID] = e
	}
	return e
}

func (m *Manager) hydrate(sessionID string) (*core.Session, error) {
	turns, err := m.transcripts.ReadAll(sessionID)
	if err != nil {
		return nil, fmt.Errorf("hydrate session %s: %w", sessionID, err)
	}
	if len(turns) == 0 {
		return core.NewSession(sessionID), nil
	}
	sess, err := core.Rehydrate(sessionID, turns)
	if err != nil {
		return nil, fmt.Errorf("hydrate session %s: %w", sessionID, err)
	}
	m.logger.Info("session.rehydrated", "session_id", sessionID, "turns", len(turns), "status", string(sess.CurrentStatus()))
	return sess, nil
}

// ExpireIdle evicts sessions whose last activity predates the cutoff from the
// in-memory table, returning the eviction count. Entries whose handle is held
// are skipped. Durable transcripts are untouched; an evicted session is
// rehydrated on next access.
func (m *Manager) ExpireIdle(olderThan time.Duration) int {
	cutoff := time.Now().UTC().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()

	expired := 0
	for id, e := range m.table {
		select {
		case <-e.token:
		default:
			continue // handle held, leave it alone
		}
		if e.sess != nil && e.sess.LastActivity().Before(cutoff) {
			delete(m.table, id)
			expired++
			m.logger.Info("session.expired", "session_id", id)
		} else {
			e.token <- struct{}{}
		}
	}
	return expired
}

// Sweep runs ExpireIdle on the given interval until ctx is cancelled.
// Intended to be launched as a background goroutine by the process owner.
func (m *Manager) Sweep(ctx context.Context, interval, olderThan time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ExpireIdle(olderThan)
		}
	}
}
