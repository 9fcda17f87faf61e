package store

import (
	"sync"

	"github.com/gpagent/gpagent/core"
)

// InMemoryTranscripts is a volatile TranscriptStore keeping turns in a
// process-local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo setups. ReadAll returns a defensive copy.
type InMemoryTranscripts struct {
	mu    sync.RWMutex
	turns map[string][]core.Turn
}

// NewInMemoryTranscripts constructs an empty in-memory transcript store.
func NewInMemoryTranscripts() *InMemoryTranscripts {
	return &InMemoryTranscripts{turns: make(map[string][]core.Turn)}
}

// Append adds a turn to the session's transcript.
func (s *InMemoryTranscripts) Append(sessionID string, turn core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[sessionID] = append(s.turns[sessionID], turn)
	return nil
}

// ReadAll returns a copy of the session's ordered turn sequence. An unknown
// session yields an empty sequence, not an error.
func (s *InMemoryTranscripts) ReadAll(sessionID string) ([]core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]core.Turn, len(s.turns[sessionID]))
	copy(turns, s.turns[sessionID])
	return turns, nil
}

// InMemoryLog is a volatile ExecutionLog counterpart to InMemoryTranscripts.
type InMemoryLog struct {
	mu      sync.RWMutex
	records map[string][]Record
}

// NewInMemoryLog constructs an empty in-memory execution log.
func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{records: make(map[string][]Record)}
}

// Append adds a record to the session's execution log.
func (s *InMemoryLog) Append(sessionID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[sessionID] = append(s.records[sessionID], rec)
	return nil
}

// ReadAll returns a copy of the session's ordered record sequence.
func (s *InMemoryLog) ReadAll(sessionID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]Record, len(s.records[sessionID]))
	copy(records, s.records[sessionID])
	return records, nil
}
