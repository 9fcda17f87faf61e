package core

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Status describes a session's lifecycle position.
type Status string

const (
	// StatusActive accepts new turns.
	StatusActive Status = "ACTIVE"
	// StatusAwaitingTool marks a session suspended on a long-running tool
	// invocation whose result has not yet been resumed.
	StatusAwaitingTool Status = "AWAITING_TOOL"
	// StatusComplete marks a session whose final turn is an agent answer.
	StatusComplete Status = "COMPLETE"
	// StatusFailed marks a session whose final turn is an unrecoverable
	// error record.
	StatusFailed Status = "FAILED"
)

// ErrSessionClosed is returned when a turn is appended to a COMPLETE or
// FAILED session.
var ErrSessionClosed = errors.New("session closed")

// Session is the ordered transcript of one conversation plus its lifecycle
// status. It is safe for concurrent reads; mutation happens only through the
// agent loop while the session manager's exclusive handle is held.
//
// Contract:
//   - Turn indices are strictly increasing with no gaps
//   - Append rejects turns once the session is COMPLETE or FAILED
//   - History returns a defensive copy
type Session struct {
	ID      string    `json:"id"`
	Turns   []Turn    `json:"turns"`
	Status  Status    `json:"status"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	mu      sync.RWMutex
}

// NewSession creates an empty ACTIVE session with the given ID.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, Turns: []Turn{}, Status: StatusActive, Created: now, Updated: now}
}

// Rehydrate rebuilds a session from its persisted transcript, deriving the
// status from the final turn: an agent answer yields COMPLETE, an error
// record yields FAILED, an unpaired tool call yields AWAITING_TOOL and
// anything else yields ACTIVE.
func Rehydrate(id string, turns []Turn) (*Session, error) {
	s := NewSession(id)
	for i, t := range turns {
		if t.Index != i {
			return nil, fmt.Errorf("transcript for session %s has index %d at position %d", id, t.Index, i)
		}
		s.Turns = append(s.Turns, t)
		if !t.Timestamp.IsZero() {
			s.Updated = t.Timestamp
		}
	}
	if len(s.Turns) > 0 && !s.Turns[0].Timestamp.IsZero() {
		s.Created = s.Turns[0].Timestamp
	}
	s.Status = deriveStatus(s.Turns)
	return s, nil
}

func deriveStatus(turns []Turn) Status {
	if len(turns) == 0 {
		return StatusActive
	}
	last := turns[len(turns)-1]
	switch {
	case last.IsErrorRecord():
		return StatusFailed
	case last.IsAnswer():
		return StatusComplete
	case pendingCall(turns) != nil:
		return StatusAwaitingTool
	default:
		return StatusActive
	}
}

// Append adds a turn to the transcript. The turn's index must equal the next
// expected sequence index and the session must not be closed.
func (s *Session) Append(t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status == StatusComplete || s.Status == StatusFailed {
		return fmt.Errorf("append to session %s: %w", s.ID, ErrSessionClosed)
	}
	if t.Index != len(s.Turns) {
		return fmt.Errorf("session %s: turn index %d, expected %d", s.ID, t.Index, len(s.Turns))
	}
	s.Turns = append(s.Turns, t)
	s.Updated = time.Now().UTC()
	return nil
}

// NextIndex returns the sequence index the next appended turn must carry.
func (s *Session) NextIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Turns)
}

// History returns a defensive copy of the full ordered turn sequence.
func (s *Session) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]Turn, len(s.Turns))
	copy(turns, s.Turns)
	return turns
}

// Len returns the number of turns in the transcript.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Turns)
}

// CurrentStatus returns the session's lifecycle status.
func (s *Session) CurrentStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// SetStatus transitions the session's lifecycle status.
func (s *Session) SetStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = st
	s.Updated = time.Now().UTC()
}

// Closed reports whether the session accepts no further turns.
func (s *Session) Closed() bool {
	st := s.CurrentStatus()
	return st == StatusComplete || st == StatusFailed
}

// LastActivity returns the time of the most recent mutation.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Updated
}

// PendingCall returns the most recent ToolCall that has no matching
// ToolResult yet, or nil if every call is paired.
func (s *Session) PendingCall() *ToolCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pendingCall(s.Turns)
}

func pendingCall(turns []Turn) *ToolCall {
	answered := map[string]bool{}
	for _, t := range turns {
		if t.Result != nil {
			answered[t.Result.CallID] = true
		}
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if c := turns[i].Call; c != nil && !answered[c.ID] {
			cp := *c
			return &cp
		}
	}
	return nil
}

// Clone returns a deep copy of the session safe for independent inspection.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{ID: s.ID, Turns: make([]Turn, len(s.Turns)), Status: s.Status, Created: s.Created, Updated: s.Updated}
	copy(clone.Turns, s.Turns)
	return clone
}
