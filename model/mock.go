package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/gpagent/gpagent/core"
)

// MockDecider is a lightweight in-memory Decider useful for tests & examples.
// Scripted actions are consumed in FIFO order; when the script is exhausted it
// falls back to canned answers keyed by the last user input, then to a
// deterministic echo.
type MockDecider struct {
	mu        sync.Mutex
	script    []Action
	responses map[string]string
}

// NewMockDecider constructs an empty MockDecider.
func NewMockDecider() *MockDecider {
	return &MockDecider{responses: make(map[string]string)}
}

// Enqueue appends scripted actions returned by subsequent Decide calls.
func (m *MockDecider) Enqueue(actions ...Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, actions...)
}

// AddResponse registers a deterministic canned answer for a user input.
func (m *MockDecider) AddResponse(input, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[input] = answer
}

// Decide implements Decider.
func (m *MockDecider) Decide(ctx context.Context, req Request) (Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		return next, nil
	}

	input := lastUserText(req.History)
	if answer, ok := m.responses[input]; ok {
		return Answer{Text: answer}, nil
	}
	return Answer{Text: fmt.Sprintf("Mock answer to: %s", input)}, nil
}

// Info implements metadata reporting for the mock backend.
func (m *MockDecider) Info() Info { return Info{Name: "mock", Provider: "mock"} }

func lastUserText(history []core.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == core.RoleUser {
			return history[i].Text
		}
	}
	return ""
}
