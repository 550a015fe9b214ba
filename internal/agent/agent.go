// Package agent wraps the LLM providers behind a small prompt/response
// capability used by chat sessions.
package agent

import (
	"context"
	"sync"
)

// NoReply is the sentinel an agent emits when it declines to produce a
// visible reply. Callers suppress output when they see it.
const NoReply = "[NOREPLY]"

// Name is the display name sessions use for agent-authored messages.
const Name = "MilkMan"

// Agent is one conversational agent instance with its own memory.
type Agent interface {
	Prompt(ctx context.Context, input string) (string, error)
}

// Role identifies the author of a remembered turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one remembered exchange half.
type Turn struct {
	Role    Role
	Content string
}

// WindowMemory keeps a bounded sliding window of conversation turns that is
// replayed on every prompt call. Oldest turns fall off first. Safe for
// concurrent use; a reconnect can leave two connections prompting the same
// session.
type WindowMemory struct {
	mu    sync.Mutex
	turns []Turn
	max   int
}

// DefaultWindowSize bounds how many turns an agent replays per prompt.
const DefaultWindowSize = 10

// NewWindowMemory creates a memory holding at most max turns. A non-positive
// max falls back to DefaultWindowSize.
func NewWindowMemory(max int) *WindowMemory {
	if max <= 0 {
		max = DefaultWindowSize
	}
	return &WindowMemory{max: max}
}

// Add appends a turn, evicting the oldest when the window is full.
func (m *WindowMemory) Add(role Role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, Turn{Role: role, Content: content})
	if len(m.turns) > m.max {
		m.turns = m.turns[len(m.turns)-m.max:]
	}
}

// Turns returns a copy of the remembered turns, oldest first.
func (m *WindowMemory) Turns() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Turn(nil), m.turns...)
}
