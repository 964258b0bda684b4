// Package history holds the ordered conversation log of one interview.
package history

import (
	"strings"
	"sync"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the interview.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Store is an append-only log of turns. Turns are only ever added in
// user/assistant pairs and removed all at once.
type Store struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends the user message followed by the assistant reply.
func (s *Store) Add(userMessage, assistantMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns,
		Turn{Role: RoleUser, Content: userMessage},
		Turn{Role: RoleAssistant, Content: assistantMessage},
	)
}

// Show returns a copy of all turns in insertion order.
func (s *Store) Show() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Clear discards every turn.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// Len returns the number of stored turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Transcript renders turns as "Interviewer:"/"Candidate:" lines.
func Transcript(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		if t.Role == RoleAssistant {
			b.WriteString("Interviewer: ")
		} else {
			b.WriteString("Candidate: ")
		}
		b.WriteString(t.Content)
	}
	return b.String()
}
