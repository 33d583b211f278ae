package engine

import "github.com/google/uuid"

// maxHistoryTurns bounds how much conversation a session keeps. Only the
// last few turns reach the prompt anyway.
const maxHistoryTurns = 20

type turn struct {
	role    string
	content string
}

// Session holds the conversation history of one user. It is not safe for
// concurrent use; each conversation owns its session.
type Session struct {
	ID      string
	history []turn
}

// NewSession creates an empty session with a fresh ID.
func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

func (s *Session) remember(question, answer string) {
	s.history = append(s.history,
		turn{role: "user", content: question},
		turn{role: "assistant", content: answer},
	)
	if len(s.history) > maxHistoryTurns {
		s.history = s.history[len(s.history)-maxHistoryTurns:]
	}
}

// Clear drops the conversation history.
func (s *Session) Clear() {
	s.history = nil
}

// Len returns the number of stored turns.
func (s *Session) Len() int {
	return len(s.history)
}
