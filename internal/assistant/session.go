package assistant

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Session owns the mutable conversation state: the current identity, the
// ordered turn history, and the most recent response. All access is
// serialized so concurrent turns never observe a partially updated identity
// and never interleave history appends.
type Session struct {
	mu       sync.RWMutex
	identity Identity
	turns    []Turn
	last     *ResponseRecord
}

// NewSession creates a session with the given default identity.
func NewSession(name string, userType UserType) *Session {
	return &Session{
		identity: Identity{Name: name, Type: userType},
	}
}

// Identity returns a snapshot of the current identity.
func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// SetName updates the user name. Returns whether the stored value changed.
func (s *Session) SetName(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity.Name == name {
		return false, nil
	}
	s.identity.Name = name
	return true, nil
}

// SetType updates the user type. Returns whether the stored value changed.
// An invalid literal leaves the identity untouched.
func (s *Session) SetType(userType UserType) (bool, error) {
	if userType != UserTypeStaff && userType != UserTypeStudent {
		return false, fmt.Errorf("%w: %q", ErrInvalidUserType, userType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity.Type == userType {
		return false, nil
	}
	s.identity.Type = userType
	return true, nil
}

// Append records a completed turn. The append is atomic with respect to
// other turns.
func (s *Session) Append(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	s.turns = append(s.turns, turn)
	rec := turn.Record
	s.last = &rec
}

// Last returns the most recent response record, if any.
func (s *Session) Last() (ResponseRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return ResponseRecord{}, false
	}
	return *s.last, true
}

// Len returns the number of recorded turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// History returns a copy of all recorded turns.
func (s *Session) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Turn, len(s.turns))
	copy(result, s.turns)
	return result
}

// Clear removes all history and forgets the last response.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	s.last = nil
}

// ContextString formats the last n turns for the answer service's context
// field. Returns empty string when there is no history.
func (s *Session) ContextString(n int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.turns) == 0 || n <= 0 {
		return ""
	}

	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}

	var sb strings.Builder
	for _, t := range s.turns[start:] {
		fmt.Fprintf(&sb, "User: %s\n", t.Utterance)
		text := t.Record.Text
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		fmt.Fprintf(&sb, "Assistant: %s\n", text)
	}
	return strings.TrimRight(sb.String(), "\n")
}
