package backend

import (
	"encoding/json"
	"sync"
)

// Session caches the last profile read for the mode it was read in. It is
// cleared when the selector leaves live mode so demo data never mixes with a
// real user's session.
type Session struct {
	mu      sync.Mutex
	mode    Mode
	profile json.RawMessage
}

// Remember stores profile as read under mode.
func (s *Session) Remember(mode Mode, profile json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.profile = append(json.RawMessage(nil), profile...)
}

// Profile returns the cached profile if it was read under mode.
func (s *Session) Profile(mode Mode) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil || s.mode != mode {
		return nil, false
	}
	return append(json.RawMessage(nil), s.profile...), true
}

// Clear drops any cached state.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ""
	s.profile = nil
}
