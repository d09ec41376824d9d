package memory

import (
	"sync"

	"proctored-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository keyed by username.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

// GetOrCreate returns the open session of username, creating it with create when absent.
// The boolean reports whether a new session was created.
func (s *SessionStore) GetOrCreate(username string, create func() *app.Session) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[username]; ok {
		return session, false
	}
	session := create()
	s.sessions[username] = session
	return session, true
}

func (s *SessionStore) Get(username string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[username]
	return session, ok
}

func (s *SessionStore) Delete(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, username)
}

// Len reports the number of open sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
