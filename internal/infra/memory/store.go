package memory

import (
	"context"
	"sync"

	"proctored-quiz-service/internal/domain"
)

// Store keeps users and results behind one lock, so an attempt commit updates
// the counter and both result sinks together.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	global   []domain.QuizResult
	sections map[string][]domain.QuizResult
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		sections: make(map[string][]domain.QuizResult),
	}
}

func (s *Store) Lookup(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) Insert(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return domain.ErrDuplicateUsername
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, username, newHash string, maxChanges int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return domain.ErrUserNotFound
	}
	if user.PasswordChanges >= maxChanges {
		return domain.ErrChangeLimitExceeded
	}
	user.PasswordHash = newHash
	user.PasswordChanges++
	s.users[username] = user
	return nil
}

func (s *Store) CommitAttempt(_ context.Context, result domain.QuizResult, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[result.Username]
	if !ok {
		return domain.ErrUserNotFound
	}
	if user.Attempts >= maxAttempts {
		return domain.ErrAttemptsExhausted
	}
	user.Attempts++
	s.users[result.Username] = user
	s.global = append(s.global, result)
	if result.Section != "" {
		s.sections[result.Section] = append(s.sections[result.Section], result)
	}
	return nil
}

func (s *Store) Results(_ context.Context, section string) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.global
	if section != "" {
		src = s.sections[section]
	}
	out := make([]domain.QuizResult, len(src))
	copy(out, src)
	return out, nil
}
