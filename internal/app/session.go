package app

import (
	"sync"
	"time"

	"proctored-quiz-service/internal/domain"
)

// BeginRequest identifies who starts which quiz.
type BeginRequest struct {
	Username string
	QuizID   string
	USN      string
	Section  string
}

// Session is one student's in-memory quiz-taking episode.
type Session struct {
	id        string
	username  string
	usn       string
	section   string
	quiz      domain.Quiz
	startedAt time.Time
	now       func() time.Time

	mu          sync.Mutex
	answers     map[string]string
	cameraGated bool
	submitted   bool
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string, req BeginRequest, quiz domain.Quiz) *Session {
	return newSessionWithClock(id, req, quiz, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id string, req BeginRequest, quiz domain.Quiz, now func() time.Time) *Session {
	return newSessionWithClock(id, req, quiz, now)
}

func newSessionWithClock(id string, req BeginRequest, quiz domain.Quiz, now func() time.Time) *Session {
	return &Session{
		id:        id,
		username:  req.Username,
		usn:       req.USN,
		section:   req.Section,
		quiz:      quiz,
		startedAt: now(),
		now:       now,
		answers:   make(map[string]string, len(quiz.Questions)),
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Username() string     { return s.username }
func (s *Session) QuizID() string       { return s.quiz.ID }
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Submitted reports whether the session reached its terminal state.
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// CameraGated reports whether a live camera signal was seen during the session.
func (s *Session) CameraGated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameraGated
}

// State derives the lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() domain.SessionState {
	switch {
	case s.submitted:
		return domain.SessionSubmitted
	case s.cameraGated:
		return domain.SessionCameraGated
	case len(s.answers) > 0:
		return domain.SessionInProgress
	default:
		return domain.SessionCreated
	}
}

func (s *Session) recordAnswer(questionID, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return domain.ErrAlreadySubmitted
	}
	question, ok := s.quiz.Question(questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if option == "" {
		delete(s.answers, questionID)
		return nil
	}
	if !question.HasOption(option) {
		return domain.ErrOptionNotFound
	}
	s.answers[questionID] = option
	return nil
}

func (s *Session) latchCamera(live bool) {
	if !live {
		return
	}
	s.mu.Lock()
	s.cameraGated = true
	s.mu.Unlock()
}

func (s *Session) remaining(limit time.Duration) time.Duration {
	return remainingAt(s.startedAt, s.now(), limit)
}

func remainingAt(start, now time.Time, limit time.Duration) time.Duration {
	left := limit - now.Sub(start)
	if left < 0 {
		return 0
	}
	return left
}

func (s *Session) completeLocked() bool {
	for _, q := range s.quiz.Questions {
		if _, ok := s.answers[q.ID]; !ok {
			return false
		}
	}
	return true
}

// scoreLocked counts matching answers; unanswered questions score zero.
func (s *Session) scoreLocked() int {
	score := 0
	for _, q := range s.quiz.Questions {
		if s.answers[q.ID] == q.Answer {
			score++
		}
	}
	return score
}

func (s *Session) snapshot(limit time.Duration) domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	questions := make([]domain.PublicQuestion, 0, len(s.quiz.Questions))
	for _, q := range s.quiz.Questions {
		questions = append(questions, domain.PublicQuestion{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: append([]string(nil), q.Options...),
		})
	}
	return domain.SessionSnapshot{
		ID:          s.id,
		Username:    s.username,
		QuizID:      s.quiz.ID,
		USN:         s.usn,
		Section:     s.section,
		State:       s.stateLocked(),
		StartedAt:   s.startedAt,
		Remaining:   s.remaining(limit),
		CameraGated: s.cameraGated,
		Answers:     answers,
		Questions:   questions,
	}
}
