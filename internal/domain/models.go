package domain

import (
	"fmt"
	"time"
)

const (
	// DefaultTimeLimit is how long a student has between Begin and submission.
	DefaultTimeLimit = 25 * time.Minute
	// MaxAttempts caps the lifetime number of submitted quizzes per user.
	MaxAttempts = 2
	// MaxPasswordChanges caps the lifetime number of password changes per user.
	MaxPasswordChanges = 2
)

// Role is the closed set of account kinds.
type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
)

// ParseRole maps a raw string onto a Role.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleProfessor:
		return RoleProfessor, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

func (r Role) String() string { return string(r) }

// User is a registered account together with its lifetime counters.
type User struct {
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"`
	Role            Role      `json:"role"`
	Email           string    `json:"email,omitempty"`
	PasswordChanges int       `json:"passwordChanges"`
	Attempts        int       `json:"attempts"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

// Validate checks the option count and that Answer is one of Options.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: question without id", ErrInvalidQuiz)
	}
	if len(q.Options) < 2 || len(q.Options) > 4 {
		return fmt.Errorf("%w: question %s has %d options", ErrInvalidQuiz, q.ID, len(q.Options))
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%w: question %s repeats option %q", ErrInvalidQuiz, q.ID, opt)
		}
		seen[opt] = struct{}{}
	}
	if !q.HasOption(q.Answer) {
		return fmt.Errorf("%w: question %s answer is not an option", ErrInvalidQuiz, q.ID)
	}
	return nil
}

// HasOption reports whether opt is one of the declared options.
func (q Question) HasOption(opt string) bool {
	for _, o := range q.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// Quiz is a fixed, ordered set of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Validate checks every question and that question IDs are unique.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz %s has no questions", ErrInvalidQuiz, q.ID)
	}
	ids := make(map[string]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return err
		}
		if _, dup := ids[question.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %s", ErrInvalidQuiz, question.ID)
		}
		ids[question.ID] = struct{}{}
	}
	return nil
}

// Question returns the question with the given id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// QuizResult is the immutable record of one submission.
type QuizResult struct {
	Username    string        `json:"username"`
	USN         string        `json:"usn,omitempty"`
	Section     string        `json:"section,omitempty"`
	QuizID      string        `json:"quizId"`
	Score       int           `json:"score"`
	Total       int           `json:"total"`
	Elapsed     time.Duration `json:"-"`
	SubmittedAt time.Time     `json:"submittedAt"`
}

// ElapsedSeconds is the elapsed time rounded to whole seconds.
func (r QuizResult) ElapsedSeconds() int64 {
	return int64(r.Elapsed.Round(time.Second) / time.Second)
}

// ScoreResult is returned to the student after a successful submission.
type ScoreResult struct {
	Score   int           `json:"score"`
	Total   int           `json:"total"`
	Elapsed time.Duration `json:"-"`
}

// SessionState tracks where a quiz session sits in its lifecycle.
type SessionState string

const (
	SessionCreated     SessionState = "created"
	SessionInProgress  SessionState = "in_progress"
	SessionCameraGated SessionState = "camera_gated"
	SessionSubmitted   SessionState = "submitted"
)

// SessionSnapshot is a read-only copy of a session for transport layers.
type SessionSnapshot struct {
	ID          string            `json:"id"`
	Username    string            `json:"username"`
	QuizID      string            `json:"quizId"`
	USN         string            `json:"usn,omitempty"`
	Section     string            `json:"section,omitempty"`
	State       SessionState      `json:"state"`
	StartedAt   time.Time         `json:"startedAt"`
	Remaining   time.Duration     `json:"-"`
	CameraGated bool              `json:"cameraGated"`
	Answers     map[string]string `json:"answers"`
	Questions   []PublicQuestion  `json:"questions"`
}

// PublicQuestion is a question without its answer.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}
