package app

import (
	"context"
	"time"

	"proctored-quiz-service/internal/domain"
	"proctored-quiz-service/internal/notify"
)

// UserRepository is the credential store.
type UserRepository interface {
	// Lookup returns domain.ErrUserNotFound for unknown usernames.
	Lookup(ctx context.Context, username string) (domain.User, error)
	// Insert returns domain.ErrDuplicateUsername instead of overwriting.
	Insert(ctx context.Context, user domain.User) error
	// UpdatePassword replaces the hash and increments the change counter in one step,
	// failing with domain.ErrChangeLimitExceeded when the counter already reached maxChanges.
	UpdatePassword(ctx context.Context, username, newHash string, maxChanges int) error
}

// AttemptLedger persists a submission.
type AttemptLedger interface {
	// CommitAttempt increments the user's attempt counter (only while it is below
	// maxAttempts) and appends the result to the global and section sinks as one unit.
	CommitAttempt(ctx context.Context, result domain.QuizResult, maxAttempts int) error
}

// ResultReader exposes stored results for professor views. An empty section reads the global sink.
type ResultReader interface {
	Results(ctx context.Context, section string) ([]domain.QuizResult, error)
}

// SessionRepository abstracts where open quiz sessions live, keyed by username.
type SessionRepository interface {
	GetOrCreate(username string, create func() *Session) (*Session, bool)
	Get(username string) (*Session, bool)
	Delete(username string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// PresenceSet tracks who is currently taking a quiz.
type PresenceSet interface {
	Add(ctx context.Context, username string) error
	Remove(ctx context.Context, username string) error
	List(ctx context.Context) ([]string, error)
}

// CameraSignal reports whether video is currently being produced for a user.
type CameraSignal interface {
	IsLive(username string) bool
}

// OTPStore keeps hashed one-time codes keyed by email.
type OTPStore interface {
	Put(ctx context.Context, email, codeHash string, ttl time.Duration) error
	// Take returns and removes the stored hash, or domain.ErrInvalidOTP when none is stored.
	Take(ctx context.Context, email string) (string, error)
}

// Notifier delivers messages without blocking the caller.
type Notifier interface {
	Notify(msg notify.Message)
}
