package domain

import "errors"

var (
	// ErrAttemptsExhausted is returned when a user already used every quiz attempt.
	ErrAttemptsExhausted = errors.New("quiz attempts exhausted")
	// ErrIncompleteAnswers is returned by a manual submission with unanswered questions.
	ErrIncompleteAnswers = errors.New("not all questions are answered")
	// ErrCameraRequired is returned when no live camera signal was seen during the session.
	ErrCameraRequired = errors.New("live camera is required to submit")
	// ErrInvalidCredential covers unknown users and wrong passwords alike.
	ErrInvalidCredential = errors.New("invalid username or password")
	// ErrChangeLimitExceeded is returned once the password change ceiling is reached.
	ErrChangeLimitExceeded = errors.New("password change limit reached")
	// ErrDuplicateUsername is returned when registering an existing username.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrNotificationFailed marks a failed best-effort notification. It is logged, never returned to users.
	ErrNotificationFailed = errors.New("notification failed")

	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("quiz session not found")
	ErrAlreadySubmitted = errors.New("quiz session already submitted")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrOptionNotFound   = errors.New("option not found")
	ErrInvalidQuiz      = errors.New("invalid quiz definition")
	ErrForbidden        = errors.New("operation not permitted for role")
	ErrInvalidOTP       = errors.New("invalid or expired one-time code")
	ErrInvalidRole      = errors.New("invalid role")
)
