package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"proctored-quiz-service/internal/domain"
	"proctored-quiz-service/internal/export"
	"proctored-quiz-service/internal/metrics"
	"proctored-quiz-service/internal/notify"
)

// QuizDeps are the collaborators of the quiz controller.
type QuizDeps struct {
	Users    UserRepository
	Ledger   AttemptLedger
	Results  ResultReader
	Sessions SessionRepository
	Quizzes  QuizRepository
	Presence PresenceSet
	Camera   CameraSignal
	Notifier Notifier
}

// QuizOptions tune the controller. Zero values fall back to the domain defaults.
type QuizOptions struct {
	TimeLimit     time.Duration
	MaxAttempts   int
	DefaultQuizID string
	Clock         func() time.Time
	Logger        logrus.FieldLogger
	Metrics       *metrics.Metrics
}

// QuizService gates quiz access, times sessions, scores submissions and hands results to persistence.
type QuizService struct {
	users    UserRepository
	ledger   AttemptLedger
	results  ResultReader
	sessions SessionRepository
	quizzes  QuizRepository
	presence PresenceSet
	camera   CameraSignal
	notifier Notifier

	limit         time.Duration
	maxAttempts   int
	defaultQuizID string
	now           func() time.Time
	log           logrus.FieldLogger
	metrics       *metrics.Metrics
}

func NewQuizService(deps QuizDeps, opts QuizOptions) *QuizService {
	if opts.TimeLimit <= 0 {
		opts.TimeLimit = domain.DefaultTimeLimit
	}
	if opts.MaxAttempts <= 0 || opts.MaxAttempts > domain.MaxAttempts {
		opts.MaxAttempts = domain.MaxAttempts
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &QuizService{
		users:         deps.Users,
		ledger:        deps.Ledger,
		results:       deps.Results,
		sessions:      deps.Sessions,
		quizzes:       deps.Quizzes,
		presence:      deps.Presence,
		camera:        deps.Camera,
		notifier:      deps.Notifier,
		limit:         opts.TimeLimit,
		maxAttempts:   opts.MaxAttempts,
		defaultQuizID: opts.DefaultQuizID,
		now:           opts.Clock,
		log:           opts.Logger,
		metrics:       opts.Metrics,
	}
}

// TimeLimit is the configured session length.
func (s *QuizService) TimeLimit() time.Duration { return s.limit }

// Begin opens a quiz session for a student with attempts left. Calling it again while a
// session is open returns that session unchanged.
func (s *QuizService) Begin(ctx context.Context, req BeginRequest) (*Session, error) {
	session, err := s.begin(ctx, req)
	s.metrics.ObserveBegin(err)
	return session, err
}

func (s *QuizService) begin(ctx context.Context, req BeginRequest) (*Session, error) {
	user, err := s.users.Lookup(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleStudent {
		return nil, domain.ErrForbidden
	}
	if user.Attempts >= s.maxAttempts {
		return nil, domain.ErrAttemptsExhausted
	}

	if req.QuizID == "" {
		req.QuizID = s.defaultQuizID
	}
	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}

	create := func() *Session {
		return newSessionWithClock(uuid.NewString(), req, quiz, s.now)
	}
	session, created := s.sessions.GetOrCreate(req.Username, create)
	if !created && session.Submitted() {
		// A submission finished between lookup and reuse; start over on a fresh session.
		s.sessions.Delete(req.Username)
		session, created = s.sessions.GetOrCreate(req.Username, create)
	}
	if created {
		// attempts may have been used up by submissions that landed after the first lookup.
		fresh, err := s.users.Lookup(ctx, req.Username)
		if err == nil && fresh.Attempts >= s.maxAttempts {
			err = domain.ErrAttemptsExhausted
		}
		if err != nil {
			s.sessions.Delete(req.Username)
			return nil, err
		}
		user = fresh
	}

	if err := s.presence.Add(ctx, req.Username); err != nil {
		return nil, fmt.Errorf("mark %s active: %w", req.Username, err)
	}
	s.pollCamera(session)

	if created {
		s.log.WithFields(logrus.Fields{
			"username": req.Username,
			"quiz_id":  quiz.ID,
			"session":  session.ID(),
			"attempt":  user.Attempts + 1,
		}).Info("quiz session started")
	}
	return session, nil
}

// RecordAnswer stores option for questionID, replacing any earlier answer. An empty option clears it.
func (s *QuizService) RecordAnswer(_ context.Context, username, questionID, option string) error {
	session, ok := s.sessions.Get(username)
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.pollCamera(session)
	return session.recordAnswer(questionID, option)
}

// RemainingTime returns how long the session has left, never negative.
func (s *QuizService) RemainingTime(_ context.Context, username string) (time.Duration, error) {
	session, ok := s.sessions.Get(username)
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	s.pollCamera(session)
	return session.remaining(s.limit), nil
}

// Snapshot returns a read-only view of the open session.
func (s *QuizService) Snapshot(_ context.Context, username string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(username)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	s.pollCamera(session)
	return session.snapshot(s.limit), nil
}

// ObserveCamera feeds a camera reading for username's open session. A live reading latches the gate.
func (s *QuizService) ObserveCamera(_ context.Context, username string, live bool) {
	if session, ok := s.sessions.Get(username); ok {
		session.latchCamera(live)
	}
}

// TrySubmit scores and persists the open session. auto marks a time-limit triggered
// submission, which skips the completeness check. A manual submission always needs
// every question answered, even after the limit.
func (s *QuizService) TrySubmit(ctx context.Context, username string, auto bool) (domain.ScoreResult, error) {
	result, err := s.trySubmit(ctx, username, auto)
	s.metrics.ObserveSubmission(auto, err)
	return result, err
}

func (s *QuizService) trySubmit(ctx context.Context, username string, auto bool) (domain.ScoreResult, error) {
	session, ok := s.sessions.Get(username)
	if !ok {
		return domain.ScoreResult{}, domain.ErrSessionNotFound
	}
	s.pollCamera(session)

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.submitted {
		return domain.ScoreResult{}, domain.ErrAlreadySubmitted
	}
	now := session.now()
	if !auto && !session.completeLocked() {
		return domain.ScoreResult{}, domain.ErrIncompleteAnswers
	}
	if !session.cameraGated {
		return domain.ScoreResult{}, domain.ErrCameraRequired
	}

	result := domain.QuizResult{
		Username:    session.username,
		USN:         session.usn,
		Section:     session.section,
		QuizID:      session.quiz.ID,
		Score:       session.scoreLocked(),
		Total:       len(session.quiz.Questions),
		Elapsed:     now.Sub(session.startedAt),
		SubmittedAt: now,
	}
	if err := s.ledger.CommitAttempt(ctx, result, s.maxAttempts); err != nil {
		if errors.Is(err, domain.ErrAttemptsExhausted) {
			// the ceiling was reached by another instance; this session can never be submitted.
			s.discard(ctx, username)
		}
		return domain.ScoreResult{}, fmt.Errorf("commit attempt for %s: %w", username, err)
	}

	session.submitted = true
	s.discard(ctx, username)
	s.notifyResult(ctx, result)
	s.metrics.ObserveScore(result.Score, result.Total)

	s.log.WithFields(logrus.Fields{
		"username": username,
		"quiz_id":  result.QuizID,
		"score":    result.Score,
		"total":    result.Total,
		"auto":     auto,
	}).Info("quiz submitted")

	return domain.ScoreResult{Score: result.Score, Total: result.Total, Elapsed: result.Elapsed}, nil
}

// ActiveTakers lists usernames currently taking a quiz. Professors only.
func (s *QuizService) ActiveTakers(ctx context.Context, role domain.Role) ([]string, error) {
	if role != domain.RoleProfessor {
		return nil, domain.ErrForbidden
	}
	names, err := s.presence.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Results returns stored results for section, or every result when section is empty. Professors only.
func (s *QuizService) Results(ctx context.Context, role domain.Role, section string) ([]domain.QuizResult, error) {
	if role != domain.RoleProfessor {
		return nil, domain.ErrForbidden
	}
	return s.results.Results(ctx, section)
}

// ExportResults writes Results as CSV to w. Professors only.
func (s *QuizService) ExportResults(ctx context.Context, role domain.Role, section string, w io.Writer) error {
	results, err := s.Results(ctx, role, section)
	if err != nil {
		return err
	}
	return export.WriteResultsCSV(w, results)
}

func (s *QuizService) discard(ctx context.Context, username string) {
	s.sessions.Delete(username)
	if err := s.presence.Remove(ctx, username); err != nil {
		s.log.WithField("username", username).WithError(err).Warn("failed to clear active marker")
	}
}

func (s *QuizService) pollCamera(session *Session) {
	if s.camera == nil {
		return
	}
	session.latchCamera(s.camera.IsLive(session.username))
}

func (s *QuizService) notifyResult(ctx context.Context, result domain.QuizResult) {
	if s.notifier == nil {
		return
	}
	user, err := s.users.Lookup(ctx, result.Username)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.WithField("username", result.Username).WithError(err).Warn("lookup for result notification failed")
		}
		return
	}
	if user.Email == "" {
		return
	}
	s.notifier.Notify(notify.Message{
		To:      user.Email,
		Subject: "Quiz Result",
		Body: fmt.Sprintf("Hello %s, your score: %d/%d (time taken %s).",
			result.Username, result.Score, result.Total, result.Elapsed.Round(time.Second)),
	})
}
