package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"proctored-quiz-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository is a process-local quiz cache in front of a QuizLoader. Only quizzes
// that pass validation are cached, and callers always receive their own copy.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group

	jitterMu sync.Mutex
	jitter   *rand.Rand

	mu      sync.RWMutex
	entries map[string]quizEntry
}

type quizEntry struct {
	quiz    domain.Quiz
	expires time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		jitter:  rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]quizEntry),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.lookup(quizID); ok {
		return quiz, nil
	}

	v, err, _ := r.group.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.lookup(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := quiz.Validate(); err != nil {
			return domain.Quiz{}, fmt.Errorf("quiz %s: %w", quizID, err)
		}
		r.store(quizID, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return cloneQuiz(v.(domain.Quiz)), nil
}

// Invalidate forgets the cached copy of quizID.
func (r *QuizRepository) Invalidate(quizID string) {
	r.mu.Lock()
	delete(r.entries, quizID)
	r.mu.Unlock()
}

func (r *QuizRepository) lookup(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	entry, ok := r.entries[quizID]
	r.mu.RUnlock()
	if !ok || !r.now().Before(entry.expires) {
		return domain.Quiz{}, false
	}
	return cloneQuiz(entry.quiz), true
}

func (r *QuizRepository) store(quizID string, quiz domain.Quiz) {
	expires := r.now().Add(r.expiry())
	r.mu.Lock()
	r.entries[quizID] = quizEntry{quiz: cloneQuiz(quiz), expires: expires}
	r.mu.Unlock()
}

// expiry spreads cache lifetimes over [ttl, ttl*1.1].
func (r *QuizRepository) expiry() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.jitterMu.Lock()
	defer r.jitterMu.Unlock()
	return r.ttl + time.Duration(r.jitter.Int63n(int64(r.ttl)/10+1))
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	out := q
	out.Questions = make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		out.Questions[i] = question
	}
	return out
}

// StaticQuizLoader serves quizzes from a fixed map: the built-in sample or a YAML file.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	quiz, ok := l.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}
