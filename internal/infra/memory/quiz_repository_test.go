package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"proctored-quiz-service/internal/domain"
)

func TestQuizRepositoryCachesUntilExpiry(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()})}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
			t.Fatalf("get quiz: %v", err)
		}
	}
	if loader.calls != 1 {
		t.Fatalf("expected one load, got %d", loader.calls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, got %d", loader.calls)
	}

	repo.Invalidate("quiz-1")
	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz after invalidate: %v", err)
	}
	if loader.calls != 3 {
		t.Fatalf("expected reload after invalidate, got %d", loader.calls)
	}
}

func TestQuizRepositoryReturnsCopies(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}), time.Minute)
	first, _ := repo.GetQuiz(context.Background(), "quiz-1")
	first.Questions[0].Options[0] = "tampered"

	second, _ := repo.GetQuiz(context.Background(), "quiz-1")
	if second.Questions[0].Options[0] != "3" {
		t.Fatalf("cached quiz was mutated through a returned copy")
	}
}

func TestQuizRepositoryRejectsInvalidQuiz(t *testing.T) {
	broken := sampleQuiz()
	broken.Questions[0].Answer = "42"
	repo := NewQuizRepository(NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": broken}), time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected invalid quiz error, got %v", err)
	}
	if _, err := repo.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Arithmetic",
		Questions: []domain.Question{
			{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4"}, Answer: "4"},
		},
	}
}
