package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"proctored-quiz-service/internal/domain"
	"proctored-quiz-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:quiz-1:content") {
		t.Fatalf("expected quiz cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Questions) != len(quiz.Questions) || cached.Questions[0].Answer != "4" {
		t.Fatalf("expected full quiz from cache, got %+v", cached)
	}

	if err := repo.Invalidate(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{
				ID:      "q1",
				Prompt:  "What is 2 + 2?",
				Options: []string{"3", "4"},
				Answer:  "4",
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
