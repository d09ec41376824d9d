package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"proctored-quiz-service/internal/domain"
)

// QuizLoader loads quiz JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

// SaveQuiz validates and upserts a quiz definition.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO quizzes (id, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`, quiz.ID, string(raw))
	if err != nil {
		return fmt.Errorf("save quiz %s: %w", quiz.ID, err)
	}
	return nil
}

// SeedQuiz stores quiz only when no quiz with that id exists yet. It reports whether a row was written.
func (l *QuizLoader) SeedQuiz(ctx context.Context, quiz domain.Quiz) (bool, error) {
	if err := quiz.Validate(); err != nil {
		return false, err
	}
	raw, err := json.Marshal(quiz)
	if err != nil {
		return false, fmt.Errorf("marshal quiz: %w", err)
	}
	tag, err := l.pool.Exec(ctx,
		`INSERT INTO quizzes (id, data) VALUES ($1, $2::jsonb) ON CONFLICT (id) DO NOTHING`, quiz.ID, string(raw))
	if err != nil {
		return false, fmt.Errorf("seed quiz %s: %w", quiz.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}
