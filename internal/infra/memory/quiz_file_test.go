package memory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"proctored-quiz-service/internal/domain"
)

func TestLoadQuizFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.yaml")
	data := []byte(`
id: c-basics
title: C basics
questions:
  - id: q1
    prompt: Which data type stores a single character in C?
    options: [char, int, float, double]
    answer: char
  - id: q2
    prompt: What is 5 / 2 in C with integer operands?
    options: ["2.5", "2", "3", "Error"]
    answer: "2"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	quiz, err := LoadQuizFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if quiz.ID != "c-basics" || len(quiz.Questions) != 2 || quiz.Questions[1].Answer != "2" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
}

func TestLoadQuizFileRejectsBadAnswer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.yaml")
	data := []byte(`
id: broken
questions:
  - id: q1
    prompt: pick
    options: [a, b]
    answer: c
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadQuizFile(path); !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected invalid quiz, got %v", err)
	}
}
