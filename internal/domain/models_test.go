package domain

import (
	"errors"
	"testing"
	"time"
)

func TestQuestionValidate(t *testing.T) {
	cases := []struct {
		name string
		q    Question
		ok   bool
	}{
		{"valid", Question{ID: "Q1", Options: []string{"char", "int", "float", "double"}, Answer: "char"}, true},
		{"too few options", Question{ID: "Q1", Options: []string{"a"}, Answer: "a"}, false},
		{"too many options", Question{ID: "Q1", Options: []string{"a", "b", "c", "d", "e"}, Answer: "a"}, false},
		{"duplicate option", Question{ID: "Q1", Options: []string{"a", "a"}, Answer: "a"}, false},
		{"answer not an option", Question{ID: "Q1", Options: []string{"a", "b"}, Answer: "c"}, false},
		{"missing id", Question{Options: []string{"a", "b"}, Answer: "a"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidQuiz) {
				t.Fatalf("expected ErrInvalidQuiz, got %v", err)
			}
		})
	}
}

func TestQuizValidateRejectsDuplicateIDs(t *testing.T) {
	q := Question{ID: "Q1", Options: []string{"a", "b"}, Answer: "a"}
	if err := (Quiz{ID: "x", Questions: []Question{q, q}}).Validate(); !errors.Is(err, ErrInvalidQuiz) {
		t.Fatalf("expected duplicate id rejection, got %v", err)
	}
	if err := (Quiz{ID: "x"}).Validate(); !errors.Is(err, ErrInvalidQuiz) {
		t.Fatalf("expected empty quiz rejection, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("professor"); err != nil || r != RoleProfessor {
		t.Fatalf("unexpected %q %v", r, err)
	}
	if _, err := ParseRole("admin"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
}

func TestElapsedSecondsRounds(t *testing.T) {
	r := QuizResult{Elapsed: 74*time.Second + 600*time.Millisecond}
	if got := r.ElapsedSeconds(); got != 75 {
		t.Fatalf("expected 75, got %d", got)
	}
}
