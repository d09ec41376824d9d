package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"proctored-quiz-service/internal/domain"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("pw1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "pw1" {
		t.Fatalf("expected hashed value")
	}
	if !CheckPassword(hash, "pw1") {
		t.Fatalf("expected password to verify")
	}
	if CheckPassword(hash, "pw2") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestTokenIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue(domain.User{Username: "alice", Role: domain.RoleStudent})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Username != "alice" || claims.Role != domain.RoleStudent {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenRejectsExpiredAndForeign(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return start }
	token, err := issuer.Issue(domain.User{Username: "alice", Role: domain.RoleStudent})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	issuer.now = func() time.Time { return start.Add(2 * time.Minute) }
	if _, err := issuer.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	other := NewTokenIssuer("other-secret", time.Hour)
	foreign, _ := other.Issue(domain.User{Username: "mallory", Role: domain.RoleProfessor})
	if _, err := NewTokenIssuer("secret", time.Hour).Parse(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign token to fail, got %v", err)
	}
}
