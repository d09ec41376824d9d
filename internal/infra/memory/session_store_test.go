package memory

import (
	"testing"

	"proctored-quiz-service/internal/app"
	"proctored-quiz-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	calls := 0
	create := func() *app.Session {
		calls++
		return app.NewSession("s-1", app.BeginRequest{Username: "alice"}, sampleQuiz())
	}

	session, created := store.GetOrCreate("alice", create)
	if session == nil || !created {
		t.Fatalf("expected new session")
	}
	again, created := store.GetOrCreate("alice", create)
	if created || again != session {
		t.Fatalf("expected existing session to be reused")
	}
	if calls != 1 {
		t.Fatalf("expected create called once, got %d", calls)
	}
	if _, ok := store.Get("alice"); !ok {
		t.Fatalf("expected session present")
	}
	if session.State() != domain.SessionCreated {
		t.Fatalf("expected created state, got %s", session.State())
	}

	store.Delete("alice")
	if _, ok := store.Get("alice"); ok {
		t.Fatalf("expected session removed")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}
