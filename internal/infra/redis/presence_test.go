package redis

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"proctored-quiz-service/internal/domain"
)

func TestPresenceSetAddsOnce(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	presence := NewPresenceSet(newClient(mr))

	for _, name := range []string{"alice", "alice", "bob"} {
		if err := presence.Add(ctx, name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	names, err := presence.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "alice" || names[1] != "bob" {
		t.Fatalf("expected alice and bob once, got %v", names)
	}

	if err := presence.Remove(ctx, "alice"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	names, _ = presence.List(ctx)
	if len(names) != 1 || names[0] != "bob" {
		t.Fatalf("expected alice removed from redis set, got %v", names)
	}
	if !mr.Exists("quiz:active") {
		t.Fatalf("expected presence key to remain while bob is active")
	}
}

func TestOTPStoreTakeOnceAndExpire(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewOTPStore(newClient(mr))

	if err := store.Put(ctx, "a@example.com", "hash", time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	hash, err := store.Take(ctx, "a@example.com")
	if err != nil || hash != "hash" {
		t.Fatalf("expected hash, got %q %v", hash, err)
	}
	if _, err := store.Take(ctx, "a@example.com"); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Fatalf("expected single use, got %v", err)
	}

	_ = store.Put(ctx, "a@example.com", "hash", time.Minute)
	mr.FastForward(2 * time.Minute)
	if _, err := store.Take(ctx, "a@example.com"); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Fatalf("expected expired code, got %v", err)
	}
}
