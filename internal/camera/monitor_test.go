package camera

import (
	"testing"
	"time"
)

func TestMonitorWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	m := NewMonitorWithClock(5*time.Second, func() time.Time { return now })

	if m.IsLive("alice") {
		t.Fatalf("expected no signal before first heartbeat")
	}
	m.Heartbeat("alice")
	if !m.IsLive("alice") {
		t.Fatalf("expected live right after heartbeat")
	}

	now = now.Add(5 * time.Second)
	if !m.IsLive("alice") {
		t.Fatalf("expected live at the window edge")
	}
	now = now.Add(time.Second)
	if m.IsLive("alice") {
		t.Fatalf("expected stale heartbeat to be ignored")
	}

	m.Heartbeat("alice")
	m.Drop("alice")
	if m.IsLive("alice") {
		t.Fatalf("expected dropped stream to be offline")
	}
}
