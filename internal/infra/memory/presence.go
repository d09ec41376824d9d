package memory

import (
	"context"
	"sync"
)

// PresenceSet is an in-process set of usernames currently taking a quiz.
type PresenceSet struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

func NewPresenceSet() *PresenceSet {
	return &PresenceSet{names: make(map[string]struct{})}
}

func (p *PresenceSet) Add(_ context.Context, username string) error {
	p.mu.Lock()
	p.names[username] = struct{}{}
	p.mu.Unlock()
	return nil
}

func (p *PresenceSet) Remove(_ context.Context, username string) error {
	p.mu.Lock()
	delete(p.names, username)
	p.mu.Unlock()
	return nil
}

func (p *PresenceSet) List(_ context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.names))
	for name := range p.names {
		out = append(out, name)
	}
	return out, nil
}
