package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// PresenceSet keeps the active quiz takers in a Redis set so every instance sees the same view.
// SADD makes repeated adds of the same username a no-op.
type PresenceSet struct {
	client *redis.Client
	key    string
}

func NewPresenceSet(client *redis.Client) *PresenceSet {
	return &PresenceSet{client: client, key: "quiz:active"}
}

func (p *PresenceSet) Add(ctx context.Context, username string) error {
	if err := p.client.SAdd(ctx, p.key, username).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", p.key, err)
	}
	return nil
}

func (p *PresenceSet) Remove(ctx context.Context, username string) error {
	if err := p.client.SRem(ctx, p.key, username).Err(); err != nil {
		return fmt.Errorf("srem %s: %w", p.key, err)
	}
	return nil
}

func (p *PresenceSet) List(ctx context.Context) ([]string, error) {
	names, err := p.client.SMembers(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", p.key, err)
	}
	return names, nil
}
