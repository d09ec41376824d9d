package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"proctored-quiz-service/internal/domain"
)

// OTPStore keeps hashed one-time codes under expiring keys.
type OTPStore struct {
	client *redis.Client
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

func (s *OTPStore) Put(ctx context.Context, email, codeHash string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(email), codeHash, ttl).Err(); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

// Take reads and deletes the code in one round trip so it can be used once.
func (s *OTPStore) Take(ctx context.Context, email string) (string, error) {
	hash, err := s.client.GetDel(ctx, s.key(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrInvalidOTP
	}
	if err != nil {
		return "", fmt.Errorf("take otp: %w", err)
	}
	return hash, nil
}

func (s *OTPStore) key(email string) string {
	return "quiz:otp:" + email
}
