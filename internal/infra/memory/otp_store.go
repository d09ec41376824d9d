package memory

import (
	"context"
	"sync"
	"time"

	"proctored-quiz-service/internal/domain"
)

// OTPStore keeps hashed one-time codes with an expiry.
type OTPStore struct {
	clock func() time.Time

	mu    sync.Mutex
	codes map[string]otpEntry
}

type otpEntry struct {
	hash      string
	expiresAt time.Time
}

func NewOTPStore() *OTPStore {
	return &OTPStore{clock: time.Now, codes: make(map[string]otpEntry)}
}

func (s *OTPStore) Put(_ context.Context, email, codeHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = otpEntry{hash: codeHash, expiresAt: s.clock().Add(ttl)}
	return nil
}

func (s *OTPStore) Take(_ context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.codes[email]
	if !ok {
		return "", domain.ErrInvalidOTP
	}
	delete(s.codes, email)
	if !entry.expiresAt.After(s.clock()) {
		return "", domain.ErrInvalidOTP
	}
	return entry.hash, nil
}
